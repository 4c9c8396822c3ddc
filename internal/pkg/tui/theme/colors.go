package theme

import "github.com/charmbracelet/lipgloss"

// Transcript palette, one hue per block kind and per delegation state.
var (
	// Chrome
	Accent     = lipgloss.Color("#7C9CF5")
	AccentSoft = lipgloss.Color("#A9BEFA")
	Text       = lipgloss.Color("#E6E8EE")
	TextDim    = lipgloss.Color("#A0A6B4")
	TextFaint  = lipgloss.Color("#6E7483")
	Frame      = lipgloss.Color("#3A3F4B")

	// Blocks
	ToolActivity = lipgloss.Color("#4FB3BF")
	Compacted    = lipgloss.Color("#D99A4E")
	Delegated    = lipgloss.Color("#B48EE0")

	// Turn and delegation state
	Finished = lipgloss.Color("#5FB878")
	Running  = lipgloss.Color("#E0B84E")
	Failed   = lipgloss.Color("#E06C6C")
	Notice   = lipgloss.Color("#5A9BE0")
)

// DelegationColor returns the hue for a delegation status string as found in
// a transcript ("in_progress", "completed" or "failed").
func DelegationColor(status string) lipgloss.Color {
	switch status {
	case "completed":
		return Finished
	case "failed":
		return Failed
	default:
		return Running
	}
}
