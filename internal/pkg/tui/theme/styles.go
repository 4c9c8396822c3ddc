package theme

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Styles contains the shared terminal styles
type Styles struct {
	// Text styles
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Body        lipgloss.Style
	Muted       lipgloss.Style
	Bold        lipgloss.Style
	Highlighted lipgloss.Style

	// Layout
	Card lipgloss.Style

	// Transcript blocks
	Message    lipgloss.Style
	Activity   lipgloss.Style
	Compaction lipgloss.Style
	Delegation lipgloss.Style

	// Gauges
	ProgressActive   lipgloss.Style
	ProgressInactive lipgloss.Style

	// Status indicators
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

var (
	defaultStyles *Styles
	once          sync.Once
)

// Default returns the singleton default Styles instance
func Default() *Styles {
	once.Do(func() {
		defaultStyles = newStyles()
	})
	return defaultStyles
}

func newStyles() *Styles {
	return &Styles{
		// Text styles
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(Text).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(TextDim),

		Muted: lipgloss.NewStyle().
			Foreground(TextFaint),

		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(Text),

		Highlighted: lipgloss.NewStyle().
			Foreground(AccentSoft).
			Bold(true),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Frame).
			Padding(0, 1),

		// Transcript blocks
		Message: lipgloss.NewStyle().
			Foreground(Text).
			PaddingLeft(2),

		Activity: lipgloss.NewStyle().
			Foreground(ToolActivity).
			PaddingLeft(2),

		Compaction: lipgloss.NewStyle().
			Foreground(Compacted).
			Italic(true).
			PaddingLeft(2),

		Delegation: lipgloss.NewStyle().
			Foreground(Delegated).
			PaddingLeft(4),

		ProgressActive: lipgloss.NewStyle().
			Foreground(Accent),

		ProgressInactive: lipgloss.NewStyle().
			Foreground(TextFaint),

		// Status indicators
		Success: lipgloss.NewStyle().
			Foreground(Finished),

		Warning: lipgloss.NewStyle().
			Foreground(Running),

		Error: lipgloss.NewStyle().
			Foreground(Failed),

		Info: lipgloss.NewStyle().
			Foreground(Notice),
	}
}
