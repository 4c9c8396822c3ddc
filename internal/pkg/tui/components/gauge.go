package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/emiliopalmerini/mtranscript/internal/pkg/tui/theme"
)

// Gauge renders a percentage as a fixed-width bar
type Gauge struct {
	Width   int
	Percent float64
	styles  *theme.Styles
}

// NewGauge creates a gauge; percent is clamped to [0, 100]
func NewGauge(width int, percent float64) Gauge {
	return Gauge{
		Width:   width,
		Percent: math.Max(0, math.Min(100, percent)),
		styles:  theme.Default(),
	}
}

// Filled is the number of cells drawn as used.
func (g Gauge) Filled() int {
	if g.Width <= 0 {
		return 0
	}
	return int(math.Round(g.Percent / 100 * float64(g.Width)))
}

// View renders the gauge followed by the percentage
func (g Gauge) View() string {
	var b strings.Builder

	filled := g.Filled()
	active := g.styles.ProgressActive
	switch {
	case g.Percent >= 90:
		active = g.styles.Error
	case g.Percent >= 75:
		active = g.styles.Warning
	}

	b.WriteString(active.Render(strings.Repeat("#", filled)))
	b.WriteString(g.styles.ProgressInactive.Render(strings.Repeat("-", max(g.Width-filled, 0))))
	b.WriteString(fmt.Sprintf(" %5.1f%%", g.Percent))

	return b.String()
}
