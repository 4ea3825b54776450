package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/renalscope/renalscope/internal/ui/theme"
)

// ConfidenceBar displays a confidence score as a horizontal bar. Scores
// below Threshold are drawn in the warning color.
type ConfidenceBar struct {
	Label     string
	Value     float64
	Threshold float64
	Width     int
}

// NewConfidenceBar creates a new confidence bar.
func NewConfidenceBar(label string, value, threshold float64, width int) ConfidenceBar {
	return ConfidenceBar{
		Label:     label,
		Value:     value,
		Threshold: threshold,
		Width:     width,
	}
}

// View renders the bar.
func (p ConfidenceBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	labelWidth := lipgloss.Width(result)
	percentWidth := 6 // "  100%"

	barWidth := p.Width - labelWidth - percentWidth
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * p.Value)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	empty := barWidth - filled

	fill := theme.Secondary
	if p.Value < p.Threshold {
		fill = theme.Accent
	}

	filledStr := lipgloss.NewStyle().
		Background(fill).
		Render(strings.Repeat(" ", filled))

	emptyStr := lipgloss.NewStyle().
		Background(theme.Border).
		Render(strings.Repeat(" ", empty))

	result += filledStr + emptyStr
	result += lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("  %d%%", int(p.Value*100+0.5)))

	return result
}
