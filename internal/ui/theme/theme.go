package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/renalscope/renalscope/internal/diagnosis"
)

// Color palette, calm clinical tones
var (
	Primary   = lipgloss.Color("#38BDF8") // Sky
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	ErrorCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Error).
			Padding(1, 2)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	StageDone = lipgloss.NewStyle().
			Foreground(Success)

	StageActive = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	StagePending = lipgloss.NewStyle().
			Foreground(TextDim)
)

// LabelColor returns the accent used for a diagnosis label.
func LabelColor(l diagnosis.Label) color.Color {
	switch l {
	case diagnosis.LabelNormal:
		return Success
	case diagnosis.LabelTumor:
		return Error
	case diagnosis.LabelCyst, diagnosis.LabelStone:
		return Accent
	}
	return TextDim
}

// Label renders a diagnosis label as a colored badge.
func Label(l diagnosis.Label) string {
	name := string(l)
	if f := diagnosis.GetFinding(l); f != nil {
		name = f.Name
	} else if l == diagnosis.LabelNotApplicable {
		name = "Not a kidney CT scan"
	}
	return lipgloss.NewStyle().
		Foreground(LabelColor(l)).
		Bold(true).
		Render(name)
}
