package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/ui/components"
	"github.com/renalscope/renalscope/internal/ui/layout"
	"github.com/renalscope/renalscope/internal/ui/theme"
)

var stageLabels = map[diagnosis.Stage]string{
	diagnosis.StageValidate:        "Reading the scan",
	diagnosis.StageExplain:         "Writing the explanation",
	diagnosis.StageCheckConfidence: "Checking confidence",
	diagnosis.StageRefine:          "Taking a second look",
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

func (m Model) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	header := layout.RenderHeader(m.title(), m.opts.Model, m.width)
	footer := layout.RenderFooter(m.hints(), m.width)

	contentWidth := min(m.width-4, 76)
	var content string
	switch m.state {
	case stateInput:
		content = m.renderInput()
	case stateRunning:
		content = m.renderRunning()
	case stateResult:
		content = m.renderResult(contentWidth)
	case stateFailed:
		content = m.renderFailed(contentWidth)
	}
	content = lipgloss.NewStyle().Padding(1, 2).Render(content)

	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

func (m Model) title() string {
	switch m.state {
	case stateRunning:
		return "Analyzing"
	case stateResult:
		return "Result"
	case stateFailed:
		return "Analysis failed"
	}
	return "Kidney CT analysis"
}

func (m Model) hints() []layout.KeyHint {
	switch m.state {
	case stateInput:
		return []layout.KeyHint{{Key: "Enter", Description: "Analyze"}, {Key: "Ctrl+C", Description: "Quit"}}
	case stateRunning:
		return []layout.KeyHint{{Key: "Esc", Description: "Cancel"}, {Key: "Ctrl+C", Description: "Quit"}}
	}
	return []layout.KeyHint{{Key: "↑↓", Description: "Navigate"}, {Key: "Enter", Description: "Select"}, {Key: "q", Description: "Quit"}}
}

func (m Model) renderInput() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Which scan should be analyzed?"))
	b.WriteString("\n")
	b.WriteString(theme.Hint.Render("A file path, an http(s) URL, or a base64 data URI."))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) renderRunning() string {
	var b strings.Builder
	b.WriteString(theme.Subtitle.Render(truncate(m.path, 60)))
	b.WriteString("\n\n")

	for i, s := range m.visited {
		label := stageLabels[s]
		if i == len(m.visited)-1 {
			b.WriteString(m.spinner.View() + " " + theme.StageActive.Render(label))
		} else {
			b.WriteString(theme.StageDone.Render("✓ " + label))
		}
		b.WriteString("\n")
	}
	if len(m.visited) == 0 {
		b.WriteString(m.spinner.View() + " " + theme.StagePending.Render("Loading the image"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderResult(width int) string {
	r := m.result
	var b strings.Builder

	b.WriteString(theme.Subtitle.Render("Diagnosis") + "\n")
	b.WriteString(theme.Label(r.Diagnosis) + "\n\n")

	bar := components.NewConfidenceBar("Confidence", r.Confidence, m.opts.Threshold, width-6)
	b.WriteString(bar.View() + "\n")
	if r.Refined {
		b.WriteString(theme.Hint.Render("Re-evaluated after a low-confidence first reading.") + "\n")
	}
	b.WriteString("\n")

	wrap := lipgloss.NewStyle().Foreground(theme.Text).Width(width - 6)
	b.WriteString(wrap.Render(r.Explanation) + "\n")

	if r.Analytics != "" {
		b.WriteString("\n" + theme.Subtitle.Render("Analytics") + "\n")
		b.WriteString(wrap.Render(r.Analytics) + "\n")
	}

	card := theme.Card.Width(width).Render(strings.TrimRight(b.String(), "\n"))
	return card + "\n\n" + m.menu.View()
}

func (m Model) renderFailed(width int) string {
	body := lipgloss.NewStyle().Foreground(theme.Error).Bold(true).Render(diagnosis.PublicMessage)
	if kind := diagnosis.KindOf(m.err); kind != diagnosis.KindUnknown {
		body += "\n" + theme.Hint.Render(fmt.Sprintf("code: %s", kind))
	}
	card := theme.ErrorCard.Width(width).Render(body)
	return card + "\n\n" + m.menu.View()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
