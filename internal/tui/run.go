package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/renalscope/renalscope/internal/analysis"
)

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(ctx context.Context, analyzer analysis.Analyzer, opts Options) error {
	p := tea.NewProgram(New(ctx, analyzer, opts), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
