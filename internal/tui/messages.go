package tui

import (
	"github.com/renalscope/renalscope/internal/analysis"
	"github.com/renalscope/renalscope/internal/diagnosis"
)

// stageMsg carries one orchestrator transition of run.
type stageMsg struct {
	run   int
	event analysis.Event
}

// resultMsg is sent when the analysis of run finishes.
type resultMsg struct {
	run    int
	result *diagnosis.AnalysisResult
	err    error
}

// restartMsg returns to the input screen.
type restartMsg struct{}
