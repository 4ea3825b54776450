package tui

import (
	"context"
	"encoding/base64"
	"errors"
	"slices"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/mock/gomock"

	"github.com/renalscope/renalscope/internal/analysis"
	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/inference"
	"github.com/renalscope/renalscope/internal/llm"
	"github.com/renalscope/renalscope/internal/mocks"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want tui.Model", next)
	}
	return nm, cmd
}

func TestModel_StartsInInput(t *testing.T) {
	m := sized(New(context.Background(), nil, Options{}))
	if m.state != stateInput {
		t.Fatalf("state = %v, want input", m.state)
	}
	if !strings.Contains(m.render(), "Which scan should be analyzed?") {
		t.Error("input prompt missing from view")
	}
}

func TestModel_PathStartsImmediately(t *testing.T) {
	m := New(context.Background(), nil, Options{Path: "scan.png"})
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("expected a start command")
	}
	msg, ok := cmd().(startMsg)
	if !ok || msg.path != "scan.png" {
		t.Fatalf("Init command produced %#v", msg)
	}
}

func TestModel_EmptyPathRejected(t *testing.T) {
	m := sized(New(context.Background(), nil, Options{}))
	m, cmd := update(t, m, specialKey(tea.KeyEnter))
	if cmd != nil {
		t.Error("expected no command for an empty path")
	}
	if m.state != stateInput {
		t.Fatalf("state = %v, want input", m.state)
	}
	if !strings.Contains(m.render(), "enter the image to analyze") {
		t.Error("validation message missing")
	}
}

func TestModel_TypingAndEnterStartsRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockAnalyzer(ctrl)

	m := sized(New(context.Background(), a, Options{}))
	for _, r := range "scan.png" {
		m, _ = update(t, m, keyPress(r))
	}
	if got := m.input.Value(); got != "scan.png" {
		t.Fatalf("input = %q", got)
	}

	m, cmd := update(t, m, specialKey(tea.KeyEnter))
	if m.state != stateRunning || m.run != 1 || m.path != "scan.png" {
		t.Fatalf("state=%v run=%d path=%q", m.state, m.run, m.path)
	}
	if cmd == nil {
		t.Fatal("expected batch command")
	}
	if !strings.Contains(m.render(), "Loading the image") {
		t.Error("running view should show loading before the first stage")
	}
	m.stop()
}

func TestModel_StagesAndResult(t *testing.T) {
	m := sized(New(context.Background(), nil, Options{Model: "gemini-2.5-flash"}))
	m, _ = update(t, m, startMsg{path: "scan.png"})

	m, _ = update(t, m, stageMsg{run: 1, event: analysis.Event{Stage: diagnosis.StageValidate}})
	m, _ = update(t, m, stageMsg{run: 1, event: analysis.Event{Stage: diagnosis.StageExplain}})
	if m.stage != diagnosis.StageExplain || len(m.visited) != 2 {
		t.Fatalf("stage=%v visited=%v", m.stage, m.visited)
	}
	view := m.render()
	if !strings.Contains(view, "✓ Reading the scan") || !strings.Contains(view, "Writing the explanation") {
		t.Errorf("stage list not rendered:\n%s", view)
	}

	m, _ = update(t, m, resultMsg{run: 1, result: &diagnosis.AnalysisResult{
		Diagnosis:   diagnosis.LabelCyst,
		Confidence:  0.82,
		Explanation: "A small fluid-filled sac is visible on the right kidney.",
		Refined:     true,
	}})
	if m.state != stateResult {
		t.Fatalf("state = %v, want result", m.state)
	}
	view = m.render()
	for _, want := range []string{"Cyst", "82%", "fluid-filled", "Re-evaluated", "gemini-2.5-flash", "Analyze another scan"} {
		if !strings.Contains(view, want) {
			t.Errorf("result view missing %q", want)
		}
	}
}

func TestModel_FailureShowsOnlyPublicMessage(t *testing.T) {
	m := sized(New(context.Background(), nil, Options{}))
	m, _ = update(t, m, startMsg{path: "scan.png"})
	m, _ = update(t, m, resultMsg{run: 1, err: &diagnosis.AnalysisError{
		Kind:  diagnosis.KindUpstreamUnavailable,
		Stage: diagnosis.StageValidate,
		Err:   errors.New("503 from upstream with secret detail"),
	}})

	if m.state != stateFailed {
		t.Fatalf("state = %v, want failed", m.state)
	}
	view := m.render()
	if !strings.Contains(view, diagnosis.PublicMessage) {
		t.Error("public message missing")
	}
	if !strings.Contains(view, "upstream_unavailable") {
		t.Error("error code missing")
	}
	if strings.Contains(view, "secret detail") {
		t.Error("upstream detail leaked into the view")
	}
}

func TestModel_StaleMessagesIgnored(t *testing.T) {
	m := sized(New(context.Background(), nil, Options{}))
	m, _ = update(t, m, startMsg{path: "a.png"})
	m, _ = update(t, m, startMsg{path: "b.png"})

	m, _ = update(t, m, resultMsg{run: 1, result: &diagnosis.AnalysisResult{Diagnosis: diagnosis.LabelNormal}})
	if m.state != stateRunning {
		t.Fatalf("stale result changed state to %v", m.state)
	}
	m, _ = update(t, m, stageMsg{run: 1, event: analysis.Event{Stage: diagnosis.StageValidate}})
	if len(m.visited) != 0 {
		t.Fatalf("stale stage recorded: %v", m.visited)
	}
	m.stop()
}

func TestModel_MenuRestartsAndQuits(t *testing.T) {
	m := sized(New(context.Background(), nil, Options{}))
	m, _ = update(t, m, startMsg{path: "scan.png"})
	m, _ = update(t, m, resultMsg{run: 1, result: &diagnosis.AnalysisResult{
		Diagnosis: diagnosis.LabelNormal, Confidence: 0.9, Explanation: "Looks healthy.",
	}})

	_, cmd := update(t, m, specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected restart command")
	}
	if _, ok := cmd().(restartMsg); !ok {
		t.Fatal("first menu item should restart")
	}
	m, _ = update(t, m, restartMsg{})
	if m.state != stateInput || m.result != nil {
		t.Fatalf("restart left state=%v result=%v", m.state, m.result)
	}

	m, _ = update(t, m, startMsg{path: "scan.png"})
	m, _ = update(t, m, resultMsg{run: 2, result: &diagnosis.AnalysisResult{
		Diagnosis: diagnosis.LabelNormal, Confidence: 0.9, Explanation: "Looks healthy.",
	}})
	m, _ = update(t, m, specialKey(tea.KeyDown))
	_, cmd = update(t, m, specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("second menu item should quit")
	}
}

func TestModel_AnalyzeCmdForwardsStages(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddJSON(map[string]any{"diagnosis": "normal", "confidence": 0.97})
	mock.AddJSON(map[string]any{"explanation": "Your scan looks normal."})
	orch := analysis.New(inference.New(mock, inference.Config{}, nil))

	m := New(context.Background(), orch, Options{})
	events := make(chan analysis.Event, 16)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	msg := m.analyzeCmd(context.Background(), 7, uri, events)()
	res, ok := msg.(resultMsg)
	if !ok {
		t.Fatalf("got %T, want resultMsg", msg)
	}
	if res.err != nil || res.run != 7 {
		t.Fatalf("run=%d err=%v", res.run, res.err)
	}
	if res.result.Diagnosis != diagnosis.LabelNormal {
		t.Errorf("diagnosis = %q", res.result.Diagnosis)
	}

	var stages []diagnosis.Stage
	for ev := range events {
		stages = append(stages, ev.Stage)
	}
	want := []diagnosis.Stage{diagnosis.StageValidate, diagnosis.StageExplain, diagnosis.StageCheckConfidence, diagnosis.StageDone}
	if !slices.Equal(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}
