// Package tui is the interactive terminal front end for a single analysis.
package tui

import (
	"context"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/renalscope/renalscope/internal/analysis"
	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/ui/components"
	"github.com/renalscope/renalscope/internal/ui/theme"
)

type state int

const (
	stateInput state = iota
	stateRunning
	stateResult
	stateFailed
)

// Options configures the TUI.
type Options struct {
	// Path is analyzed immediately when set; otherwise the user is asked.
	Path      string
	Model     string
	Threshold float64
}

// Model is the root Bubble Tea model.
type Model struct {
	analyzer analysis.Analyzer
	parent   context.Context
	opts     Options

	state   state
	input   components.TextInput
	spinner spinner.Model
	menu    components.Menu

	run     int
	cancel  context.CancelFunc
	events  chan analysis.Event
	path    string
	stage   diagnosis.Stage
	visited []diagnosis.Stage
	result  *diagnosis.AnalysisResult
	err     error

	width  int
	height int
}

// New creates the model. ctx bounds every analysis started from it.
func New(ctx context.Context, analyzer analysis.Analyzer, opts Options) Model {
	if opts.Threshold <= 0 {
		opts.Threshold = analysis.DefaultThreshold
	}
	m := Model{
		analyzer: analyzer,
		parent:   ctx,
		opts:     opts,
		input:    components.NewTextInput("path/to/scan.png, https://… or data:image/png;base64,…", 56),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(theme.StageActive),
		),
	}
	m.menu = resultMenu()
	return m
}

func resultMenu() components.Menu {
	return components.NewMenu([]components.MenuItem{
		{Label: "Analyze another scan", Action: func() tea.Cmd { return func() tea.Msg { return restartMsg{} } }},
		{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	})
}

func (m Model) Init() tea.Cmd {
	if m.opts.Path != "" {
		return func() tea.Msg { return startMsg{path: m.opts.Path} }
	}
	return m.input.Init()
}

// startMsg begins an analysis of path.
type startMsg struct{ path string }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			m.stop()
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case startMsg:
		return m.start(msg.path)

	case stageMsg:
		if msg.run != m.run || m.state != stateRunning {
			return m, nil
		}
		m.enter(msg.event.Stage)
		return m, m.nextEvent(msg.run)

	case resultMsg:
		if msg.run != m.run {
			return m, nil
		}
		m.stop()
		if msg.err != nil {
			m.state = stateFailed
			m.err = msg.err
		} else {
			m.state = stateResult
			m.result = msg.result
		}
		m.menu = resultMenu()
		return m, nil

	case restartMsg:
		m.state = stateInput
		m.result = nil
		m.err = nil
		m.input = components.NewTextInput(m.input.Model.Placeholder, 56)
		return m, m.input.Init()

	case spinner.TickMsg:
		if m.state != stateRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state == stateInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateInput:
		if msg.String() == "enter" {
			path := strings.TrimSpace(m.input.Value())
			if path == "" {
				m.input.Reject("enter the image to analyze")
				return m, nil
			}
			return m.start(path)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case stateRunning:
		if msg.String() == "esc" {
			m.stop()
		}
		return m, nil

	default:
		if msg.String() == "q" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd
	}
}

func (m Model) start(path string) (tea.Model, tea.Cmd) {
	m.run++
	m.state = stateRunning
	m.path = path
	m.stage = ""
	m.visited = nil
	m.result = nil
	m.err = nil

	ctx, cancel := context.WithCancel(m.parent)
	m.cancel = cancel
	m.events = make(chan analysis.Event, 16)

	return m, tea.Batch(m.spinner.Tick, m.analyzeCmd(ctx, m.run, path, m.events), m.nextEvent(m.run))
}

// analyzeCmd runs the analysis, forwarding transitions to events. events is
// closed once the analysis returns.
func (m Model) analyzeCmd(ctx context.Context, run int, path string, events chan<- analysis.Event) tea.Cmd {
	analyzer := m.analyzer
	return func() tea.Msg {
		defer close(events)
		ctx := analysis.WithObserverContext(ctx, func(ev analysis.Event) {
			select {
			case events <- ev:
			default:
			}
		})
		res, err := analyzer.Analyze(ctx, imageref.Parse(path))
		return resultMsg{run: run, result: res, err: err}
	}
}

// nextEvent waits for the next transition of run.
func (m Model) nextEvent(run int) tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return stageMsg{run: run, event: ev}
	}
}

func (m Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// enter records a transition. Terminal stages are not listed.
func (m *Model) enter(s diagnosis.Stage) {
	if s == diagnosis.StageDone || s == diagnosis.StageFailed {
		return
	}
	m.stage = s
	m.visited = append(m.visited, s)
}
