// Package tui plays the quiz in a terminal.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/pavelanni/memorylane/internal/evasive"
	appI18n "github.com/pavelanni/memorylane/internal/i18n"
	"github.com/pavelanni/memorylane/internal/model"
	"github.com/pavelanni/memorylane/internal/quiz"
)

// TerminalParams tune the evasive option for terminal cells. Rows count
// double so distances look round on screen.
func TerminalParams() evasive.Params {
	return evasive.Params{
		ActivationRadius: 10,
		ReleaseRadius:    14,
		MaxDisplacement:  24,
		Gain:             1.5,
		Cooldown:         500 * time.Millisecond,
	}
}

// Options configures the terminal UI.
type Options struct {
	Lang         string
	NoColor      bool
	LoadingTime  time.Duration
	Evasive      evasive.Params
	TickInterval time.Duration
}

// Model is the Bubble Tea model for one terminal quiz.
type Model struct {
	content model.Content
	opts    Options
	game    *game

	spinner  spinner.Model
	progress progress.Model
	width    int
	height   int
	now      time.Time

	t  func(id string) string
	td func(id string, data map[string]any) string
	tp func(id string, n int) string
}

// game is the mutable part of a model; restarting replaces it.
type game struct {
	ctrl    *quiz.Controller
	widget  *evasive.Widget
	loading loadState
}

type loadState struct {
	done      func()
	scheduled bool
	started   time.Time
}

type loadedMsg struct{}

type tickMsg time.Time

// NewModel returns a model showing the start screen.
func NewModel(c model.Content, opts Options) Model {
	if opts.LoadingTime <= 0 {
		opts.LoadingTime = 3 * time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}
	opts.Evasive = opts.Evasive.Normalize()

	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(opts.Lang))

	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = style(opts.NoColor, colorAccent)
	popts := []progress.Option{progress.WithDefaultGradient(), progress.WithoutPercentage()}
	if opts.NoColor {
		popts = append(popts, progress.WithColorProfile(termenv.Ascii))
	}

	return Model{
		content:  c,
		opts:     opts,
		game:     newGame(c, opts),
		spinner:  s,
		progress: progress.New(popts...),
		now:      time.Now(),
		t:        func(id string) string { return appI18n.T(ctx, id) },
		td:       func(id string, data map[string]any) string { return appI18n.Td(ctx, id, data) },
		tp:       func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
	}
}

func newGame(c model.Content, opts Options) *game {
	g := &game{}
	g.ctrl = quiz.New(c.Questions, quiz.LoaderFunc(func(done func()) {
		g.loading = loadState{done: done}
	}))
	if n := len(c.Questions); n > 0 && c.EvasiveOption >= 0 && c.EvasiveOption < len(c.Questions[n-1].Options) {
		g.widget = evasive.NewWidget(c.EvasiveOption, opts.Evasive, func(option int) {
			g.ctrl.SelectAnswer(option)
		})
	}
	return g
}

// Run plays the quiz until the user quits or ctx is cancelled.
func Run(ctx context.Context, c model.Content, opts Options) error {
	p := tea.NewProgram(NewModel(c, opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

// Init does nothing until the first key press.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update applies key presses, mouse events and timers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(min(msg.Width-4, 60), 10)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case loadedMsg:
		if done := m.game.loading.done; done != nil {
			m.game.loading.done = nil
			done()
		}
		return m, m.afterChange()
	case tickMsg:
		m.now = time.Time(msg)
		if m.game.ctrl.Phase() == model.PhaseLoading {
			return m, tick(m.opts.TickInterval)
		}
		return m, nil
	case spinner.TickMsg:
		if m.game.ctrl.Phase() != model.PhaseLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.game.ctrl
	switch key := msg.String(); key {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "enter", " ":
		switch ctrl.Phase() {
		case model.PhaseNotStarted:
			ctrl.Start()
		case model.PhaseFeedback:
			if ctrl.Correct() {
				ctrl.Advance()
			} else {
				ctrl.Retry()
			}
		case model.PhaseFinal:
			m.restart()
		}
	case "r":
		switch ctrl.Phase() {
		case model.PhaseFeedback:
			ctrl.Retry()
		case model.PhaseFinal:
			m.restart()
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			m.selectOption(int(key[0] - '1'))
		}
	}
	return m, m.afterChange()
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.game.ctrl.Phase() != model.PhaseAnswering {
		return m, nil
	}

	// A press hits what was on screen before the pointer moved the widget.
	boxes := m.drawnBoxes()
	if w := m.game.widget; w != nil && w.Armed() {
		for _, b := range m.restBoxes() {
			if b.option == w.Option {
				w.SetCenter(b.center())
			}
		}
		w.PointerMoved(cellPoint(msg.X, msg.Y))
	}

	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	// Later boxes are drawn on top.
	for i := len(boxes) - 1; i >= 0; i-- {
		if boxes[i].contains(msg.X, msg.Y) {
			m.selectOption(boxes[i].option)
			break
		}
	}
	return m, m.afterChange()
}

// selectOption routes a click on the evasive option through the widget.
func (m Model) selectOption(option int) {
	g := m.game
	if g.widget != nil && g.ctrl.IsTerminal() && option == g.widget.Option {
		g.widget.Click()
		return
	}
	g.ctrl.SelectAnswer(option)
}

func (m *Model) restart() {
	m.game = newGame(m.content, m.opts)
	m.game.ctrl.Start()
}

// afterChange syncs the widget with the controller and schedules the end of
// a loading phase that just began.
func (m Model) afterChange() tea.Cmd {
	g := m.game
	if g.widget != nil {
		g.widget.SetArmed(g.ctrl.EvasiveArmed())
	}
	if g.loading.done == nil || g.loading.scheduled {
		return nil
	}
	g.loading.scheduled = true
	g.loading.started = time.Now()
	return tea.Batch(
		tea.Tick(m.opts.LoadingTime, func(time.Time) tea.Msg { return loadedMsg{} }),
		m.spinner.Tick,
		tick(m.opts.TickInterval),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// cellPoint maps a terminal cell to the widget's plane.
func cellPoint(x, y int) evasive.Vec {
	return evasive.Vec{X: float64(x), Y: float64(y) * 2}
}
