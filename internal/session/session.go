// Package session serializes access to per-visitor quiz controllers and
// owns the resources (loading timers, evasive widget) scoped to them.
package session

import (
	"sync"
	"time"

	"github.com/pavelanni/memorylane/internal/evasive"
	"github.com/pavelanni/memorylane/internal/model"
	"github.com/pavelanni/memorylane/internal/quiz"
)

// DefaultLoadingFallback ends the loading phase when Options.LoadingFallback
// is not positive, so a missing or broken video never holds a visitor there.
var DefaultLoadingFallback = 3 * time.Second

// Options configures every session a Manager creates.
type Options struct {
	LoadingMin time.Duration
	// LoadingFallback ends the loading phase without a media signal. Zero or
	// negative uses DefaultLoadingFallback.
	LoadingFallback time.Duration
	Evasive         evasive.Params
	// EvasiveOption is the option index on the terminal question that dodges
	// the pointer. Negative disables the widget.
	EvasiveOption int
}

// View is what the presentation layer needs to draw one screen.
type View struct {
	ID             string
	State          model.SessionState
	Question       model.Question
	Total          int
	CompletedCount int
	Progress       float64
	Terminal       bool
	EvasiveOption  int // -1 when the current question has no evasive option
	Armed          bool
	Displacement   evasive.Vec
}

// Session is one visitor's quiz. All methods are safe for concurrent use.
type Session struct {
	ID string

	mu       sync.Mutex
	ctrl     *quiz.Controller
	gate     *quiz.Gate
	widget   *evasive.Widget
	lastSeen time.Time
	now      func() time.Time
	onChange func(*Session)
}

func newSession(id string, questions []model.Question, st *model.SessionState, opts Options, now func() time.Time, onChange func(*Session)) *Session {
	fallback := opts.LoadingFallback
	if fallback <= 0 {
		fallback = DefaultLoadingFallback
	}
	s := &Session{
		ID:       id,
		gate:     quiz.NewGate(opts.LoadingMin, fallback),
		now:      now,
		lastSeen: now(),
		onChange: onChange,
	}

	loader := quiz.LoaderFunc(func(done func()) {
		s.gate.BeginLoading(func() {
			s.mu.Lock()
			done()
			s.mu.Unlock()
			s.changed()
		})
	})
	if st != nil {
		s.ctrl = quiz.Restore(questions, *st, loader)
		s.ctrl.ResumeLoading()
	} else {
		s.ctrl = quiz.New(questions, loader)
	}

	if n := len(questions); n > 0 && opts.EvasiveOption >= 0 && opts.EvasiveOption < len(questions[n-1].Options) {
		s.widget = evasive.NewWidget(opts.EvasiveOption, opts.Evasive, func(option int) {
			s.ctrl.SelectAnswer(option)
		})
	}
	s.syncWidget()
	return s
}

// Start begins the quiz.
func (s *Session) Start() bool {
	return s.mutate(func() bool { return s.ctrl.Start() })
}

// Select records an answer. A selection of the evasive option goes through
// the widget's click path; the controller cannot tell the difference.
func (s *Session) Select(option int) bool {
	return s.mutate(func() bool {
		if s.widget != nil && s.ctrl.IsTerminal() && option == s.widget.Option {
			_, before := s.ctrl.Selected()
			s.widget.Click()
			_, after := s.ctrl.Selected()
			return !before && after
		}
		return s.ctrl.SelectAnswer(option)
	})
}

// Retry clears a wrong answer.
func (s *Session) Retry() bool {
	return s.mutate(func() bool { return s.ctrl.Retry() })
}

// Advance moves past a correct answer.
func (s *Session) Advance() bool {
	return s.mutate(func() bool { return s.ctrl.Advance() })
}

// MediaFinished reports that the loading media ended. It may complete the
// loading phase synchronously, so it must not run under the session lock.
func (s *Session) MediaFinished() {
	s.touch()
	s.gate.Signal()
}

// PointerMoved feeds a pointer position to the evasive widget. center is the
// widget's rest position as laid out by the client.
func (s *Session) PointerMoved(pointer, center evasive.Vec) (evasive.Vec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	if s.widget == nil {
		return evasive.Vec{}, false
	}
	s.syncWidget()
	s.widget.SetCenter(center)
	return s.widget.PointerMoved(pointer), s.widget.Armed()
}

// View returns the data for rendering the current screen.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, _ := s.ctrl.Current()
	v := View{
		ID:             s.ID,
		State:          s.ctrl.Snapshot(),
		Question:       q,
		Total:          s.ctrl.Total(),
		CompletedCount: s.ctrl.CompletedCount(),
		Progress:       s.ctrl.Progress(),
		Terminal:       s.ctrl.IsTerminal(),
		EvasiveOption:  -1,
	}
	if s.widget != nil && v.Terminal {
		v.EvasiveOption = s.widget.Option
		v.Armed = s.widget.Armed()
		v.Displacement = s.widget.Displacement()
	}
	return v
}

// Snapshot returns the controller state.
func (s *Session) Snapshot() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Snapshot()
}

// LastSeen returns the time of the last interaction.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close releases the loading timer.
func (s *Session) Close() {
	s.gate.Stop()
}

func (s *Session) mutate(op func() bool) bool {
	s.mu.Lock()
	s.lastSeen = s.now()
	changed := op()
	s.syncWidget()
	s.mu.Unlock()

	if changed {
		s.changed()
	}
	return changed
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// syncWidget must be called with s.mu held.
func (s *Session) syncWidget() {
	if s.widget != nil {
		s.widget.SetArmed(s.ctrl.EvasiveArmed())
	}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange(s)
	}
}
