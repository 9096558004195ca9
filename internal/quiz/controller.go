// Package quiz implements the quiz progression state machine.
//
// A Controller is not safe for concurrent use. Callers that share one across
// goroutines (HTTP handlers, timers) must serialize access themselves.
package quiz

import (
	"slices"

	"github.com/pavelanni/memorylane/internal/model"
)

// Loader is the collaborator that runs the loading transition. It must call
// done once when the final screen may be shown.
type Loader interface {
	BeginLoading(done func())
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(done func())

// BeginLoading calls f(done).
func (f LoaderFunc) BeginLoading(done func()) { f(done) }

// Controller owns the state of one quiz session.
type Controller struct {
	questions []model.Question
	loader    Loader

	phase     model.Phase
	index     int
	selected  int // -1 when nothing is selected
	correct   bool
	completed []int
}

// New returns a controller in the not-started phase. The question set is
// read-only from here on; callers validate it with Validate beforehand.
func New(questions []model.Question, loader Loader) *Controller {
	return &Controller{
		questions: questions,
		loader:    loader,
		phase:     model.PhaseNotStarted,
		selected:  -1,
	}
}

// Restore rebuilds a controller from a snapshot. Inconsistent snapshots are
// clamped to the nearest valid state rather than rejected. A restored loading
// phase stays idle until ResumeLoading is called.
func Restore(questions []model.Question, st model.SessionState, loader Loader) *Controller {
	c := New(questions, loader)
	n := len(questions)
	if n == 0 {
		return c
	}

	switch st.Phase {
	case model.PhaseAnswering, model.PhaseFeedback, model.PhaseLoading, model.PhaseFinal:
		c.phase = st.Phase
	default:
		return c
	}
	c.index = min(max(st.QuestionIndex, 0), n-1)

	for _, i := range st.Completed {
		if i >= 0 && i <= c.index && !slices.Contains(c.completed, i) {
			c.completed = append(c.completed, i)
		}
	}

	if c.phase == model.PhaseFeedback {
		q := questions[c.index]
		if st.Selected == nil || *st.Selected < 0 || *st.Selected >= len(q.Options) {
			c.phase = model.PhaseAnswering
		} else {
			c.selected = *st.Selected
			c.correct = c.selected == q.CorrectOption
		}
	}
	if (c.phase == model.PhaseLoading || c.phase == model.PhaseFinal) && !c.IsTerminal() {
		c.phase = model.PhaseAnswering
	}
	return c
}

// ResumeLoading hands a restored loading phase to the loader again.
func (c *Controller) ResumeLoading() bool {
	if c.phase != model.PhaseLoading || c.loader == nil {
		return false
	}
	c.loader.BeginLoading(func() { c.CompleteLoading() })
	return true
}

// Start moves a fresh session to the first question.
func (c *Controller) Start() bool {
	if c.phase != model.PhaseNotStarted || len(c.questions) == 0 {
		return false
	}
	c.index = 0
	c.selected = -1
	c.correct = false
	c.completed = nil
	c.phase = model.PhaseAnswering
	return true
}

// SelectAnswer records the first selection for the current question attempt.
// Later selections, out-of-range indexes and calls outside the answering phase
// are ignored.
func (c *Controller) SelectAnswer(option int) bool {
	if c.phase != model.PhaseAnswering || c.selected >= 0 {
		return false
	}
	q, ok := c.Current()
	if !ok || option < 0 || option >= len(q.Options) {
		return false
	}
	c.selected = option
	c.correct = option == q.CorrectOption
	c.phase = model.PhaseFeedback
	return true
}

// Retry clears a wrong answer so the same question can be attempted again.
func (c *Controller) Retry() bool {
	if c.phase != model.PhaseFeedback || c.correct {
		return false
	}
	c.clearSelection()
	c.phase = model.PhaseAnswering
	return true
}

// Advance leaves a correct feedback: to the next question, or to the loading
// phase after the terminal one. A wrong feedback never advances.
func (c *Controller) Advance() bool {
	if c.phase != model.PhaseFeedback || !c.correct {
		return false
	}
	if !slices.Contains(c.completed, c.index) {
		c.completed = append(c.completed, c.index)
	}
	c.clearSelection()

	if !c.IsTerminal() {
		c.index++
		c.phase = model.PhaseAnswering
		return true
	}

	c.phase = model.PhaseLoading
	if c.loader != nil {
		c.loader.BeginLoading(func() { c.CompleteLoading() })
	}
	return true
}

// CompleteLoading enters the final phase. Only the first call after Advance
// into loading has an effect.
func (c *Controller) CompleteLoading() bool {
	if c.phase != model.PhaseLoading {
		return false
	}
	c.phase = model.PhaseFinal
	return true
}

func (c *Controller) clearSelection() {
	c.selected = -1
	c.correct = false
}

// Phase returns the current phase.
func (c *Controller) Phase() model.Phase { return c.phase }

// Total returns the number of questions.
func (c *Controller) Total() int { return len(c.questions) }

// QuestionIndex returns the index of the current question.
func (c *Controller) QuestionIndex() int { return c.index }

// Current returns the question being asked. ok is false only for an empty set.
func (c *Controller) Current() (model.Question, bool) {
	if len(c.questions) == 0 {
		return model.Question{}, false
	}
	i := min(max(c.index, 0), len(c.questions)-1)
	return c.questions[i], true
}

// Selected returns the pending selection, if any.
func (c *Controller) Selected() (int, bool) {
	return c.selected, c.selected >= 0
}

// Correct reports whether the pending selection is the right answer.
func (c *Controller) Correct() bool {
	return c.selected >= 0 && c.correct
}

// Completed returns the indexes answered correctly, in order.
func (c *Controller) Completed() []int {
	return slices.Clone(c.completed)
}

// CompletedCount returns how many questions were answered correctly.
func (c *Controller) CompletedCount() int { return len(c.completed) }

// IsTerminal reports whether the current question is the last one.
func (c *Controller) IsTerminal() bool {
	return len(c.questions) > 0 && c.index == len(c.questions)-1
}

// EvasiveArmed reports whether the terminal question's evasive option should
// currently react to the pointer.
func (c *Controller) EvasiveArmed() bool {
	return c.phase == model.PhaseAnswering && c.IsTerminal() && c.selected < 0
}

// Progress returns the fraction of the quiz shown as done. A confirmed correct
// answer counts before the user advances past it.
func (c *Controller) Progress() float64 {
	if len(c.questions) == 0 {
		return 0
	}
	done := len(c.completed)
	if c.phase == model.PhaseFeedback && c.correct && !slices.Contains(c.completed, c.index) {
		done++
	}
	return min(float64(done)/float64(len(c.questions)), 1)
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() model.SessionState {
	st := model.SessionState{
		Phase:         c.phase,
		QuestionIndex: c.index,
		Correct:       c.Correct(),
		Completed:     c.Completed(),
	}
	if c.selected >= 0 {
		sel := c.selected
		st.Selected = &sel
	}
	if st.Completed == nil {
		st.Completed = []int{}
	}
	return st
}
