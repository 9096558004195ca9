package quiz

import (
	"sync"
	"time"
)

// Gate is a Loader driven by a media-finished signal with a fallback timer.
// It calls done at most once, never before the minimum display duration and
// no later than the fallback (when one is set). Gate is safe for concurrent use.
type Gate struct {
	minDisplay time.Duration
	fallback   time.Duration
	now        func() time.Time

	mu      sync.Mutex
	done    func()
	started time.Time
	timer   *time.Timer
	begun   bool
	closed  bool
}

// NewGate returns a gate. A zero fallback disables the timer, leaving Signal
// as the only trigger.
func NewGate(minDisplay, fallback time.Duration) *Gate {
	return &Gate{
		minDisplay: minDisplay,
		fallback:   max(fallback, 0),
		now:        time.Now,
	}
}

// BeginLoading arms the fallback timer. Calls after the first are ignored.
func (g *Gate) BeginLoading(done func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.begun || g.closed {
		return
	}
	g.begun = true
	g.done = done
	g.started = g.now()
	if g.fallback > 0 {
		g.timer = time.AfterFunc(max(g.fallback, g.minDisplay), g.fire)
	}
}

// Signal reports that the loading media finished playing.
func (g *Gate) Signal() {
	g.mu.Lock()
	if !g.begun || g.closed {
		g.mu.Unlock()
		return
	}
	wait := g.minDisplay - g.now().Sub(g.started)
	if wait > 0 {
		if g.timer != nil {
			g.timer.Stop()
		}
		g.timer = time.AfterFunc(wait, g.fire)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	g.fire()
}

// Stop releases the timer without calling done.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// Closed reports whether done has been called or the gate was stopped.
func (g *Gate) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Gate) fire() {
	g.mu.Lock()
	if !g.begun || g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	done := g.done
	g.mu.Unlock()

	if done != nil {
		done()
	}
}
