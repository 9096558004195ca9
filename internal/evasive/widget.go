package evasive

import "time"

// Widget is one evasive answer option. It is not safe for concurrent use.
type Widget struct {
	Option int

	params   Params
	onSelect func(option int)
	now      func() time.Time

	center        Vec
	displacement  Vec
	cooldownUntil time.Time
	armed         bool
}

// NewWidget returns an unarmed widget for the given option index. onSelect is
// called on every click, displaced or not.
func NewWidget(option int, p Params, onSelect func(option int)) *Widget {
	return &Widget{
		Option:   option,
		params:   p.Normalize(),
		onSelect: onSelect,
		now:      time.Now,
	}
}

// SetCenter updates the rest position, e.g. after a layout change.
func (w *Widget) SetCenter(c Vec) { w.center = c }

// Center returns the rest position.
func (w *Widget) Center() Vec { return w.center }

// SetArmed switches pointer reactions on or off. Disarming puts the widget
// back at rest and clears the cooldown.
func (w *Widget) SetArmed(armed bool) {
	if w.armed == armed {
		return
	}
	w.armed = armed
	if !armed {
		w.displacement = Vec{}
		w.cooldownUntil = time.Time{}
	}
}

// Armed reports whether the widget reacts to the pointer.
func (w *Widget) Armed() bool { return w.armed }

// PointerMoved feeds one pointer position and returns the offset to draw at.
func (w *Widget) PointerMoved(pointer Vec) Vec {
	w.displacement, w.cooldownUntil = ComputeDisplacement(
		w.params, pointer, w.center, w.armed, w.displacement, w.cooldownUntil, w.now(),
	)
	return w.displacement
}

// Displacement returns the current offset from rest.
func (w *Widget) Displacement() Vec { return w.displacement }

// Position returns where the widget is drawn.
func (w *Widget) Position() Vec { return w.center.Add(w.displacement) }

// Click reports a click on the widget to the select callback.
func (w *Widget) Click() {
	if w.onSelect != nil {
		w.onSelect(w.Option)
	}
}
