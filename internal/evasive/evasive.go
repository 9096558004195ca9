// Package evasive computes where a pointer-shy target should be drawn.
//
// All coordinates share one plane (screen pixels for the browser, cells for
// the terminal). Nothing here touches a rendering surface.
package evasive

import (
	"math"
	"time"
)

// Vec is a point or offset in the plane.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(k float64) Vec { return Vec{v.X * k, v.Y * k} }
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

// Params tunes the repelling rule.
type Params struct {
	// ActivationRadius is the distance under which the target flees.
	ActivationRadius float64
	// ReleaseRadius is the distance from which the target may return to rest.
	ReleaseRadius float64
	// MaxDisplacement caps how far from rest the target is ever drawn.
	MaxDisplacement float64
	// Gain scales the linear falloff (ActivationRadius - distance).
	Gain float64
	// Cooldown holds an evaded position after the pointer leaves range.
	Cooldown time.Duration
}

// DefaultParams are tuned for a browser viewport in CSS pixels.
func DefaultParams() Params {
	return Params{
		ActivationRadius: 150,
		ReleaseRadius:    200,
		MaxDisplacement:  280,
		Gain:             1.5,
		Cooldown:         500 * time.Millisecond,
	}
}

// Normalize fills unset or inconsistent fields from the defaults.
func (p Params) Normalize() Params {
	def := DefaultParams()
	if p.ActivationRadius <= 0 {
		p.ActivationRadius = def.ActivationRadius
	}
	if p.ReleaseRadius < p.ActivationRadius {
		p.ReleaseRadius = p.ActivationRadius
	}
	if p.MaxDisplacement <= 0 {
		p.MaxDisplacement = def.MaxDisplacement
	}
	if p.Gain <= 0 {
		p.Gain = def.Gain
	}
	if p.Cooldown < 0 {
		p.Cooldown = 0
	}
	return p
}

// ComputeDisplacement returns the offset to draw the target at and the new
// cooldown deadline.
//
// center is the target's rest position; the distance is measured from there,
// so the result depends only on where the pointer is, not on the previous
// frame, except for the hold band between the two radii and the cooldown.
// When armed is false, prev and cooldownUntil come back unchanged.
func ComputeDisplacement(p Params, pointer, center Vec, armed bool, prev Vec, cooldownUntil, now time.Time) (Vec, time.Time) {
	if !armed {
		return prev, cooldownUntil
	}

	delta := pointer.Sub(center)
	d := delta.Len()

	switch {
	case d < p.ActivationRadius:
		angle := math.Atan2(delta.Y, delta.X)
		mag := (p.ActivationRadius - d) * p.Gain
		mag = min(max(mag, math.SmallestNonzeroFloat64), p.MaxDisplacement)
		away := Vec{-math.Cos(angle), -math.Sin(angle)}
		return away.Scale(mag), now.Add(p.Cooldown)
	case d < p.ReleaseRadius:
		return clamp(prev, p.MaxDisplacement), cooldownUntil
	case now.Before(cooldownUntil):
		return clamp(prev, p.MaxDisplacement), cooldownUntil
	default:
		return Vec{}, cooldownUntil
	}
}

func clamp(v Vec, limit float64) Vec {
	l := v.Len()
	if l <= limit || l == 0 {
		return v
	}
	return v.Scale(limit / l)
}
