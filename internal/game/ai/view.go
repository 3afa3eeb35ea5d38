// Package ai is the strategy engine: pure decision functions that choose
// movement, shooting targets, charges and fall backs for one unit at a time.
//
// Every decision generates scored candidates and takes the maximum; ties go
// to the candidate generated first, so decisions are fully deterministic.
package ai

import (
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// ObjectiveState pairs an objective with its current controller.
type ObjectiveState struct {
	Objective  battlefield.Objective
	Controller battlefield.PlayerID
}

// View is the read-only snapshot a decision is made against.
//
// Invariant: Units is in stable roster order.
type View struct {
	Units         []*unit.Unit
	Objectives    []ObjectiveState
	ControlRadius float64
}

// EnemiesOf returns the living units opposing u, in roster order.
func (v *View) EnemiesOf(u *unit.Unit) []*unit.Unit {
	var out []*unit.Unit
	for _, o := range v.Units {
		if !o.IsDestroyed() && o.Player != u.Player {
			out = append(out, o)
		}
	}
	return out
}

// AlliesOf returns the living units on u's side, excluding u.
func (v *View) AlliesOf(u *unit.Unit) []*unit.Unit {
	var out []*unit.Unit
	for _, o := range v.Units {
		if !o.IsDestroyed() && o.Player == u.Player && o != u {
			out = append(out, o)
		}
	}
	return out
}

// NearestEnemy returns the closest living enemy of u, ties broken by unit ID,
// or nil when none remain.
func (v *View) NearestEnemy(u *unit.Unit) *unit.Unit {
	return nearest(u.Position, v.EnemiesOf(u))
}

// WeakestEnemy returns the living enemy with the fewest remaining wounds, or nil.
func (v *View) WeakestEnemy(u *unit.Unit) *unit.Unit {
	var weakest *unit.Unit
	for _, e := range v.EnemiesOf(u) {
		if weakest == nil || e.RemainingWounds() < weakest.RemainingWounds() ||
			(e.RemainingWounds() == weakest.RemainingWounds() && e.ID < weakest.ID) {
			weakest = e
		}
	}
	return weakest
}

func nearest(from battlefield.Point, units []*unit.Unit) *unit.Unit {
	var best *unit.Unit
	bestDist := 0.0
	for _, o := range units {
		d := from.Distance(o.Position)
		if best == nil || d < bestDist || (d == bestDist && o.ID < best.ID) {
			best, bestDist = o, d
		}
	}
	return best
}
