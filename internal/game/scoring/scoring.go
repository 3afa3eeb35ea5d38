// Package scoring decides objective control and awards victory points.
package scoring

import (
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// Award is the outcome of scoring one objective.
type Award struct {
	ObjectiveID string
	Control     [2]int
	Previous    battlefield.PlayerID
	Controller  battlefield.PlayerID
	// VP is awarded to Controller; zero on a tie.
	VP int
}

// Changed reports whether control switched hands.
func (a Award) Changed() bool { return a.Previous != a.Controller }

// Scorer sums objective control within each objective's radius.
type Scorer struct {
	defaultRadius float64
}

// NewScorer returns a Scorer. A non-positive radius selects
// battlefield.DefaultControlRadius for objectives that do not set their own.
func NewScorer(radius float64) *Scorer {
	if radius <= 0 {
		radius = battlefield.DefaultControlRadius
	}
	return &Scorer{defaultRadius: radius}
}

// Radius returns the control radius used for objectives without their own.
func (s *Scorer) Radius() float64 { return s.defaultRadius }

// Score evaluates every objective. controllers holds the current controller
// per objective and is updated in place.
//
// Precondition: len(controllers) == len(objectives).
// Postcondition: a player with strictly more control takes the objective and
// its VP; on a tie the controller is unchanged and no VP is awarded.
func (s *Scorer) Score(objectives []battlefield.Objective, controllers []battlefield.PlayerID, units []*unit.Unit) []Award {
	awards := make([]Award, len(objectives))
	for i, o := range objectives {
		a := Award{ObjectiveID: o.ID, Previous: controllers[i], Controller: controllers[i]}
		radius := o.Radius(s.defaultRadius)
		for _, u := range units {
			if u.IsDestroyed() || !u.Player.Valid() {
				continue
			}
			if u.Position.Distance(o.Position) <= radius {
				a.Control[u.Player] += u.ControlValue()
			}
		}
		switch {
		case a.Control[battlefield.PlayerA] > a.Control[battlefield.PlayerB]:
			a.Controller = battlefield.PlayerA
			a.VP = o.Value
		case a.Control[battlefield.PlayerB] > a.Control[battlefield.PlayerA]:
			a.Controller = battlefield.PlayerB
			a.VP = o.Value
		}
		controllers[i] = a.Controller
		awards[i] = a
	}
	return awards
}
