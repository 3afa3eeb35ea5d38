package ai

import (
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// Targets returns the enemies weapon w of u can attack right now: within
// range and line of sight for ranged weapons, within engagement range for
// melee weapons.
func (s *Strategy) Targets(u *unit.Unit, w *unit.Weapon, v *View) []*unit.Unit {
	var out []*unit.Unit
	for _, e := range v.EnemiesOf(u) {
		if w.IsMelee() {
			if s.geo.Engaged(u.Position, e.Position) {
				out = append(out, e)
			}
			continue
		}
		if s.geo.Distance(u.Position, e.Position) <= w.Range && s.geo.LineOfSight(u.Position, e.Position) {
			out = append(out, e)
		}
	}
	return out
}

type targetScore struct {
	target     *unit.Unit
	finishable bool
	remaining  int
	threat     float64
	distance   float64
}

// before orders targets: units this attack can finish off first (fewest
// wounds left), then higher threat, then nearer, then by ID.
func (a targetScore) before(b targetScore) bool {
	if a.finishable != b.finishable {
		return a.finishable
	}
	if a.finishable && a.remaining != b.remaining {
		return a.remaining < b.remaining
	}
	if a.threat != b.threat {
		return a.threat > b.threat
	}
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.target.ID < b.target.ID
}

func (s *Strategy) scoreTarget(u *unit.Unit, ws []*unit.Weapon, t *unit.Unit) targetScore {
	remaining := t.RemainingWounds()
	return targetScore{
		target:     t,
		finishable: float64(remaining) <= s.expectedDamage(u, ws, t),
		remaining:  remaining,
		threat:     s.threat.Threat(t),
		distance:   s.geo.Distance(u.Position, t.Position),
	}
}

// SelectTarget picks the target for weapon w of u, or nil when none is valid.
func (s *Strategy) SelectTarget(u *unit.Unit, w *unit.Weapon, v *View) *unit.Unit {
	return s.pick(u, []*unit.Weapon{w}, s.Targets(u, w, v))
}

func (s *Strategy) pick(u *unit.Unit, ws []*unit.Weapon, targets []*unit.Unit) *unit.Unit {
	var top *targetScore
	for _, t := range targets {
		sc := s.scoreTarget(u, ws, t)
		if top == nil || sc.before(*top) {
			top = &sc
		}
	}
	if top == nil {
		return nil
	}
	return top.target
}
