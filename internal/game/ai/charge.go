package ai

import (
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// ChargeStopDistance is how far from its target a successful charge ends.
const ChargeStopDistance = 0.5

// ChargeDecision is a declared charge.
type ChargeDecision struct {
	Target *unit.Unit
	// Distance is the charge roll needed to reach engagement range.
	Distance    float64
	Destination battlefield.Point
	MeleeEV     float64
	ShootEV     float64
}

// ChooseCharge declares a charge when u is free to charge, a target is
// within reach along a clear path, and the expected fight damage beats the
// expected shooting damage. Ties favour staying at range.
func (s *Strategy) ChooseCharge(u *unit.Unit, v *View) (ChargeDecision, bool) {
	st := u.Status
	if u.IsDestroyed() || st.Engaged || st.FellBack || st.Advanced || len(u.MeleeWeapons()) == 0 {
		return ChargeDecision{}, false
	}

	var cands []candidate[ChargeDecision]
	for _, e := range v.EnemiesOf(u) {
		d := u.Position.Distance(e.Position)
		need := d - s.geo.EngagementRange()
		if need <= 0 || need > s.cfg.MaxChargeDistance {
			continue
		}
		dest := u.Position.Towards(e.Position, d-ChargeStopDistance)
		if !s.geo.PathClear(u.Position, dest) {
			continue
		}
		ev := s.expectedDamage(u, u.MeleeWeapons(), e)
		cands = append(cands, candidate[ChargeDecision]{
			option: ChargeDecision{Target: e, Distance: need, Destination: dest, MeleeEV: ev},
			score:  ev,
		})
	}
	choice, ok := best(cands)
	if !ok {
		return ChargeDecision{}, false
	}
	choice.ShootEV = s.ShootingPotential(u, v)
	if choice.MeleeEV <= choice.ShootEV {
		return ChargeDecision{}, false
	}
	return choice, true
}
