package ai

import (
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// MoveKind is the type of a movement decision.
type MoveKind int

const (
	Hold MoveKind = iota
	NormalMove
	Advance
	FallBack
)

func (k MoveKind) String() string {
	switch k {
	case NormalMove:
		return "move"
	case Advance:
		return "advance"
	case FallBack:
		return "fall back"
	default:
		return "hold"
	}
}

// MoveDecision is the movement chosen for one unit.
type MoveDecision struct {
	Kind        MoveKind
	Destination battlefield.Point
	// Toward is the point an Advance heads for once its extra distance is rolled.
	Toward battlefield.Point
	Reason string
}

// Reasons reported with movement decisions.
const (
	ReasonApproach    = "closing to fight"
	ReasonFiringBand  = "moving to firing range"
	ReasonObjective   = "moving to objective"
	ReasonOnObjective = "holding objective"
	ReasonNoLegalMove = "no legal move"
	ReasonNothingToDo = "holding position"
	ReasonDisengage   = "falling back"
)

// approachMargin keeps an approaching unit this far outside engagement range.
const approachMargin = 0.5

// ChooseMove decides the Movement phase action of a unit that is not engaged.
func (s *Strategy) ChooseMove(u *unit.Unit, v *View) MoveDecision {
	hold := MoveDecision{Kind: Hold, Destination: u.Position, Reason: ReasonNothingToDo}
	if u.Chars.Movement <= 0 {
		return hold
	}

	var cands []candidate[MoveDecision]
	attempted := false
	add := func(d MoveDecision, score float64) { cands = append(cands, candidate[MoveDecision]{d, score}) }

	melee := s.meleeFavoured(u, v)
	if e := v.NearestEnemy(u); melee && e != nil {
		step := min(u.Chars.Movement, u.Position.Distance(e.Position)-s.geo.EngagementRange()-approachMargin)
		if step > 0 {
			attempted = true
			if dest, ok := s.fitMove(u, e.Position, step, v, nil); ok {
				add(MoveDecision{Kind: NormalMove, Destination: dest, Reason: ReasonApproach}, 4)
			}
		}
	}

	if d, ok, tried := s.bandMove(u, v, melee); tried {
		attempted = true
		if ok {
			add(d, 3)
		}
	}

	if d, score, ok, tried := s.objectiveMove(u, v); tried {
		attempted = attempted || d.Kind != Hold
		if ok {
			add(d, score)
		}
	}

	add(hold, 0)
	choice, _ := best(cands)
	if choice.Kind == Hold && choice.Reason == ReasonNothingToDo && attempted {
		choice.Reason = ReasonNoLegalMove
	}
	return choice
}

// bandMove moves a shooting unit into the preferred distance band of the
// nearest visible enemy while keeping line of sight to it.
func (s *Strategy) bandMove(u *unit.Unit, v *View, melee bool) (MoveDecision, bool, bool) {
	r := u.MaxRange()
	if melee || r <= 0 {
		return MoveDecision{}, false, false
	}
	var visible []*unit.Unit
	for _, e := range v.EnemiesOf(u) {
		if s.geo.LineOfSight(u.Position, e.Position) {
			visible = append(visible, e)
		}
	}
	target := nearest(u.Position, visible)
	if target == nil {
		return MoveDecision{}, false, false
	}

	near, far := s.cfg.BandNear*r, s.cfg.BandFar*r
	d := u.Position.Distance(target.Position)
	var toward battlefield.Point
	var step float64
	switch {
	case d > far:
		toward, step = target.Position, min(u.Chars.Movement, d-far)
	case d < near:
		toward, step = away(u.Position, target.Position), min(u.Chars.Movement, near-d)
	default:
		return MoveDecision{}, false, false
	}
	keepsSight := func(p battlefield.Point) bool { return s.geo.LineOfSight(p, target.Position) }
	dest, ok := s.fitMove(u, toward, step, v, keepsSight)
	return MoveDecision{Kind: NormalMove, Destination: dest, Reason: ReasonFiringBand}, ok, true
}

// objectiveMove heads for the nearest objective the unit's side does not
// control, or holds when already standing on a contested one.
func (s *Strategy) objectiveMove(u *unit.Unit, v *View) (MoveDecision, float64, bool, bool) {
	var target *ObjectiveState
	bestDist := 0.0
	for i := range v.Objectives {
		o := &v.Objectives[i]
		if o.Controller == u.Player {
			continue
		}
		d := u.Position.Distance(o.Objective.Position)
		if d <= o.Objective.Radius(v.ControlRadius) {
			return MoveDecision{Kind: Hold, Destination: u.Position, Reason: ReasonOnObjective}, 2, true, true
		}
		if target == nil || d < bestDist {
			target, bestDist = o, d
		}
	}
	if target == nil {
		return MoveDecision{}, 0, false, false
	}

	score := 1 + float64(target.Objective.Value)/100
	radius := target.Objective.Radius(v.ControlRadius)
	step := min(u.Chars.Movement, bestDist-radius/2)
	dest, ok := s.fitMove(u, target.Objective.Position, step, v, nil)
	d := MoveDecision{Kind: NormalMove, Destination: dest, Toward: target.Objective.Position, Reason: ReasonObjective}
	if ok && bestDist-radius > u.Chars.Movement && s.ShootingPotential(u, v) == 0 {
		d.Kind = Advance
	}
	return d, score, ok, true
}

// ResolveAdvance extends an Advance decision by the rolled extra distance.
// When no longer move is legal the planned normal destination is kept.
func (s *Strategy) ResolveAdvance(u *unit.Unit, v *View, d MoveDecision, extra float64) MoveDecision {
	remaining := u.Position.Distance(d.Toward)
	radius := 0.0
	for _, o := range v.Objectives {
		if o.Objective.Position == d.Toward {
			radius = o.Objective.Radius(v.ControlRadius)
		}
	}
	step := min(u.Chars.Movement+extra, remaining-radius/2)
	if dest, ok := s.fitMove(u, d.Toward, step, v, nil); ok {
		d.Destination = dest
	}
	return d
}

// ChooseFallBack decides whether an engaged unit retreats. It falls back only
// when its fight output is materially worse than its shooting output and a
// legal retreat exists.
func (s *Strategy) ChooseFallBack(u *unit.Unit, v *View) (MoveDecision, bool) {
	var engaged []*unit.Unit
	for _, e := range v.EnemiesOf(u) {
		if s.geo.Engaged(u.Position, e.Position) {
			engaged = append(engaged, e)
		}
	}
	if len(engaged) == 0 || u.Chars.Movement <= 0 {
		return MoveDecision{}, false
	}

	fight := 0.0
	for _, e := range engaged {
		fight = max(fight, s.expectedDamage(u, u.MeleeWeapons(), e))
	}
	shoot := s.ShootingPotential(u, v)
	if fight >= s.cfg.FallBackFactor*shoot {
		return MoveDecision{}, false
	}

	threat := nearest(u.Position, engaged)
	dest, ok := s.fitMove(u, away(u.Position, threat.Position), u.Chars.Movement, v, nil)
	if !ok {
		return MoveDecision{}, false
	}
	return MoveDecision{Kind: FallBack, Destination: dest, Reason: ReasonDisengage}, true
}
