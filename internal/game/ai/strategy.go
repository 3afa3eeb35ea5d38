package ai

import (
	"math"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/geometry"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// Config tunes the strategy engine.
type Config struct {
	// MaxChargeDistance is the furthest a charge can reach (the 2D6 maximum).
	MaxChargeDistance float64
	// FallBackFactor: an engaged unit falls back when its fight output is
	// below this fraction of its shooting output.
	FallBackFactor float64
	// BandNear and BandFar bound the preferred shooting distance as fractions
	// of the unit's longest weapon range.
	BandNear float64
	BandFar  float64
}

// DefaultConfig returns the standard strategy tuning.
func DefaultConfig() Config {
	return Config{
		MaxChargeDistance: 12,
		FallBackFactor:    0.5,
		BandNear:          0.375,
		BandFar:           0.75,
	}
}

// Strategy makes decisions for units. It holds no battle state and may be
// shared by every unit of a battle.
type Strategy struct {
	geo    *geometry.Service
	threat ThreatScorer
	cfg    Config
}

// New returns a Strategy. A nil threat scorer selects DefaultThreat.
func New(geo *geometry.Service, threat ThreatScorer, cfg Config) *Strategy {
	if threat == nil {
		threat = DefaultThreat{}
	}
	if cfg.MaxChargeDistance <= 0 {
		cfg = DefaultConfig()
	}
	return &Strategy{geo: geo, threat: threat, cfg: cfg}
}

// candidate is a scored option; the generic selection takes the maximum.
type candidate[T any] struct {
	option T
	score  float64
}

// best returns the highest scoring candidate, earliest on ties.
func best[T any](cands []candidate[T]) (T, bool) {
	var zero T
	if len(cands) == 0 {
		return zero, false
	}
	top := cands[0]
	for _, c := range cands[1:] {
		if c.score > top.score {
			top = c
		}
	}
	return top.option, true
}

// expectedDamage is the expected output of all weapons in ws against target.
func (s *Strategy) expectedDamage(u *unit.Unit, ws []*unit.Weapon, target *unit.Unit) float64 {
	cover := s.geo.InCover(target.Position, u.Position)
	total := 0.0
	for _, w := range ws {
		total += combat.ExpectedDamage(combat.Attack{Attacker: u, Weapon: w, Defender: target, Cover: cover && !w.IsMelee()})
	}
	return total
}

// usableRanged returns the ranged weapons u may fire this turn.
func usableRanged(u *unit.Unit) []*unit.Weapon {
	var out []*unit.Weapon
	for _, w := range u.RangedWeapons() {
		if u.Status.Advanced && w.Effects.Has(unit.Heavy) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ShootingPotential is the expected damage u could inflict in a Shooting
// phase from its current position, each weapon against its best target.
func (s *Strategy) ShootingPotential(u *unit.Unit, v *View) float64 {
	total := 0.0
	for _, w := range usableRanged(u) {
		top := 0.0
		for _, t := range s.Targets(u, w, v) {
			top = max(top, s.expectedDamage(u, []*unit.Weapon{w}, t))
		}
		total += top
	}
	return total
}

// meleeFavoured reports whether u expects more from fighting its nearest
// enemy than from shooting it.
func (s *Strategy) meleeFavoured(u *unit.Unit, v *View) bool {
	e := v.NearestEnemy(u)
	if e == nil || len(u.MeleeWeapons()) == 0 {
		return false
	}
	return s.expectedDamage(u, u.MeleeWeapons(), e) > s.expectedDamage(u, usableRanged(u), e)
}

// legalMove reports whether u may end a move at to: the path avoids
// Impassable terrain, stays on the table and ends outside engagement range.
func (s *Strategy) legalMove(u *unit.Unit, to battlefield.Point, v *View) bool {
	if !s.geo.PathClear(u.Position, to) {
		return false
	}
	for _, e := range v.EnemiesOf(u) {
		if s.geo.Engaged(to, e.Position) {
			return false
		}
	}
	return true
}

var (
	moveAngles    = []float64{0, 15, -15, 30, -30, 45, -45}
	moveFractions = []float64{1, 0.75, 0.5, 0.25}
)

// fitMove finds the first legal destination heading from u towards toward
// for up to step inches, trying shorter and re-angled variants in a fixed order.
func (s *Strategy) fitMove(u *unit.Unit, toward battlefield.Point, step float64, v *View, accept func(battlefield.Point) bool) (battlefield.Point, bool) {
	if step <= 0 {
		return u.Position, false
	}
	from := u.Position
	heading := math.Atan2(toward.Y-from.Y, toward.X-from.X)
	for _, deg := range moveAngles {
		a := heading + deg*math.Pi/180
		for _, frac := range moveFractions {
			dest := battlefield.Point{
				X: from.X + math.Cos(a)*step*frac,
				Y: from.Y + math.Sin(a)*step*frac,
			}
			if s.legalMove(u, dest, v) && (accept == nil || accept(dest)) {
				return dest, true
			}
		}
	}
	return from, false
}

// away returns a point beyond from on the line from threat through from.
func away(from, threat battlefield.Point) battlefield.Point {
	if from == threat {
		return battlefield.Point{X: from.X, Y: from.Y + 1}
	}
	return battlefield.Point{X: 2*from.X - threat.X, Y: 2*from.Y - threat.Y}
}
