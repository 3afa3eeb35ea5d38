package unit

import "github.com/cory-johannsen/skirmish/internal/game/dice"

// Weapon is one weapon profile carried by every model of a unit.
type Weapon struct {
	Name     string
	Range    float64 // 0 means melee
	Attacks  dice.Expression
	Skill    int // BS for ranged weapons, WS for melee
	Strength int
	AP       int
	Damage   dice.Expression
	Effects  Effects
}

// IsMelee reports whether the weapon is used in the Fight phase.
func (w *Weapon) IsMelee() bool { return w.Range <= 0 }

// APPenalty returns the save penalty as a non-negative number. Rosters may
// write AP either as "-1" or "1".
func (w *Weapon) APPenalty() int {
	if w.AP < 0 {
		return -w.AP
	}
	return w.AP
}

// MeanOutput is the expected raw damage per model before hit, wound or save
// rolls. It is used for threat weighting.
func (w *Weapon) MeanOutput() float64 {
	return w.Attacks.Mean() * w.Damage.Mean()
}
