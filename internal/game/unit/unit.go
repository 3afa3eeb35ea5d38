// Package unit models the units taking part in a battle: their
// characteristics, weapons, ability effects, per-model wounds and status.
package unit

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
)

// Characteristics is a unit's statline. Save values are roll thresholds
// (3 means 3+); an InvulnerableSave of 0 means none.
type Characteristics struct {
	Movement         float64
	Toughness        int
	Save             int
	InvulnerableSave int
	Leadership       int
	ObjectiveControl int
}

// Status holds the per-battle flags of a unit.
type Status struct {
	Advanced      bool
	FellBack      bool
	Engaged       bool
	Destroyed     bool
	BattleShocked bool
	Charged       bool
	HasShot       bool
	HasFought     bool
}

// Unit is the mutable battle state of one roster entry. A Unit belongs to a
// single battle and is never shared between battles.
//
// Invariant: every element of Wounds is in [1, WoundsPerModel]; Destroyed iff
// len(Wounds) == 0.
type Unit struct {
	ID             string
	Name           string
	Player         battlefield.PlayerID
	Position       battlefield.Point
	Chars          Characteristics
	WoundsPerModel int
	StartingModels int

	// Wounds holds the remaining wounds of each surviving model. Damage is
	// always allocated to Wounds[0].
	Wounds   []int
	Weapons  []Weapon
	Effects  Effects
	Points   int
	Keywords []string
	Status   Status
}

// IsDestroyed reports whether the unit has no models left.
func (u *Unit) IsDestroyed() bool { return u.Status.Destroyed }

// ModelsRemaining returns the number of surviving models.
func (u *Unit) ModelsRemaining() int { return len(u.Wounds) }

// RemainingWounds returns the total wounds left across all models.
func (u *Unit) RemainingWounds() int {
	total := 0
	for _, w := range u.Wounds {
		total += w
	}
	return total
}

// AtHalfStrength reports whether half or fewer of the starting models remain.
func (u *Unit) AtHalfStrength() bool {
	return !u.IsDestroyed() && u.ModelsRemaining()*2 <= u.StartingModels
}

// ControlValue returns the unit's contribution to objective control.
func (u *Unit) ControlValue() int {
	if u.IsDestroyed() || u.Status.BattleShocked {
		return 0
	}
	return u.Chars.ObjectiveControl * u.ModelsRemaining()
}

// SurvivingPoints returns the unit's points cost, or 0 once it is destroyed.
func (u *Unit) SurvivingPoints() int {
	if u.IsDestroyed() {
		return 0
	}
	return u.Points
}

// HasKeyword reports whether the unit carries kw.
func (u *Unit) HasKeyword(kw string) bool {
	for _, k := range u.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

// IsCharacter reports whether the unit is a character.
func (u *Unit) IsCharacter() bool {
	return u.Effects.Has(Character) || u.HasKeyword("character")
}

// RangedWeapons returns the unit's ranged weapons.
func (u *Unit) RangedWeapons() []*Weapon {
	return u.weapons(false)
}

// MeleeWeapons returns the unit's melee weapons.
func (u *Unit) MeleeWeapons() []*Weapon {
	return u.weapons(true)
}

func (u *Unit) weapons(melee bool) []*Weapon {
	var out []*Weapon
	for i := range u.Weapons {
		if u.Weapons[i].IsMelee() == melee {
			out = append(out, &u.Weapons[i])
		}
	}
	return out
}

// MaxRange returns the longest range among the ranged weapons, or 0.
func (u *Unit) MaxRange() float64 {
	r := 0.0
	for _, w := range u.RangedWeapons() {
		r = max(r, w.Range)
	}
	return r
}

// ApplyDamage allocates amount damage to the current model. When the model
// dies, excess damage is discarded unless spill is set, in which case it
// carries on to the next model.
//
// Postcondition: returns the number of models removed.
func (u *Unit) ApplyDamage(amount int, spill bool) int {
	killed := 0
	for amount > 0 && len(u.Wounds) > 0 {
		if amount < u.Wounds[0] {
			u.Wounds[0] -= amount
			break
		}
		amount -= u.Wounds[0]
		u.Wounds = u.Wounds[1:]
		killed++
		if !spill {
			break
		}
	}
	if len(u.Wounds) == 0 {
		u.Status.Destroyed = true
		u.Status.Engaged = false
	}
	return killed
}

// ResetTurnFlags clears the flags that last for one player-turn.
func (u *Unit) ResetTurnFlags() {
	u.Status.Advanced = false
	u.Status.FellBack = false
	u.Status.Charged = false
	u.Status.HasShot = false
	u.Status.HasFought = false
}

// CheckInvariants returns an error describing the first violated invariant.
func (u *Unit) CheckInvariants(bf *battlefield.Battlefield) error {
	for i, w := range u.Wounds {
		if w <= 0 || w > u.WoundsPerModel {
			return fmt.Errorf("unit %q model %d has %d wounds (max %d)", u.ID, i, w, u.WoundsPerModel)
		}
	}
	if u.Status.Destroyed != (len(u.Wounds) == 0) {
		return fmt.Errorf("unit %q destroyed flag %t with %d models", u.ID, u.Status.Destroyed, len(u.Wounds))
	}
	if len(u.Wounds) > u.StartingModels {
		return fmt.Errorf("unit %q has %d models, started with %d", u.ID, len(u.Wounds), u.StartingModels)
	}
	if bf != nil && !u.IsDestroyed() && !bf.InBounds(u.Position) {
		return fmt.Errorf("unit %q at %s is outside the battlefield", u.ID, u.Position)
	}
	return nil
}

// Clone returns a deep copy of the unit.
func (u *Unit) Clone() *Unit {
	c := *u
	c.Wounds = append([]int(nil), u.Wounds...)
	c.Effects = append(Effects(nil), u.Effects...)
	c.Keywords = append([]string(nil), u.Keywords...)
	c.Weapons = make([]Weapon, len(u.Weapons))
	for i, w := range u.Weapons {
		w.Effects = append(Effects(nil), w.Effects...)
		c.Weapons[i] = w
	}
	return &c
}
