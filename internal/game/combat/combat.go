// Package combat resolves attacks between battle units: hit, wound, save and
// damage rolls, plus the analytic expectations the strategy engine plans with.
//
// Effects are always applied in the same order: reroll, modifier, wound
// table, save, damage.
package combat

// Policy holds the rule options that differ between rule sets.
type Policy struct {
	// SpillExcessDamage carries damage beyond a model's remaining wounds on to
	// the next model. When false the excess is discarded.
	SpillExcessDamage bool
}

// maxHitModifier bounds the net modifier applied to a hit roll.
const maxHitModifier = 1

// HitThreshold returns the roll needed to hit with skill under the net
// modifier mod.
//
// Postcondition: the result is never below 2.
func HitThreshold(skill, mod int) int {
	mod = min(max(mod, -maxHitModifier), maxHitModifier)
	return max(skill-mod, 2)
}

// WoundThreshold returns the roll needed to wound toughness with strength.
func WoundThreshold(strength, toughness int) int {
	switch {
	case strength >= 2*toughness:
		return 2
	case strength > toughness:
		return 3
	case strength == toughness:
		return 4
	case 2*strength > toughness:
		return 5
	default:
		return 6
	}
}

// SaveThreshold returns the roll needed to save. A result above 6 means no
// save is possible.
func SaveThreshold(save, invulnerable, apPenalty int, cover bool) int {
	best := save + apPenalty
	if invulnerable > 0 && invulnerable < best {
		best = invulnerable
	}
	if cover {
		best--
	}
	return max(best, 2)
}

// succeeds applies the universal roll rules: a natural 1 always fails and a
// natural 6 always succeeds.
func succeeds(roll, threshold int) bool {
	if roll == 1 {
		return false
	}
	return roll == 6 || roll >= threshold
}

// saved reports whether a save roll succeeds. Unlike hit and wound rolls an
// impossible save cannot be rescued by a natural 6.
func saved(roll, threshold int) bool {
	return threshold <= 6 && roll != 1 && roll >= threshold
}
