package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// ExpectedDamage returns the mean damage the attack would inflict, without
// rolling. It mirrors Resolve closely enough for planning, not for scoring.
func ExpectedDamage(a Attack) float64 {
	w, att, def := a.Weapon, a.Attacker, a.Defender
	if att.IsDestroyed() || def.IsDestroyed() {
		return 0
	}
	has := func(k unit.EffectKind) bool { return w.Effects.Has(k) || att.Effects.Has(k) }
	value := func(k unit.EffectKind) int {
		if e, ok := w.Effects.Find(k); ok {
			return max(e.Value, 1)
		}
		e, _ := att.Effects.Find(k)
		return max(e.Value, 1)
	}

	attacks := w.Attacks.Mean() * float64(att.ModelsRemaining())

	var hits, autoWounds float64
	if has(unit.Torrent) {
		hits = attacks
	} else {
		hitMod := w.Effects.Sum(unit.HitModifier) + att.Effects.Sum(unit.HitModifier) - def.Effects.Sum(unit.ToHitPenalty)
		hitOn := HitThreshold(w.Skill, hitMod)
		pHit, pCrit := rollOdds(hitOn, has(unit.RerollHit), value(unit.RerollHit) == 1)
		hits = attacks * pHit
		if has(unit.LethalHits) {
			autoWounds = attacks * pCrit
			hits -= autoWounds
		}
		if has(unit.SustainedHits) {
			hits += attacks * pCrit * float64(value(unit.SustainedHits))
		}
	}

	woundOn := WoundThreshold(w.Strength, def.Chars.Toughness)
	pWound, pCritWound := rollOdds(woundOn, has(unit.RerollWound), value(unit.RerollWound) == 1)
	wounds := hits*pWound + autoWounds
	mortals := 0.0
	if has(unit.MortalWounds) {
		wounds -= hits * pCritWound
		mortals = hits * pCritWound * float64(value(unit.MortalWounds))
	}

	cover := a.Cover && !has(unit.IgnoreCover)
	saveOn := SaveThreshold(def.Chars.Save, def.Chars.InvulnerableSave, w.APPenalty(), cover)
	pFail := 1.0
	if saveOn <= 6 {
		pFail = 1 - float64(7-saveOn)/6
	}

	fnpKeep := 1.0
	if fnp, ok := def.Effects.Find(unit.FeelNoPain); ok && fnp.Value >= 2 {
		fnpKeep = 1 - float64(7-min(fnp.Value, 7))/6
	}

	perWound := cappedDamage(w.Damage, def.WoundsPerModel, def.Effects.Has(unit.HalveDamage))
	return (wounds*pFail*perWound + mortals) * fnpKeep
}

// rollOdds returns the chance a D6 roll succeeds against threshold and the
// chance it is a natural 6, both after an optional reroll.
func rollOdds(threshold int, reroll, onesOnly bool) (success, crit float64) {
	success, crit = 1.0/6, 1.0/6
	if threshold < 6 {
		success = float64(7-max(threshold, 2)) / 6
	}
	if !reroll {
		return success, crit
	}
	rerolled := 1 - success
	if onesOnly {
		rerolled = 1.0 / 6
	}
	return success + rerolled*success, crit + rerolled*crit
}

// cappedDamage is the expected damage of one failed save when a single model
// can absorb at most woundsPerModel.
func cappedDamage(expr dice.Expression, woundsPerModel int, halve bool) float64 {
	total := 0.0
	for i, p := range expr.Distribution() {
		d := max(expr.Min()+i, 0)
		if halve && d > 0 {
			d = (d + 1) / 2
		}
		total += p * float64(min(d, woundsPerModel))
	}
	return total
}
