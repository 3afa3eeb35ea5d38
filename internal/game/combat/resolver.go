package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// Attack describes one weapon's attack sequence.
type Attack struct {
	Attacker *unit.Unit
	Weapon   *unit.Weapon
	Defender *unit.Unit
	// Cover is whether the defender is in cover from the attacker.
	Cover bool
}

// AttackResult summarises one resolved attack sequence.
type AttackResult struct {
	AttackerID   string
	DefenderID   string
	Weapon       string
	Attacks      int
	Hits         int
	Wounds       int
	FailedSaves  int
	MortalWounds int
	// Ignored is the damage negated by feel-no-pain rolls.
	Ignored      int
	Damage       int
	ModelsKilled int
	Destroyed    bool
}

// Resolve rolls a full attack sequence and applies the damage to the defender.
//
// Precondition: attacker and defender are not destroyed; src is the battle's RNG.
// Postcondition: the defender's wounds decrease by exactly result.Damage.
func Resolve(a Attack, policy Policy, src dice.Source) AttackResult {
	w, att, def := a.Weapon, a.Attacker, a.Defender
	res := AttackResult{AttackerID: att.ID, DefenderID: def.ID, Weapon: w.Name}

	has := func(k unit.EffectKind) bool { return w.Effects.Has(k) || att.Effects.Has(k) }
	value := func(k unit.EffectKind) int {
		if e, ok := w.Effects.Find(k); ok {
			return e.Value
		}
		e, _ := att.Effects.Find(k)
		return e.Value
	}

	for i := 0; i < att.ModelsRemaining(); i++ {
		res.Attacks += dice.Total(w.Attacks, src)
	}

	// Hit rolls.
	hitMod := w.Effects.Sum(unit.HitModifier) + att.Effects.Sum(unit.HitModifier) - def.Effects.Sum(unit.ToHitPenalty)
	hitOn := HitThreshold(w.Skill, hitMod)
	autoWounds := 0
	for i := 0; i < res.Attacks; i++ {
		if has(unit.Torrent) {
			res.Hits++
			continue
		}
		roll := rollWithReroll(src, hitOn, has(unit.RerollHit), value(unit.RerollHit) == 1)
		if !succeeds(roll, hitOn) {
			continue
		}
		if roll == 6 && has(unit.LethalHits) {
			autoWounds++
		} else {
			res.Hits++
		}
		if roll == 6 && has(unit.SustainedHits) {
			res.Hits += max(value(unit.SustainedHits), 1)
		}
	}

	// Wound rolls.
	woundOn := WoundThreshold(w.Strength, def.Chars.Toughness)
	for i := 0; i < res.Hits; i++ {
		roll := rollWithReroll(src, woundOn, has(unit.RerollWound), value(unit.RerollWound) == 1)
		if !succeeds(roll, woundOn) {
			continue
		}
		if roll == 6 && has(unit.MortalWounds) {
			res.MortalWounds += max(value(unit.MortalWounds), 1)
			continue
		}
		res.Wounds++
	}
	res.Wounds += autoWounds

	// Saves and damage.
	cover := a.Cover && !has(unit.IgnoreCover)
	saveOn := SaveThreshold(def.Chars.Save, def.Chars.InvulnerableSave, w.APPenalty(), cover)
	before, models := def.RemainingWounds(), def.ModelsRemaining()
	for i := 0; i < res.Wounds && !def.IsDestroyed(); i++ {
		if saved(dice.D6(src), saveOn) {
			continue
		}
		res.FailedSaves++
		dmg := dice.Total(w.Damage, src)
		if def.Effects.Has(unit.HalveDamage) && dmg > 0 {
			dmg = (dmg + 1) / 2
		}
		dmg = feelNoPain(def, dmg, src, &res)
		def.ApplyDamage(dmg, policy.SpillExcessDamage)
	}
	for i := 0; i < res.MortalWounds && !def.IsDestroyed(); i++ {
		def.ApplyDamage(feelNoPain(def, 1, src, &res), true)
	}

	res.Damage = before - def.RemainingWounds()
	res.ModelsKilled = models - def.ModelsRemaining()
	res.Destroyed = def.IsDestroyed()
	return res
}

// rollWithReroll rolls a D6 and rerolls it once when the effect allows.
func rollWithReroll(src dice.Source, threshold int, reroll, onesOnly bool) int {
	roll := dice.D6(src)
	if !reroll || succeeds(roll, threshold) {
		return roll
	}
	if onesOnly && roll != 1 {
		return roll
	}
	return dice.D6(src)
}

func feelNoPain(def *unit.Unit, dmg int, src dice.Source, res *AttackResult) int {
	fnp, ok := def.Effects.Find(unit.FeelNoPain)
	if !ok || fnp.Value < 2 {
		return dmg
	}
	kept := 0
	for i := 0; i < dmg; i++ {
		if dice.D6(src) >= fnp.Value {
			res.Ignored++
			continue
		}
		kept++
	}
	return kept
}
