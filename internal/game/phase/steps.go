package phase

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// command resets the active player's turn flags, takes battle-shock tests
// and scores every objective for whichever side controls it.
func (c *Controller) command() {
	active := c.living(c.state.Active)
	for _, u := range active {
		u.ResetTurnFlags()
		u.Status.BattleShocked = false
	}
	for _, u := range active {
		if !u.AtHalfStrength() {
			continue
		}
		roll := c.cfg.Roller.Roll(twoD6, "battle-shock")
		if roll.Exceeds(u.Chars.Leadership) {
			u.Status.BattleShocked = true
			c.emit(event.Command, fmt.Sprintf("%s is battle-shocked (rolled %d against leadership %d)", u.Name, roll.Total(), u.Chars.Leadership),
				event.Deltas{}, u.ID)
			continue
		}
		c.emit(event.Command, fmt.Sprintf("%s passes battle-shock (rolled %d against leadership %d)", u.Name, roll.Total(), u.Chars.Leadership),
			event.Deltas{}, u.ID)
	}

	awards := c.cfg.Scorer.Score(c.cfg.Battlefield.Objectives, c.state.Controllers, c.cfg.Units)
	for _, a := range awards {
		if a.VP > 0 {
			c.state.VP[a.Controller] += a.VP
			c.state.TurnVP[a.Controller] += a.VP
		}
		if a.VP == 0 && !a.Changed() {
			continue
		}
		c.emitFor(a.Controller, event.Score, fmt.Sprintf("objective %s held by %s (control %d vs %d), +%d VP",
			a.ObjectiveID, a.Controller, a.Control[battlefield.PlayerA], a.Control[battlefield.PlayerB], a.VP),
			event.Deltas{VP: a.VP}, a.ObjectiveID)
	}
}

func (c *Controller) movement() {
	strat := c.cfg.Strategy
	for _, u := range c.living(c.state.Active) {
		if u.Status.BattleShocked {
			c.emit(event.Move, fmt.Sprintf("%s is battle-shocked and cannot move", u.Name), event.Deltas{}, u.ID)
			continue
		}
		v := c.view()
		if u.Status.Engaged {
			d, ok := strat.ChooseFallBack(u, v)
			if !ok {
				continue
			}
			from := u.Position
			c.moveUnit(u, d.Destination)
			u.Status.FellBack = true
			c.emit(event.Move, fmt.Sprintf("%s falls back from %s to %s", u.Name, from, u.Position), event.Deltas{}, u.ID)
			c.refreshEngagement()
			continue
		}

		d := strat.ChooseMove(u, v)
		if d.Kind == ai.Advance {
			extra := c.cfg.Roller.Roll(oneD6, "advance").Total()
			d = strat.ResolveAdvance(u, v, d, float64(extra))
			u.Status.Advanced = true
		}
		if d.Kind == ai.Hold {
			c.emit(event.Move, fmt.Sprintf("%s holds: %s", u.Name, d.Reason), event.Deltas{}, u.ID)
			continue
		}
		from := u.Position
		c.moveUnit(u, d.Destination)
		c.emit(event.Move, fmt.Sprintf("%s %s from %s to %s (%s)", u.Name, verb(d.Kind), from, u.Position, d.Reason),
			event.Deltas{}, u.ID)
	}
	c.refreshEngagement()
}

func verb(k ai.MoveKind) string {
	if k == ai.Advance {
		return "advances"
	}
	return "moves"
}

func (c *Controller) shooting() {
	for _, u := range c.living(c.state.Active) {
		if u.IsDestroyed() || u.Status.FellBack {
			continue
		}
		var weapons []*unit.Weapon
		for _, w := range u.RangedWeapons() {
			if u.Status.Advanced && w.Effects.Has(unit.Heavy) {
				continue
			}
			weapons = append(weapons, w)
		}
		if len(weapons) == 0 {
			continue
		}

		fired := false
		for _, w := range weapons {
			target := c.cfg.Strategy.SelectTarget(u, w, c.view())
			if target == nil {
				continue
			}
			fired = true
			cover := c.cfg.Geometry.InCover(target.Position, u.Position)
			res := combat.Resolve(combat.Attack{Attacker: u, Weapon: w, Defender: target, Cover: cover}, c.cfg.Policy, c.cfg.Roller.Source())
			c.emitAttack(event.Shoot, u, target, res, cover)
		}
		u.Status.HasShot = fired
		if !fired {
			c.emit(event.Shoot, fmt.Sprintf("%s has no valid target", u.Name), event.Deltas{}, u.ID)
		}
	}
	c.refreshEngagement()
}

func (c *Controller) charge() {
	for _, u := range c.living(c.state.Active) {
		d, ok := c.cfg.Strategy.ChooseCharge(u, c.view())
		if !ok {
			continue
		}
		roll := c.cfg.Roller.Roll(twoD6, "charge").Total()
		if float64(roll) < d.Distance {
			c.emit(event.Charge, fmt.Sprintf("%s fails to charge %s (rolled %d, needed %.1f)", u.Name, d.Target.Name, roll, d.Distance),
				event.Deltas{}, u.ID, d.Target.ID)
			continue
		}
		c.moveUnit(u, d.Destination)
		u.Status.Charged = true
		c.refreshEngagement()
		c.emit(event.Charge, fmt.Sprintf("%s charges %s (rolled %d, needed %.1f)", u.Name, d.Target.Name, roll, d.Distance),
			event.Deltas{}, u.ID, d.Target.ID)
	}
}

// fight lets every engaged unit of the active player, then of the opponent,
// fight once.
func (c *Controller) fight() {
	var fighters []*unit.Unit
	for _, p := range []battlefield.PlayerID{c.state.Active, c.state.Active.Opponent()} {
		for _, u := range c.living(p) {
			u.Status.HasFought = false
			if u.Status.Engaged {
				fighters = append(fighters, u)
			}
		}
	}

	for _, u := range fighters {
		if u.IsDestroyed() || u.Status.HasFought {
			continue
		}
		fought := false
		for _, w := range u.MeleeWeapons() {
			target := c.cfg.Strategy.SelectTarget(u, w, c.view())
			if target == nil {
				continue
			}
			fought = true
			res := combat.Resolve(combat.Attack{Attacker: u, Weapon: w, Defender: target}, c.cfg.Policy, c.cfg.Roller.Source())
			c.emitAttack(event.Fight, u, target, res, false)
		}
		u.Status.HasFought = true
		if !fought {
			c.emit(event.Fight, fmt.Sprintf("%s has no valid target", u.Name), event.Deltas{}, u.ID)
		}
		c.refreshEngagement()
	}
}

func (c *Controller) emitAttack(cat event.Category, u, target *unit.Unit, res combat.AttackResult, cover bool) {
	desc := fmt.Sprintf("%s attacks %s with %s: %d attacks, %d hits, %d wounds, %d failed saves, %d damage, %d models slain",
		u.Name, target.Name, res.Weapon, res.Attacks, res.Hits, res.Wounds, res.FailedSaves, res.Damage, res.ModelsKilled)
	if res.MortalWounds > 0 {
		desc += fmt.Sprintf(", %d mortal wounds", res.MortalWounds)
	}
	if cover {
		desc += ", target in cover"
	}
	if res.Destroyed {
		desc += fmt.Sprintf("; %s is destroyed", target.Name)
	}
	c.emit(cat, desc, event.Deltas{Damage: res.Damage, ModelsKilled: res.ModelsKilled}, u.ID, target.ID)
}
