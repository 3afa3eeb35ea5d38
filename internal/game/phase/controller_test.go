package phase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/geometry"
	"github.com/cory-johannsen/skirmish/internal/game/phase"
	"github.com/cory-johannsen/skirmish/internal/game/scoring"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

func pt(x, y float64) battlefield.Point { return battlefield.Point{X: x, Y: y} }

func table(objectives ...battlefield.Objective) *battlefield.Battlefield {
	return &battlefield.Battlefield{
		Width: 44, Length: 60, Objectives: objectives,
		Deployment: []battlefield.DeploymentZone{
			{Player: battlefield.PlayerA, Regions: []battlefield.Footprint{battlefield.Rect(pt(22, 6), 44, 12)}},
			{Player: battlefield.PlayerB, Regions: []battlefield.Footprint{battlefield.Rect(pt(22, 54), 44, 12)}},
		},
	}
}

var (
	rifle = unit.WeaponRecord{Name: "rifle", Range: 24, Attacks: "2", Skill: 3, Strength: 4, AP: -1, Damage: "1"}
	blade = unit.WeaponRecord{Name: "blade", Attacks: "3", Skill: 3, Strength: 4, AP: -1, Damage: "1"}
)

func mk(t *testing.T, id string, p battlefield.PlayerID, at battlefield.Point, models int, weapons ...unit.WeaponRecord) *unit.Unit {
	u, err := unit.FromRecord(unit.Record{
		ID: id, Name: id, Models: models, Wounds: 1, Movement: 6, Toughness: 4, Save: 4,
		Leadership: 7, ObjectiveControl: 1, Points: 10 * models, Weapons: weapons, Position: &at,
	}, p)
	require.NoError(t, err)
	return u
}

func build(bf *battlefield.Battlefield, units []*unit.Unit, maxTurns int, seed int64) (*phase.Controller, *event.Log) {
	geo := geometry.NewService(bf, 0)
	log := &event.Log{}
	c := phase.New(phase.Config{
		Battlefield: bf,
		Geometry:    geo,
		Strategy:    ai.New(geo, nil, ai.DefaultConfig()),
		Scorer:      scoring.NewScorer(0),
		Units:       units,
		Roller:      dice.NewLoggedRoller(dice.NewSeededSource(seed), nil),
		Policy:      combat.Policy{},
		MaxTurns:    maxTurns,
		Log:         log,
	})
	return c, log
}

func TestController_PhaseOrder(t *testing.T) {
	units := []*unit.Unit{
		mk(t, "a", battlefield.PlayerA, pt(2, 2), 5),
		mk(t, "b", battlefield.PlayerB, pt(42, 58), 5),
	}
	c, _ := build(table(), units, 2, 1)

	type pos struct {
		turn   int
		active battlefield.PlayerID
		phase  phase.Phase
	}
	var seen []pos
	for !c.Over() {
		s := c.State()
		seen = append(seen, pos{s.Turn, s.Active, s.Phase})
		c.Step()
	}
	require.Len(t, seen, 20)
	assert.Equal(t, pos{1, battlefield.PlayerA, phase.Command}, seen[0])
	assert.Equal(t, pos{1, battlefield.PlayerA, phase.Fight}, seen[4])
	assert.Equal(t, pos{1, battlefield.PlayerB, phase.Command}, seen[5])
	assert.Equal(t, pos{2, battlefield.PlayerA, phase.Command}, seen[10])
	assert.Equal(t, pos{2, battlefield.PlayerB, phase.Fight}, seen[19])
	assert.Equal(t, battlefield.NoPlayer, c.State().Tabled)
}

func TestController_OutOfOrderPanics(t *testing.T) {
	units := []*unit.Unit{
		mk(t, "a", battlefield.PlayerA, pt(2, 2), 1),
		mk(t, "b", battlefield.PlayerB, pt(42, 58), 1),
	}
	c, _ := build(table(), units, 1, 1)
	assert.PanicsWithError(t, "battle invariant violated (turn 1, command phase): phase shooting executed out of order", func() {
		c.Execute(phase.Shooting)
	})
	c.Run()
	assert.Panics(t, func() { c.Step() })
}

func TestController_InvariantViolationPanics(t *testing.T) {
	a := mk(t, "a", battlefield.PlayerA, pt(2, 2), 1)
	b := mk(t, "b", battlefield.PlayerB, pt(42, 58), 1)
	c, _ := build(table(), []*unit.Unit{a, b}, 1, 1)
	a.Wounds[0] = -1
	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(*phase.InvariantError)
		assert.True(t, ok)
	}()
	c.Step()
}

func TestController_TablingEndsBattle(t *testing.T) {
	shooter := rifle
	shooter.Attacks = "20"
	shooter.Skill = 2
	shooter.Strength = 8
	shooter.Damage = "2"
	a := mk(t, "a", battlefield.PlayerA, pt(22, 10), 10, shooter)
	b := mk(t, "b", battlefield.PlayerB, pt(22, 28), 1)
	c, log := build(table(), []*unit.Unit{a, b}, 5, 3)
	c.Run()

	s := c.State()
	assert.True(t, s.Over)
	assert.Equal(t, battlefield.PlayerB, s.Tabled)
	assert.Equal(t, 1, s.Turn)
	assert.True(t, b.IsDestroyed())

	last := log.Events()[log.Len()-1]
	assert.Equal(t, event.Shoot, last.Category)
	assert.Contains(t, last.Description, "is destroyed")
}

func TestController_ChargeAndFight(t *testing.T) {
	a := mk(t, "berserkers", battlefield.PlayerA, pt(22, 20), 10, blade)
	b := mk(t, "gunners", battlefield.PlayerB, pt(22, 23), 3, rifle)
	c, log := build(table(), []*unit.Unit{a, b}, 1, 11)
	for c.State().Phase != phase.Fight {
		c.Step()
	}
	var charged bool
	for _, e := range log.Events() {
		if e.Category == event.Charge && strings.Contains(e.Description, "charges") {
			charged = true
		}
	}
	require.True(t, charged)
	assert.True(t, a.Status.Engaged)
	assert.True(t, a.Status.Charged)
	c.Step()
	fights := 0
	for _, e := range log.Events() {
		if e.Category == event.Fight {
			fights++
			assert.Equal(t, "fight", e.Phase)
		}
	}
	assert.Positive(t, fights)
}

func TestController_ScoresObjectives(t *testing.T) {
	obj := battlefield.Objective{ID: "home", Position: pt(10, 10), Value: 3}
	a := mk(t, "a", battlefield.PlayerA, pt(10, 11), 2)
	b := mk(t, "b", battlefield.PlayerB, pt(40, 58), 1)
	c, log := build(table(obj), []*unit.Unit{a, b}, 1, 1)
	c.Step()

	s := c.State()
	assert.Equal(t, 3, s.VP[battlefield.PlayerA])
	assert.Equal(t, 3, s.TurnVP[battlefield.PlayerA])
	assert.Equal(t, []battlefield.PlayerID{battlefield.PlayerA}, s.Controllers)
	require.Equal(t, 1, log.Len())
	assert.Equal(t, event.Score, log.Events()[0].Category)
	assert.Equal(t, 3, log.Events()[0].Deltas.VP)
}

func TestController_ScoresInOpponentsCommandPhase(t *testing.T) {
	obj := battlefield.Objective{ID: "home", Position: pt(10, 10), Value: 3}
	a := mk(t, "a", battlefield.PlayerA, pt(10, 11), 2)
	a.Chars.Movement = 0
	b := mk(t, "b", battlefield.PlayerB, pt(40, 58), 1)
	b.Chars.Movement = 0
	c, log := build(table(obj), []*unit.Unit{a, b}, 1, 1)
	for range 6 {
		c.Step()
	}

	s := c.State()
	require.Equal(t, battlefield.PlayerB, s.Active)
	require.Equal(t, phase.Movement, s.Phase)
	assert.Equal(t, [2]int{6, 0}, s.VP)
	assert.Equal(t, [2]int{6, 0}, s.TurnVP)

	var scores []event.Event
	for _, e := range log.Events() {
		if e.Category == event.Score {
			scores = append(scores, e)
		}
	}
	require.Len(t, scores, 2)
	assert.Equal(t, battlefield.PlayerA, scores[1].Player)
	assert.Equal(t, "command", scores[1].Phase)
	assert.Equal(t, 3, scores[1].Deltas.VP)
}

func TestController_BattleShock(t *testing.T) {
	obj := battlefield.Objective{ID: "home", Position: pt(10, 10), Value: 3}
	a := mk(t, "a", battlefield.PlayerA, pt(10, 11), 4)
	a.Chars.Leadership = 1
	a.ApplyDamage(1, false)
	a.ApplyDamage(1, false)
	b := mk(t, "b", battlefield.PlayerB, pt(40, 58), 1)
	c, log := build(table(obj), []*unit.Unit{a, b}, 1, 1)
	c.Step()

	assert.True(t, a.Status.BattleShocked)
	assert.Equal(t, 0, c.State().VP[battlefield.PlayerA])
	require.NotZero(t, log.Len())
	assert.Equal(t, event.Command, log.Events()[0].Category)
	assert.Contains(t, log.Events()[0].Description, "battle-shocked")

	before := a.Position
	c.Step()
	assert.Equal(t, before, a.Position)
	last := log.Events()[log.Len()-1]
	assert.Equal(t, event.Move, last.Category)
	assert.Contains(t, last.Description, "a is battle-shocked and cannot move")
}

func TestController_BattleShockTest(t *testing.T) {
	cases := []struct {
		name       string
		lost       int
		leadership int
		tested     bool
		shocked    bool
	}{
		{"above half strength is not tested", 1, 1, false, false},
		{"exactly half strength fails low leadership", 2, 1, true, true},
		{"roll never exceeds leadership 12", 3, 12, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := mk(t, "a", battlefield.PlayerA, pt(10, 11), 4)
			a.Chars.Leadership = tc.leadership
			for range tc.lost {
				a.ApplyDamage(1, false)
			}
			b := mk(t, "b", battlefield.PlayerB, pt(40, 58), 1)
			c, log := build(table(), []*unit.Unit{a, b}, 1, 7)
			c.Step()

			tested := false
			for _, e := range log.Events() {
				if e.Category == event.Command {
					tested = true
				}
			}
			assert.Equal(t, tc.tested, tested)
			assert.Equal(t, tc.shocked, a.Status.BattleShocked)
		})
	}
}

// toShooting builds a static firefight and steps to player A's shooting phase.
func toShooting(t *testing.T, targetAt battlefield.Point, weapons ...unit.WeaponRecord) (*phase.Controller, *event.Log, *unit.Unit) {
	t.Helper()
	a := mk(t, "a", battlefield.PlayerA, pt(22, 10), 1, weapons...)
	a.Chars.Movement = 0
	b := mk(t, "b", battlefield.PlayerB, targetAt, 10)
	b.Chars.Movement = 0
	c, log := build(table(), []*unit.Unit{a, b}, 1, 5)
	for c.State().Phase != phase.Shooting {
		c.Step()
	}
	return c, log, a
}

func shotsFiredBy(log *event.Log, id string) []string {
	var out []string
	for _, e := range log.Events() {
		if e.Category == event.Shoot && len(e.Actors) == 2 && e.Actors[0] == id {
			out = append(out, e.Description)
		}
	}
	return out
}

func TestController_ShootingFiresAtTargetInRange(t *testing.T) {
	c, log, a := toShooting(t, pt(22, 28), rifle)
	c.Step()
	shots := shotsFiredBy(log, "a")
	require.Len(t, shots, 1)
	assert.Contains(t, shots[0], "a attacks b with rifle")
	assert.True(t, a.Status.HasShot)
}

func TestController_FellBackUnitCannotShoot(t *testing.T) {
	c, log, a := toShooting(t, pt(22, 28), rifle)
	a.Status.FellBack = true
	c.Step()
	assert.Empty(t, shotsFiredBy(log, "a"))
	assert.False(t, a.Status.HasShot)
}

func TestController_AdvancedUnitSkipsHeavyWeapons(t *testing.T) {
	lascannon := unit.WeaponRecord{Name: "lascannon", Range: 48, Attacks: "1", Skill: 3, Strength: 12, AP: -3, Damage: "1",
		Effects: []unit.Effect{{Kind: unit.Heavy}}}

	c, log, _ := toShooting(t, pt(22, 28), rifle, lascannon)
	c.Step()
	assert.Len(t, shotsFiredBy(log, "a"), 2)

	c, log, a := toShooting(t, pt(22, 28), rifle, lascannon)
	a.Status.Advanced = true
	c.Step()
	shots := shotsFiredBy(log, "a")
	require.Len(t, shots, 1)
	assert.Contains(t, shots[0], "with rifle")
	assert.NotContains(t, shots[0], "lascannon")
}

func TestController_NoValidTargetIsLogged(t *testing.T) {
	c, log, a := toShooting(t, pt(22, 58), rifle)
	c.Step()
	assert.Empty(t, shotsFiredBy(log, "a"))
	assert.False(t, a.Status.HasShot)
	last := log.Events()[log.Len()-1]
	assert.Equal(t, event.Shoot, last.Category)
	assert.Equal(t, battlefield.PlayerA, last.Player)
	assert.Equal(t, "a has no valid target", last.Description)
	assert.False(t, c.Over())
}

func TestController_DeterministicLog(t *testing.T) {
	run := func() []event.Event {
		units := []*unit.Unit{
			mk(t, "a1", battlefield.PlayerA, pt(10, 8), 5, rifle, blade),
			mk(t, "a2", battlefield.PlayerA, pt(30, 8), 3, blade),
			mk(t, "b1", battlefield.PlayerB, pt(12, 50), 5, rifle, blade),
			mk(t, "b2", battlefield.PlayerB, pt(32, 50), 3, blade),
		}
		c, log := build(table(battlefield.Objective{ID: "mid", Position: pt(22, 30), Value: 5}), units, 5, 99)
		c.Run()
		return log.Events()
	}
	assert.Equal(t, run(), run())
}
