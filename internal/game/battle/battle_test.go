package battle_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

func pt(x, y float64) *battlefield.Point { return &battlefield.Point{X: x, Y: y} }

func strikeForce() *battlefield.Battlefield {
	return &battlefield.Battlefield{
		Name:   "strike force",
		Width:  44,
		Length: 60,
		Terrain: []battlefield.TerrainFeature{
			{ID: "ruin", Category: battlefield.Obscuring, Footprint: battlefield.Rect(battlefield.Point{X: 12, Y: 30}, 6, 4), Height: 5},
			{ID: "crater", Category: battlefield.LightCover, Footprint: battlefield.Circle(battlefield.Point{X: 32, Y: 30}, 3)},
			{ID: "chasm", Category: battlefield.Impassable, Footprint: battlefield.Rect(battlefield.Point{X: 22, Y: 22}, 8, 2)},
		},
		Objectives: []battlefield.Objective{
			{ID: "centre", Position: battlefield.Point{X: 22, Y: 30}, Value: 5},
			{ID: "west", Position: battlefield.Point{X: 6, Y: 30}, Value: 3},
		},
		Deployment: []battlefield.DeploymentZone{
			{Player: battlefield.PlayerA, Regions: []battlefield.Footprint{battlefield.Rect(battlefield.Point{X: 22, Y: 6}, 44, 12)}},
			{Player: battlefield.PlayerB, Regions: []battlefield.Footprint{battlefield.Rect(battlefield.Point{X: 22, Y: 54}, 44, 12)}},
		},
	}
}

func infantry(id string, at *battlefield.Point) unit.Record {
	return unit.Record{
		ID: id, Name: id, Models: 10, Wounds: 1, Movement: 6, Toughness: 4, Save: 3,
		Leadership: 6, ObjectiveControl: 2, Points: 100, Position: at,
		Weapons: []unit.WeaponRecord{
			{Name: "bolt rifle", Range: 24, Attacks: "2", Skill: 3, Strength: 4, AP: -1, Damage: "1"},
			{Name: "close combat weapon", Attacks: "2", Skill: 3, Strength: 4, Damage: "1"},
		},
	}
}

func brutes(id string, at *battlefield.Point) unit.Record {
	return unit.Record{
		ID: id, Name: id, Models: 5, Wounds: 3, Movement: 7, Toughness: 5, Save: 4, InvulnerableSave: 5,
		Leadership: 7, ObjectiveControl: 1, Points: 150, Position: at,
		Effects: []unit.Effect{{Kind: unit.FeelNoPain, Value: 6}},
		Weapons: []unit.WeaponRecord{
			{Name: "choppa", Attacks: "D3+1", Skill: 3, Strength: 6, AP: -1, Damage: "2",
				Effects: []unit.Effect{{Kind: unit.LethalHits}}},
		},
	}
}

func armies() ([]unit.Record, []unit.Record) {
	a := []unit.Record{infantry("intercessors", pt(10, 8)), brutes("a-brutes", nil)}
	b := []unit.Record{infantry("b-rifles", pt(34, 52)), brutes("b-brutes", nil)}
	return a, b
}

func TestRun_Deterministic(t *testing.T) {
	a, b := armies()
	first, err := battle.Run(strikeForce(), a, b, 5, 42, battle.Options{})
	require.NoError(t, err)
	second, err := battle.Run(strikeForce(), a, b, 5, 42, battle.Options{})
	require.NoError(t, err)

	j1, err := json.Marshal(first)
	require.NoError(t, err)
	j2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
	assert.Equal(t, int64(42), first.Seed)
}

func TestRun_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		turns := rapid.IntRange(1, 5).Draw(rt, "turns")
		a, b := armies()
		res, err := battle.Run(strikeForce(), a, b, turns, seed, battle.Options{})
		require.NoError(rt, err)

		assert.LessOrEqual(rt, res.Turns, turns)
		assert.GreaterOrEqual(rt, res.Turns, 1)

		killed := 0
		for _, e := range res.Events {
			killed += e.Deltas.ModelsKilled
		}
		lost := res.ModelsLost()
		assert.Equal(rt, lost[0]+lost[1], killed)

		vp := [2]int{}
		for i, e := range res.Events {
			assert.Equal(rt, i+1, e.Seq)
			if e.Category == event.Score {
				vp[e.Player] += e.Deltas.VP
			}
		}
		assert.Equal(rt, res.VP, vp)

		for _, c := range res.Casualties {
			assert.GreaterOrEqual(rt, c.SurvivingModels, 0)
			assert.LessOrEqual(rt, c.SurvivingModels, c.StartingModels)
			assert.Equal(rt, c.SurvivingModels == 0, c.Destroyed)
		}
		if res.Winner == battlefield.NoPlayer {
			assert.Equal(rt, battle.Draw, res.Decision)
		}
	})
}

func TestRun_AutoDeployment(t *testing.T) {
	a, b := armies()
	res, err := battle.Run(strikeForce(), a, b, 1, 7, battle.Options{})
	require.NoError(t, err)

	deployed := 0
	for _, e := range res.Events {
		if e.Category != event.Deploy {
			continue
		}
		deployed++
		assert.Equal(t, 0, e.Turn)
	}
	assert.Equal(t, 4, deployed)
	assert.Equal(t, event.Deploy, res.Events[0].Category)
	assert.Contains(t, res.Events[0].Description, "intercessors deploys at (10.0, 8.0)")
	assert.Contains(t, res.Events[1].Description, "a-brutes is deployed at")
}

func TestRun_TieBreakOnSurvivingPoints(t *testing.T) {
	bf := strikeForce()
	bf.Objectives = nil
	idle := func(id string, points int, at *battlefield.Point) unit.Record {
		r := infantry(id, at)
		r.Weapons = nil
		r.Points = points
		return r
	}

	res, err := battle.Run(bf, []unit.Record{idle("a", 120, pt(4, 2))}, []unit.Record{idle("b", 90, pt(40, 58))}, 5, 1, battle.Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Turns)
	assert.Equal(t, [2]int{0, 0}, res.VP)
	assert.Equal(t, battlefield.PlayerA, res.Winner)
	assert.Equal(t, battle.SurvivingPoints, res.Decision)
	assert.Equal(t, [2]int{120, 90}, res.SurvivingPoints)

	res, err = battle.Run(bf, []unit.Record{idle("a", 100, pt(4, 2))}, []unit.Record{idle("b", 100, pt(40, 58))}, 5, 1, battle.Options{})
	require.NoError(t, err)
	assert.Equal(t, battlefield.NoPlayer, res.Winner)
	assert.Equal(t, battle.Draw, res.Decision)
	assert.Contains(t, res.Summary(), "draw after 5 turns")
}

func TestRun_VictoryPointsBeatPoints(t *testing.T) {
	bf := strikeForce()
	bf.Objectives = []battlefield.Objective{{ID: "home", Position: battlefield.Point{X: 4, Y: 4}, Value: 2}}
	idle := infantry("a", pt(4, 3))
	idle.Weapons = nil
	idle.Movement = 0
	idle.Points = 10
	rich := infantry("b", pt(40, 58))
	rich.Weapons = nil
	rich.Movement = 0
	rich.Points = 500

	// held through both command phases of each of the three turns
	res, err := battle.Run(bf, []unit.Record{idle}, []unit.Record{rich}, 3, 1, battle.Options{})
	require.NoError(t, err)
	assert.Equal(t, [2]int{12, 0}, res.VP)
	assert.Equal(t, battlefield.PlayerA, res.Winner)
	assert.Equal(t, battle.VictoryPoints, res.Decision)
}

func TestRun_SetupErrors(t *testing.T) {
	a, b := armies()
	setupKind := func(t *testing.T, err error) battle.SetupKind {
		t.Helper()
		var se *battle.SetupError
		require.True(t, errors.As(err, &se), "got %v", err)
		return se.Kind
	}

	t.Run("turn limit", func(t *testing.T) {
		_, err := battle.Run(strikeForce(), a, b, 0, 1, battle.Options{})
		assert.Equal(t, battle.KindParameters, setupKind(t, err))
	})

	t.Run("bad dice notation", func(t *testing.T) {
		bad := infantry("broken", pt(10, 8))
		bad.Weapons[0].Damage = "D6+"
		_, err := battle.Run(strikeForce(), []unit.Record{bad}, b, 5, 1, battle.Options{})
		assert.Equal(t, battle.KindRoster, setupKind(t, err))
		var re *unit.RecordError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "broken", re.UnitID)
		assert.Equal(t, "bolt rifle", re.Weapon)
	})

	t.Run("outside deployment zone", func(t *testing.T) {
		stray := infantry("stray", pt(22, 30))
		_, err := battle.Run(strikeForce(), []unit.Record{stray}, b, 5, 1, battle.Options{})
		assert.Equal(t, battle.KindDeployment, setupKind(t, err))
		assert.Contains(t, err.Error(), "stray")
	})

	t.Run("invalid battlefield", func(t *testing.T) {
		bf := strikeForce()
		bf.Objectives[0].Position = battlefield.Point{X: 50, Y: 30}
		_, err := battle.Run(bf, a, b, 5, 1, battle.Options{})
		assert.Equal(t, battle.KindBattlefield, setupKind(t, err))
		assert.Contains(t, err.Error(), "centre")
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := battle.Run(strikeForce(), a, a, 5, 1, battle.Options{})
		assert.Equal(t, battle.KindRoster, setupKind(t, err))
	})

	t.Run("empty roster", func(t *testing.T) {
		assert.Error(t, battle.Validate(strikeForce(), a, nil))
		assert.NoError(t, battle.Validate(strikeForce(), a, b))
	})

	t.Run("threat scorer", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := battle.Run(strikeForce(), a, b, 5, 1, battle.Options{
			NewThreatScorer: func() (ai.ThreatScorer, error) { return nil, boom },
		})
		assert.Equal(t, battle.KindThreat, setupKind(t, err))
		assert.ErrorIs(t, err, boom)
	})
}

type closingThreat struct {
	ai.DefaultThreat
	closed int
}

func (c *closingThreat) Close() error {
	c.closed++
	return nil
}

func TestRun_ClosesThreatScorer(t *testing.T) {
	a, b := armies()
	scorer := &closingThreat{}
	_, err := battle.Run(strikeForce(), a, b, 2, 3, battle.Options{
		NewThreatScorer: func() (ai.ThreatScorer, error) { return scorer, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, scorer.closed)
}
