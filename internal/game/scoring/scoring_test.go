package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/scoring"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

func at(t require.TestingT, id string, p battlefield.PlayerID, x, y float64, models, oc int) *unit.Unit {
	pos := battlefield.Point{X: x, Y: y}
	u, err := unit.FromRecord(unit.Record{
		ID: id, Models: models, Wounds: 1, Toughness: 4, Save: 4, ObjectiveControl: oc, Position: &pos,
	}, p)
	require.NoError(t, err)
	return u
}

var centre = battlefield.Objective{ID: "centre", Position: battlefield.Point{X: 20, Y: 20}, Value: 5}

func TestScore_MajorityControls(t *testing.T) {
	s := scoring.NewScorer(0)
	controllers := []battlefield.PlayerID{battlefield.NoPlayer}
	units := []*unit.Unit{
		at(t, "a", battlefield.PlayerA, 20, 22, 3, 2),
		at(t, "b", battlefield.PlayerB, 21, 20, 2, 2),
		at(t, "far", battlefield.PlayerB, 20, 30, 10, 2),
	}
	awards := s.Score([]battlefield.Objective{centre}, controllers, units)
	require.Len(t, awards, 1)
	assert.Equal(t, [2]int{6, 4}, awards[0].Control)
	assert.Equal(t, battlefield.PlayerA, awards[0].Controller)
	assert.Equal(t, 5, awards[0].VP)
	assert.True(t, awards[0].Changed())
	assert.Equal(t, battlefield.PlayerA, controllers[0])
}

func TestScore_TieLeavesControllerUnchanged(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		oc := rapid.IntRange(0, 5).Draw(rt, "oc")
		models := rapid.IntRange(1, 5).Draw(rt, "models")
		prev := rapid.SampledFrom([]battlefield.PlayerID{battlefield.NoPlayer, battlefield.PlayerA, battlefield.PlayerB}).Draw(rt, "prev")
		controllers := []battlefield.PlayerID{prev}
		units := []*unit.Unit{
			at(rt, "a", battlefield.PlayerA, 19, 20, models, oc),
			at(rt, "b", battlefield.PlayerB, 21, 20, models, oc),
		}
		awards := scoring.NewScorer(3).Score([]battlefield.Objective{centre}, controllers, units)
		assert.Equal(rt, prev, awards[0].Controller)
		assert.Equal(rt, 0, awards[0].VP)
		assert.Equal(rt, prev, controllers[0])
	})
}

func TestScore_BattleShockedAndDestroyedCountZero(t *testing.T) {
	a := at(t, "a", battlefield.PlayerA, 20, 20, 5, 2)
	b := at(t, "b", battlefield.PlayerB, 20, 21, 1, 1)
	a.Status.BattleShocked = true
	controllers := []battlefield.PlayerID{battlefield.PlayerA}
	awards := scoring.NewScorer(0).Score([]battlefield.Objective{centre}, controllers, []*unit.Unit{a, b})
	assert.Equal(t, battlefield.PlayerB, awards[0].Controller)

	b.ApplyDamage(1, false)
	awards = scoring.NewScorer(0).Score([]battlefield.Objective{centre}, controllers, []*unit.Unit{a, b})
	assert.Equal(t, battlefield.PlayerB, awards[0].Controller, "0-0 tie keeps the previous controller")
	assert.Zero(t, awards[0].VP)
}

func TestScore_ObjectiveRadiusOverride(t *testing.T) {
	wide := centre
	wide.ControlRadius = 6
	u := at(t, "a", battlefield.PlayerA, 20, 25, 1, 1)
	controllers := []battlefield.PlayerID{battlefield.NoPlayer}
	awards := scoring.NewScorer(0).Score([]battlefield.Objective{centre, wide}, append(controllers, battlefield.NoPlayer), []*unit.Unit{u})
	assert.Equal(t, battlefield.NoPlayer, awards[0].Controller)
	assert.Equal(t, battlefield.PlayerA, awards[1].Controller)
	assert.Equal(t, 3.0, scoring.NewScorer(0).Radius())
}
