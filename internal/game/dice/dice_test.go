package dice_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// fixedSource replays a fixed sequence of Intn results.
type fixedSource struct {
	vals []int
	pos  int
}

func (f *fixedSource) Intn(n int) int {
	v := f.vals[f.pos%len(f.vals)] % n
	f.pos++
	return v
}

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2D6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
}

func TestRollResult_String(t *testing.T) {
	cases := map[string]dice.RollResult{
		"2D6+3 [4 5] +3 = 12":   {Expression: "2D6+3", Dice: []int{4, 5}, Modifier: 3},
		"charge: 2D6 [4 5] = 9": {Expression: "2D6", Purpose: "charge", Dice: []int{4, 5}},
		"roll [4] = 4":          {Dice: []int{4}},
		"3 [] = 3":              {Expression: "3", Modifier: 3},
	}
	for want, r := range cases {
		assert.Equal(t, want, r.String())
	}
}

func TestRollResult_Exceeds(t *testing.T) {
	r := dice.RollResult{Expression: "2D6", Dice: []int{3, 4}}
	assert.True(t, r.Exceeds(6))
	assert.False(t, r.Exceeds(7))
}

func TestRollResult_String_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.StringMatching(`[1-9]D6[+-][0-9]`).Draw(rt, "expression")
		rolled := rapid.SliceOfN(rapid.IntRange(1, 6), 1, 10).Draw(rt, "dice")
		modifier := rapid.IntRange(-10, 10).Draw(rt, "modifier")

		r := dice.RollResult{Expression: expr, Dice: rolled, Modifier: modifier}
		s := r.String()
		assert.True(rt, strings.HasPrefix(s, expr))
		assert.True(rt, strings.HasSuffix(s, fmt.Sprintf("= %d", r.Total())))
	})
}

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in                string
		count, sides, mod int
		min, max          int
	}{
		{"3", 0, 0, 3, 3, 3},
		{"D6", 1, 6, 0, 1, 6},
		{"d3", 1, 3, 0, 1, 3},
		{"2D6", 2, 6, 0, 2, 12},
		{"D6+2", 1, 6, 2, 3, 8},
		{"2D6-1", 2, 6, -1, 1, 11},
		{" 2d6+3 ", 2, 6, 3, 5, 15},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.mod, e.Modifier)
			assert.Equal(t, tc.min, e.Min())
			assert.Equal(t, tc.max, e.Max())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"abc", "D", "2D", "0D6", "D1", "D6+", "-2", "xd6", "D6+x"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, in)
	}
	_, err := dice.Parse("   ")
	assert.True(t, errors.Is(err, dice.ErrEmptyExpression))
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("nope") })
	assert.NotPanics(t, func() { dice.MustParse("D3") })
}

func TestExpression_Mean(t *testing.T) {
	assert.InDelta(t, 3.5, dice.MustParse("D6").Mean(), 1e-9)
	assert.InDelta(t, 10.0, dice.MustParse("2D6+3").Mean(), 1e-9)
	assert.InDelta(t, 2.0, dice.MustParse("D3").Mean(), 1e-9)
	assert.InDelta(t, 4.0, dice.Fixed(4).Mean(), 1e-9)
}

func TestExpression_Distribution_SumsToOne(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(0, 4).Draw(rt, "count")
		sides := rapid.SampledFrom([]int{3, 6}).Draw(rt, "sides")
		e := dice.Expression{Raw: "x", Count: count, Sides: sides}
		dist := e.Distribution()
		sum := 0.0
		for _, p := range dist {
			sum += p
		}
		assert.InDelta(rt, 1.0, sum, 1e-9)
		assert.Len(rt, dist, e.Max()-e.Min()+1)
	})
}

func TestRoll_WithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.SampledFrom([]string{"D6", "D3", "2D6", "D6+2", "3D6-1", "5"}).Draw(rt, "expr")
		seed := rapid.Int64().Draw(rt, "seed")
		e := dice.MustParse(expr)
		r := dice.Roll(e, dice.NewSeededSource(seed))
		assert.Len(rt, r.Dice, e.Count)
		assert.GreaterOrEqual(rt, r.Total(), e.Min())
		assert.LessOrEqual(rt, r.Total(), e.Max())
	})
}

func TestRoll_2D6Plus3_Mean(t *testing.T) {
	src := dice.NewSeededSource(42)
	e := dice.MustParse("2D6+3")
	const n = 100000
	sum := 0
	for i := 0; i < n; i++ {
		sum += dice.Roll(e, src).Total()
	}
	assert.InDelta(t, 10.0, float64(sum)/n, 0.05)
}

func TestTotal_FloorsAtZero(t *testing.T) {
	src := &fixedSource{vals: []int{0}}
	assert.Equal(t, 0, dice.Total(dice.MustParse("D3-2"), src))
	assert.Equal(t, 7, dice.Total(dice.Fixed(7), src))
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewSeededSource(7)
	b := dice.NewSeededSource(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Intn(6), b.Intn(6))
	}
	assert.Panics(t, func() { a.Intn(0) })
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
	assert.Panics(t, func() { src.Intn(0) })
}

func TestNewSeed_NonNegative(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, dice.NewSeed(), int64(0))
	}
}

func TestRoller_LogsRoll(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := dice.NewLoggedRoller(&fixedSource{vals: []int{2, 3}}, zap.New(core))
	res := r.Roll(dice.MustParse("2D6"), "charge")
	assert.Equal(t, 7, res.Total())
	assert.Equal(t, "charge", res.Purpose)
	assert.Equal(t, "charge: 2D6 [3 4] = 7", res.String())
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "dice roll", entry.Message)
	assert.Equal(t, "charge", entry.ContextMap()["purpose"])
	assert.EqualValues(t, 7, entry.ContextMap()["total"])
}

func TestRollExpr(t *testing.T) {
	r, err := dice.RollExpr("2d6+3", dice.NewSeededSource(3))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.Total(), 5)
	assert.LessOrEqual(t, r.Total(), 15)

	_, err = dice.RollExpr("two dice", dice.NewSeededSource(3))
	assert.Error(t, err)
}
