package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
)

func TestDecide(t *testing.T) {
	none, a, b := battlefield.NoPlayer, battlefield.PlayerA, battlefield.PlayerB
	both := [2]bool{true, true}
	cases := []struct {
		name     string
		tabled   battlefield.PlayerID
		alive    [2]bool
		vp, pts  [2]int
		winner   battlefield.PlayerID
		decision Decision
	}{
		{"tabled side still wins on vp", b, [2]bool{true, false}, [2]int{0, 20}, [2]int{10, 0}, b, VictoryPoints},
		{"survivor leads on vp", b, [2]bool{true, false}, [2]int{6, 3}, [2]int{10, 0}, a, Tabling},
		{"survivor wins on points", a, [2]bool{false, true}, [2]int{4, 4}, [2]int{0, 90}, b, Tabling},
		{"mutual destruction decided by vp", a, [2]bool{}, [2]int{5, 0}, [2]int{}, a, VictoryPoints},
		{"mutual destruction level", a, [2]bool{}, [2]int{5, 5}, [2]int{}, none, Draw},
		{"vp", none, both, [2]int{8, 5}, [2]int{0, 900}, a, VictoryPoints},
		{"points", none, both, [2]int{5, 5}, [2]int{100, 200}, b, SurvivingPoints},
		{"draw", none, both, [2]int{5, 5}, [2]int{100, 100}, none, Draw},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, d := decide(tc.tabled, tc.alive, tc.vp, tc.pts)
			assert.Equal(t, tc.winner, w)
			assert.Equal(t, tc.decision, d)
		})
	}
}

func TestDecision_Text(t *testing.T) {
	for _, d := range []Decision{Draw, Tabling, VictoryPoints, SurvivingPoints} {
		text, err := d.MarshalText()
		assert.NoError(t, err)
		var back Decision
		assert.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, d, back)
	}
	var d Decision
	assert.Error(t, d.UnmarshalText([]byte("forfeit")))
}
