package battle

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/event"
)

// Decision names how the winner of a battle was determined.
type Decision int

const (
	Draw Decision = iota
	Tabling
	VictoryPoints
	SurvivingPoints
)

var decisionNames = [...]string{"draw", "tabling", "victory_points", "surviving_points"}

func (d Decision) String() string {
	if int(d) >= 0 && int(d) < len(decisionNames) {
		return decisionNames[d]
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

func (d Decision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Decision) UnmarshalText(text []byte) error {
	for i, n := range decisionNames {
		if n == string(text) {
			*d = Decision(i)
			return nil
		}
	}
	return fmt.Errorf("unknown decision %q", string(text))
}

// Casualty summarises what happened to one unit.
type Casualty struct {
	UnitID          string               `json:"unit_id"`
	Name            string               `json:"name"`
	Player          battlefield.PlayerID `json:"player"`
	StartingModels  int                  `json:"starting_models"`
	SurvivingModels int                  `json:"surviving_models"`
	Destroyed       bool                 `json:"destroyed"`
	Points          int                  `json:"points"`
}

// Result is the immutable outcome of one battle.
type Result struct {
	Seed            int64                `json:"seed"`
	Winner          battlefield.PlayerID `json:"winner"`
	Decision        Decision             `json:"decision"`
	Turns           int                  `json:"turns"`
	VP              [2]int               `json:"vp"`
	SurvivingPoints [2]int               `json:"surviving_points"`
	Events          []event.Event        `json:"events"`
	Casualties      []Casualty           `json:"casualties"`
}

// ModelsLost returns the models each player lost over the battle.
func (r *Result) ModelsLost() [2]int {
	var lost [2]int
	for _, c := range r.Casualties {
		lost[c.Player] += c.StartingModels - c.SurvivingModels
	}
	return lost
}

// Summary is a one-line description of the outcome.
func (r *Result) Summary() string {
	if r.Winner == battlefield.NoPlayer {
		return fmt.Sprintf("draw after %d turns, VP %d-%d", r.Turns, r.VP[0], r.VP[1])
	}
	return fmt.Sprintf("player %s wins by %s after %d turns, VP %d-%d, surviving points %d-%d",
		r.Winner, r.Decision, r.Turns, r.VP[0], r.VP[1], r.SurvivingPoints[0], r.SurvivingPoints[1])
}

// decide applies the victory rules: VP, then surviving points, otherwise a
// draw. Tabling only ends the battle early; when the surviving side wins it
// is reported as a win by tabling.
func decide(tabled battlefield.PlayerID, alive [2]bool, vp, pts [2]int) (battlefield.PlayerID, Decision) {
	a, b := battlefield.PlayerA, battlefield.PlayerB
	var (
		winner   battlefield.PlayerID
		decision Decision
	)
	switch {
	case vp[a] != vp[b]:
		winner, decision = leader(vp), VictoryPoints
	case pts[a] != pts[b]:
		winner, decision = leader(pts), SurvivingPoints
	default:
		return battlefield.NoPlayer, Draw
	}
	if tabled != battlefield.NoPlayer && winner == tabled.Opponent() && alive[winner] {
		decision = Tabling
	}
	return winner, decision
}

func leader(score [2]int) battlefield.PlayerID {
	if score[battlefield.PlayerA] > score[battlefield.PlayerB] {
		return battlefield.PlayerA
	}
	return battlefield.PlayerB
}
