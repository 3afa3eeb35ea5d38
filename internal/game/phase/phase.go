// Package phase runs the turn structure of a battle: for each game turn,
// player A then player B play Command, Movement, Shooting, Charge and Fight.
package phase

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
)

// Phase is one step of a player-turn.
type Phase int

const (
	Command Phase = iota
	Movement
	Shooting
	Charge
	Fight
)

var phaseNames = [...]string{"command", "movement", "shooting", "charge", "fight"}

func (p Phase) String() string {
	if int(p) >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is the battle's position in the turn structure plus the score.
//
// Invariant: (Turn, Active, Phase) only ever advances.
type State struct {
	Turn        int
	Phase       Phase
	Active      battlefield.PlayerID
	VP          [2]int
	TurnVP      [2]int
	Controllers []battlefield.PlayerID
	Over        bool
	// Tabled is the side that lost all its units, or NoPlayer.
	Tabled battlefield.PlayerID
}

// InvariantError reports a programming defect detected mid-battle. It is
// raised with panic and is never returned as an error.
type InvariantError struct {
	Turn  int
	Phase Phase
	Msg   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("battle invariant violated (turn %d, %s phase): %s", e.Turn, e.Phase, e.Msg)
}
