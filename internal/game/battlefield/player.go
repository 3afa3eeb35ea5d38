package battlefield

import (
	"fmt"
	"strings"
)

// PlayerID identifies one of the two sides of a battle.
type PlayerID int

const (
	// NoPlayer marks an uncontrolled objective or a drawn battle.
	NoPlayer PlayerID = -1
	PlayerA  PlayerID = 0
	PlayerB  PlayerID = 1
)

// Players lists both sides in turn order.
var Players = [2]PlayerID{PlayerA, PlayerB}

// Opponent returns the other side.
//
// Precondition: p is PlayerA or PlayerB.
func (p PlayerID) Opponent() PlayerID {
	switch p {
	case PlayerA:
		return PlayerB
	case PlayerB:
		return PlayerA
	}
	panic(fmt.Sprintf("battlefield: Opponent called on %d", int(p)))
}

// Valid reports whether p names a side.
func (p PlayerID) Valid() bool { return p == PlayerA || p == PlayerB }

func (p PlayerID) String() string {
	switch p {
	case PlayerA:
		return "A"
	case PlayerB:
		return "B"
	case NoPlayer:
		return "none"
	}
	return fmt.Sprintf("PlayerID(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p PlayerID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PlayerID) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "a":
		*p = PlayerA
	case "b":
		*p = PlayerB
	case "none", "":
		*p = NoPlayer
	default:
		return fmt.Errorf("unknown player %q", string(text))
	}
	return nil
}
