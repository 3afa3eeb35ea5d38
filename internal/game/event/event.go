// Package event is the append-only battle log.
package event

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
)

// Category classifies a battle event.
type Category int

const (
	Deploy Category = iota
	Command
	Move
	Shoot
	Charge
	Fight
	Score
)

var categoryNames = [...]string{"deploy", "command", "move", "shoot", "charge", "fight", "score"}

func (c Category) String() string {
	if int(c) >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	for i, n := range categoryNames {
		if strings.EqualFold(n, string(text)) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event category %q", string(text))
}

// Deltas records the state changes an event caused.
type Deltas struct {
	Damage       int `json:"damage,omitempty"`
	ModelsKilled int `json:"models_killed,omitempty"`
	VP           int `json:"vp,omitempty"`
}

// Event is one entry of the battle log.
type Event struct {
	Seq         int                  `json:"seq"`
	Turn        int                  `json:"turn"`
	Phase       string               `json:"phase"`
	Player      battlefield.PlayerID `json:"player"`
	Category    Category             `json:"category"`
	Actors      []string             `json:"actors,omitempty"`
	Description string               `json:"description"`
	Deltas      Deltas               `json:"deltas"`
}

func (e Event) String() string {
	return fmt.Sprintf("T%d %s [%s] %s: %s", e.Turn, e.Player, e.Phase, e.Category, e.Description)
}

// Log is an append-only sequence of events owned by one battle.
type Log struct {
	events []Event
}

// Append stamps e with the next sequence number and records it.
//
// Postcondition: returns the recorded event.
func (l *Log) Append(e Event) Event {
	e.Seq = len(l.events) + 1
	e.Actors = append([]string(nil), e.Actors...)
	l.events = append(l.events, e)
	return e
}

// Len returns the number of recorded events.
func (l *Log) Len() int { return len(l.events) }

// Events returns a copy of the recorded events in order.
func (l *Log) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
