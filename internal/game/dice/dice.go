// Package dice parses dice notation and rolls it against a Source. A battle
// draws every random number from one seeded Source, so its outcome is a pure
// function of the seed.
package dice

import (
	"fmt"
	"strings"
)

// RollResult records one evaluated expression.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string
	// Purpose names the rule the roll was made for, e.g. "charge".
	Purpose  string
	Dice     []int
	Modifier int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// Exceeds reports whether the total is strictly greater than target.
func (r RollResult) Exceeds(target int) bool { return r.Total() > target }

// String renders the roll for event logs:
//
//	"charge: 2D6 [4 5] = 9"
//	"D6+2 [3] +2 = 5"
func (r RollResult) String() string {
	var b strings.Builder
	if r.Purpose != "" {
		b.WriteString(r.Purpose)
		b.WriteString(": ")
	}
	expr := r.Expression
	if expr == "" {
		expr = "roll"
	}
	fmt.Fprintf(&b, "%s %v", expr, r.Dice)
	if r.Modifier != 0 {
		fmt.Fprintf(&b, " %+d", r.Modifier)
	}
	fmt.Fprintf(&b, " = %d", r.Total())
	return b.String()
}

// Source is the randomness provider for dice rolls.
//
// A Source is owned by exactly one battle; implementations need not be safe
// for concurrent use unless documented otherwise.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// D6 rolls a single six-sided die.
func D6(src Source) int {
	return src.Intn(6) + 1
}
