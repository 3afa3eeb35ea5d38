package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyExpression is returned by Parse for blank input.
var ErrEmptyExpression = errors.New("dice: empty expression")

// Expression represents a parsed dice expression ready to be rolled.
//
// A fixed value ("3") has Count == 0 and carries the value in Modifier.
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative)
}

// Fixed returns an Expression that always evaluates to n.
func Fixed(n int) Expression {
	return Expression{Raw: strconv.Itoa(n), Modifier: n}
}

// IsFixed reports whether the expression rolls no dice.
func (e Expression) IsFixed() bool { return e.Count == 0 }

// Min returns the smallest total the expression can produce.
func (e Expression) Min() int { return e.Count + e.Modifier }

// Max returns the largest total the expression can produce.
func (e Expression) Max() int { return e.Count*e.Sides + e.Modifier }

// Mean returns the expected total of the expression.
func (e Expression) Mean() float64 {
	return float64(e.Count)*float64(e.Sides+1)/2 + float64(e.Modifier)
}

// Distribution returns the probability of every total the expression can
// produce, indexed by total - Min().
func (e Expression) Distribution() []float64 {
	dist := []float64{1}
	for i := 0; i < e.Count; i++ {
		next := make([]float64, len(dist)+e.Sides-1)
		for j, p := range dist {
			for face := 0; face < e.Sides; face++ {
				next[j+face] += p / float64(e.Sides)
			}
		}
		dist = next
	}
	return dist
}

func (e Expression) String() string { return e.Raw }

// Parse parses a dice expression string into an Expression.
// Supported forms: "3", "D6", "d3", "2D6", "D6+2", "2D6-1".
//
// Postcondition: Returns an Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Expression{}, ErrEmptyExpression
	}
	s := strings.ToLower(raw)

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid fixed value %q: %w", raw, err)
		}
		if n < 0 {
			return Expression{}, fmt.Errorf("dice: fixed value %q must not be negative", raw)
		}
		return Expression{Raw: raw, Modifier: n}, nil
	}

	// Count defaults to 1 when omitted.
	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
	}

	rest := s[dIdx+1:]
	modOffset := strings.IndexAny(rest, "+-")

	sidesStr, modStr := rest, ""
	if modOffset >= 0 {
		sidesStr, modStr = rest[:modOffset], rest[modOffset:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Expression{Raw: raw, Count: count, Sides: sides, Modifier: modifier}, nil
}

// MustParse parses expr and panics on error. Useful for package-level values and tests.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
