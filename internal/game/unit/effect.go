package unit

import (
	"fmt"
	"strings"
)

// EffectKind is the tag of an ability effect. Effects are parsed from roster
// text once during setup and never re-read as strings afterwards.
type EffectKind int

const (
	// RerollHit rerolls failed hit rolls; Value 1 restricts it to natural 1s.
	RerollHit EffectKind = iota + 1
	// RerollWound rerolls failed wound rolls; Value 1 restricts it to natural 1s.
	RerollWound
	// MortalWounds converts a critical wound into Value mortal wounds.
	MortalWounds
	// FeelNoPain ignores each point of damage on a Value+ roll.
	FeelNoPain
	// HalveDamage halves incoming damage per failed save, rounding up.
	HalveDamage
	// HitModifier adds Value (may be negative) to the attacker's hit rolls.
	HitModifier
	// ToHitPenalty subtracts Value from hit rolls made against the bearer.
	ToHitPenalty
	IgnoreCover
	// LethalHits makes critical hits wound automatically.
	LethalHits
	// SustainedHits adds Value extra hits per critical hit.
	SustainedHits
	// Torrent weapons hit automatically.
	Torrent
	// Heavy weapons cannot be fired by a unit that advanced.
	Heavy
	// Character marks a high-value leader model.
	Character
)

var effectNames = map[EffectKind]string{
	RerollHit:     "reroll_hit",
	RerollWound:   "reroll_wound",
	MortalWounds:  "mortal_wounds",
	FeelNoPain:    "feel_no_pain",
	HalveDamage:   "halve_damage",
	HitModifier:   "hit_modifier",
	ToHitPenalty:  "to_hit_penalty",
	IgnoreCover:   "ignore_cover",
	LethalHits:    "lethal_hits",
	SustainedHits: "sustained_hits",
	Torrent:       "torrent",
	Heavy:         "heavy",
	Character:     "character",
}

// aliases accepted from roster text in addition to the canonical names.
var effectAliases = map[string]EffectKind{
	"fnp":           FeelNoPain,
	"stealth":       ToHitPenalty,
	"devastating":   MortalWounds,
	"ignores_cover": IgnoreCover,
}

func (k EffectKind) String() string {
	if n, ok := effectNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// ParseEffectKind maps a roster tag to its kind.
func ParseEffectKind(s string) (EffectKind, error) {
	name := strings.ToLower(strings.TrimSpace(strings.NewReplacer("-", "_", " ", "_").Replace(s)))
	for k, v := range effectNames {
		if v == name {
			return k, nil
		}
	}
	if k, ok := effectAliases[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown effect %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k EffectKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EffectKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEffectKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Effect is one tagged ability with an optional integer parameter.
type Effect struct {
	Kind  EffectKind `yaml:"kind" json:"kind"`
	Value int        `yaml:"value,omitempty" json:"value,omitempty"`
}

// Effects is an ordered set of ability effects.
type Effects []Effect

// Has reports whether any effect has kind k.
func (es Effects) Has(k EffectKind) bool {
	_, ok := es.Find(k)
	return ok
}

// Find returns the first effect of kind k.
func (es Effects) Find(k EffectKind) (Effect, bool) {
	for _, e := range es {
		if e.Kind == k {
			return e, true
		}
	}
	return Effect{}, false
}

// valued lists the kinds that do nothing without a positive Value.
var valued = map[EffectKind]bool{
	MortalWounds:  true,
	FeelNoPain:    true,
	ToHitPenalty:  true,
	SustainedHits: true,
}

// Validate rejects effects whose parameter makes them a silent no-op.
func (es Effects) Validate() error {
	for _, e := range es {
		if valued[e.Kind] && e.Value < 1 {
			return fmt.Errorf("effect %s requires a positive value, got %d", e.Kind, e.Value)
		}
		if e.Kind == FeelNoPain && e.Value > 6 {
			return fmt.Errorf("effect %s value must be in [2, 6], got %d", e.Kind, e.Value)
		}
	}
	return nil
}

// Sum adds the values of every effect of kind k.
func (es Effects) Sum(k EffectKind) int {
	total := 0
	for _, e := range es {
		if e.Kind == k {
			total += e.Value
		}
	}
	return total
}
