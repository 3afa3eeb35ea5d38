package unit

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Record is a roster entry as supplied by the roster loader. Dice fields are
// kept as notation strings until FromRecord parses them.
type Record struct {
	ID               string         `yaml:"id" json:"id"`
	Name             string         `yaml:"name" json:"name"`
	Models           int            `yaml:"models" json:"models"`
	Wounds           int            `yaml:"wounds" json:"wounds"`
	Movement         float64        `yaml:"movement" json:"movement"`
	Toughness        int            `yaml:"toughness" json:"toughness"`
	Save             int            `yaml:"save" json:"save"`
	InvulnerableSave int            `yaml:"invulnerable_save,omitempty" json:"invulnerable_save,omitempty"`
	Leadership       int            `yaml:"leadership" json:"leadership"`
	ObjectiveControl int            `yaml:"objective_control" json:"objective_control"`
	Points           int            `yaml:"points" json:"points"`
	Keywords         []string       `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Effects          []Effect       `yaml:"effects,omitempty" json:"effects,omitempty"`
	Weapons          []WeaponRecord `yaml:"weapons" json:"weapons"`

	// Position is the deployment point; nil requests automatic deployment.
	Position *battlefield.Point `yaml:"position,omitempty" json:"position,omitempty"`
}

// WeaponRecord is a weapon profile in roster form.
type WeaponRecord struct {
	Name     string   `yaml:"name" json:"name"`
	Range    float64  `yaml:"range" json:"range"`
	Attacks  string   `yaml:"attacks" json:"attacks"`
	Skill    int      `yaml:"skill" json:"skill"`
	Strength int      `yaml:"strength" json:"strength"`
	AP       int      `yaml:"ap" json:"ap"`
	Damage   string   `yaml:"damage" json:"damage"`
	Effects  []Effect `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// RecordError reports a malformed roster entry.
type RecordError struct {
	UnitID string
	Weapon string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Weapon != "" {
		return fmt.Sprintf("unit %q weapon %q: %v", e.UnitID, e.Weapon, e.Err)
	}
	return fmt.Sprintf("unit %q: %v", e.UnitID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// FromRecord builds a fresh battle unit for player from rec.
//
// Postcondition: returns a unit at full strength or a *RecordError naming the
// offending unit and weapon.
func FromRecord(rec Record, player battlefield.PlayerID) (*Unit, error) {
	fail := func(weapon string, err error) (*Unit, error) {
		return nil, &RecordError{UnitID: rec.ID, Weapon: weapon, Err: err}
	}
	if rec.ID == "" {
		return fail("", fmt.Errorf("id must not be empty (name %q)", rec.Name))
	}
	if rec.Models < 1 {
		return fail("", fmt.Errorf("models must be >= 1, got %d", rec.Models))
	}
	if rec.Wounds < 1 {
		return fail("", fmt.Errorf("wounds must be >= 1, got %d", rec.Wounds))
	}
	if rec.Toughness < 1 {
		return fail("", fmt.Errorf("toughness must be >= 1, got %d", rec.Toughness))
	}
	if rec.Save < 2 || rec.Save > 7 {
		return fail("", fmt.Errorf("save must be in [2, 7], got %d", rec.Save))
	}
	if rec.Movement < 0 {
		return fail("", fmt.Errorf("movement must not be negative"))
	}
	if err := Effects(rec.Effects).Validate(); err != nil {
		return fail("", err)
	}

	u := &Unit{
		ID:     rec.ID,
		Name:   rec.Name,
		Player: player,
		Chars: Characteristics{
			Movement:         rec.Movement,
			Toughness:        rec.Toughness,
			Save:             rec.Save,
			InvulnerableSave: rec.InvulnerableSave,
			Leadership:       rec.Leadership,
			ObjectiveControl: rec.ObjectiveControl,
		},
		WoundsPerModel: rec.Wounds,
		StartingModels: rec.Models,
		Wounds:         make([]int, rec.Models),
		Effects:        append(Effects(nil), rec.Effects...),
		Points:         rec.Points,
		Keywords:       append([]string(nil), rec.Keywords...),
	}
	for i := range u.Wounds {
		u.Wounds[i] = rec.Wounds
	}
	if u.Name == "" {
		u.Name = rec.ID
	}
	if rec.Position != nil {
		u.Position = *rec.Position
	}

	for _, wr := range rec.Weapons {
		attacks, err := dice.Parse(wr.Attacks)
		if err != nil {
			return fail(wr.Name, fmt.Errorf("attacks: %w", err))
		}
		damage, err := dice.Parse(wr.Damage)
		if err != nil {
			return fail(wr.Name, fmt.Errorf("damage: %w", err))
		}
		if wr.Skill < 2 || wr.Skill > 6 {
			if !Effects(wr.Effects).Has(Torrent) {
				return fail(wr.Name, fmt.Errorf("skill must be in [2, 6], got %d", wr.Skill))
			}
		}
		if wr.Strength < 1 {
			return fail(wr.Name, fmt.Errorf("strength must be >= 1, got %d", wr.Strength))
		}
		if err := Effects(wr.Effects).Validate(); err != nil {
			return fail(wr.Name, err)
		}
		u.Weapons = append(u.Weapons, Weapon{
			Name:     wr.Name,
			Range:    wr.Range,
			Attacks:  attacks,
			Skill:    wr.Skill,
			Strength: wr.Strength,
			AP:       wr.AP,
			Damage:   damage,
			Effects:  append(Effects(nil), wr.Effects...),
		})
	}
	return u, nil
}
