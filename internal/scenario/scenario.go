// Package scenario loads battle scenarios (battlefield plus two rosters) from
// YAML files.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// DefaultMaxTurns is used when a scenario does not set max_turns.
const DefaultMaxTurns = 5

// Army is one side's roster.
type Army struct {
	Name  string        `yaml:"name"`
	Units []unit.Record `yaml:"units"`
}

// Armies holds both rosters.
type Armies struct {
	A Army `yaml:"a"`
	B Army `yaml:"b"`
}

// Scenario is a complete battle setup.
type Scenario struct {
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description"`
	MaxTurns    int                     `yaml:"max_turns"`
	Battlefield battlefield.Battlefield `yaml:"battlefield"`
	Armies      Armies                  `yaml:"armies"`
}

// Validate checks the scenario the way a battle would at setup.
func (s *Scenario) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if s.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("max_turns must not be negative, got %d", s.MaxTurns))
	}
	if err := battle.Validate(&s.Battlefield, s.Armies.A.Units, s.Armies.B.Units); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Turns returns the turn limit, applying DefaultMaxTurns.
func (s *Scenario) Turns() int {
	if s.MaxTurns == 0 {
		return DefaultMaxTurns
	}
	return s.MaxTurns
}

// Parse decodes and validates a scenario. Unknown fields are rejected.
//
// Postcondition: returns a valid scenario or an error.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return &s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadDirectory loads every *.yaml file in dir, sorted by scenario name.
//
// Precondition: dir must be a readable directory.
// Postcondition: scenario names are unique.
func LoadDirectory(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario dir %q: %w", dir, err)
	}
	var out []*Scenario
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("scenario %q defined in both %q and %q", s.Name, prev, path)
		}
		seen[s.Name] = path
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
