// Package battle runs one complete battle between two rosters and assembles
// its result.
package battle

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/geometry"
	"github.com/cory-johannsen/skirmish/internal/game/phase"
	"github.com/cory-johannsen/skirmish/internal/game/scoring"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// Options carries the tunable rules and collaborators of a battle. The zero
// value plays the standard rules.
type Options struct {
	Policy   combat.Policy
	Strategy ai.Config
	// ControlRadius is the objective radius for objectives without their own;
	// 0 selects battlefield.DefaultControlRadius.
	ControlRadius float64
	// EngagementRange of 0 selects geometry.DefaultEngagementRange.
	EngagementRange float64

	// NewThreatScorer builds the threat scorer for one battle. A scorer that
	// implements io.Closer is closed when the battle ends. nil selects
	// ai.DefaultThreat.
	NewThreatScorer func() (ai.ThreatScorer, error)
	Logger          *zap.Logger
}

// setup is a battle ready to run.
type setup struct {
	bf     *battlefield.Battlefield
	geo    *geometry.Service
	units  []*unit.Unit
	roller *dice.Roller
	log    *event.Log
}

// Run plays one battle to completion with the RNG seeded by seed.
//
// Precondition: maxTurns >= 1.
// Postcondition: returns a *SetupError when the input is rejected; otherwise
// the result of a battle that is fully determined by its inputs and seed.
func Run(bf *battlefield.Battlefield, armyA, armyB []unit.Record, maxTurns int, seed int64, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTurns < 1 {
		return nil, &SetupError{Kind: KindParameters, Subject: "max turns", Err: fmt.Errorf("must be >= 1, got %d", maxTurns)}
	}

	s, err := prepare(bf, armyA, armyB, seed, opts, logger)
	if err != nil {
		return nil, err
	}

	threat, err := newThreat(opts)
	if err != nil {
		return nil, err
	}
	if c, ok := threat.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("closing threat scorer", zap.Error(err))
			}
		}()
	}

	ctrl := phase.New(phase.Config{
		Battlefield: s.bf,
		Geometry:    s.geo,
		Strategy:    ai.New(s.geo, threat, opts.Strategy),
		Scorer:      scoring.NewScorer(opts.ControlRadius),
		Units:       s.units,
		Roller:      s.roller,
		Policy:      opts.Policy,
		MaxTurns:    maxTurns,
		Log:         s.log,
		Logger:      logger,
	})
	ctrl.Run()

	res := assemble(seed, ctrl.State(), s)
	logger.Debug("battle finished",
		zap.Int64("seed", seed),
		zap.Stringer("winner", res.Winner),
		zap.Stringer("decision", res.Decision),
		zap.Int("turns", res.Turns),
		zap.Int("events", len(res.Events)),
	)
	return res, nil
}

// Validate checks a battlefield and both rosters the way Run does, without
// playing the battle.
func Validate(bf *battlefield.Battlefield, armyA, armyB []unit.Record) error {
	_, err := prepare(bf, armyA, armyB, 0, Options{}, zap.NewNop())
	return err
}

func prepare(bf *battlefield.Battlefield, armyA, armyB []unit.Record, seed int64, opts Options, logger *zap.Logger) (*setup, error) {
	if bf == nil {
		return nil, &SetupError{Kind: KindBattlefield, Err: errors.New("battlefield is required")}
	}
	warnings, err := bf.Validate()
	if err != nil {
		return nil, &SetupError{Kind: KindBattlefield, Subject: bf.Name, Err: err}
	}
	for _, w := range warnings {
		logger.Warn("battlefield input ignored", zap.String("battlefield", bf.Name), zap.String("warning", w))
	}

	var placements []placement
	ids := make(map[string]bool)
	for _, p := range battlefield.Players {
		army := armyA
		if p == battlefield.PlayerB {
			army = armyB
		}
		if len(army) == 0 {
			return nil, &SetupError{Kind: KindRoster, Subject: "player " + p.String(), Err: errors.New("roster is empty")}
		}
		for _, rec := range army {
			u, err := unit.FromRecord(rec, p)
			if err != nil {
				return nil, &SetupError{Kind: KindRoster, Subject: rec.ID, Err: err}
			}
			if ids[u.ID] {
				return nil, &SetupError{Kind: KindRoster, Subject: u.ID, Err: errors.New("duplicate unit id")}
			}
			ids[u.ID] = true
			placements = append(placements, placement{u: u, auto: rec.Position == nil})
		}
	}

	geo := geometry.NewService(bf, opts.EngagementRange)
	src := dice.NewSeededSource(seed)
	if err := deploy(bf, geo, placements, src); err != nil {
		return nil, err
	}

	s := &setup{
		bf:     bf,
		geo:    geo,
		roller: dice.NewLoggedRoller(src, logger),
		log:    &event.Log{},
	}
	for _, p := range placements {
		s.units = append(s.units, p.u)
		how := "deploys"
		if p.auto {
			how = "is deployed"
		}
		s.log.Append(event.Event{
			Phase:       "deployment",
			Player:      p.u.Player,
			Category:    event.Deploy,
			Actors:      []string{p.u.ID},
			Description: fmt.Sprintf("%s %s at %s", p.u.Name, how, p.u.Position),
		})
	}
	return s, nil
}

func newThreat(opts Options) (ai.ThreatScorer, error) {
	if opts.NewThreatScorer == nil {
		return ai.DefaultThreat{}, nil
	}
	t, err := opts.NewThreatScorer()
	if err != nil {
		return nil, &SetupError{Kind: KindThreat, Err: err}
	}
	return t, nil
}

func assemble(seed int64, st phase.State, s *setup) *Result {
	res := &Result{
		Seed:   seed,
		Turns:  st.Turn,
		VP:     st.VP,
		Events: s.log.Events(),
	}
	var alive [2]bool
	for _, u := range s.units {
		res.Casualties = append(res.Casualties, Casualty{
			UnitID:          u.ID,
			Name:            u.Name,
			Player:          u.Player,
			StartingModels:  u.StartingModels,
			SurvivingModels: u.ModelsRemaining(),
			Destroyed:       u.IsDestroyed(),
			Points:          u.Points,
		})
		res.SurvivingPoints[u.Player] += u.SurvivingPoints()
		if !u.IsDestroyed() {
			alive[u.Player] = true
		}
	}
	res.Winner, res.Decision = decide(st.Tabled, alive, res.VP, res.SurvivingPoints)
	return res
}
