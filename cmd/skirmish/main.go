// Package main provides the skirmish command: it plays one seeded battle or a
// batch of battles from a scenario file and reports the outcome.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/batch"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scenario"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scenarioName := flag.String("scenario", "", "scenario name (overrides simulation.scenario)")
	single := flag.Bool("single", false, "play one battle and print its event log")
	seed := flag.Int64("seed", 0, "seed of the single battle or base seed of the batch (0 = configured or random)")
	count := flag.Int("count", 0, "battles per batch (overrides simulation.count)")
	workers := flag.Int("workers", -1, "batch workers (overrides simulation.workers)")
	turns := flag.Int("turns", 0, "turn limit (overrides the scenario)")
	persist := flag.Bool("persist", false, "save the batch to the configured store")
	asJSON := flag.Bool("json", false, "print JSON instead of text")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "skirmish")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	if *scenarioName != "" {
		cfg.Simulation.Scenario = *scenarioName
	}
	if *count > 0 {
		cfg.Simulation.Count = *count
	}
	if *workers >= 0 {
		cfg.Simulation.Workers = *workers
	}
	if *turns > 0 {
		cfg.Simulation.MaxTurns = *turns
	}
	if *seed != 0 {
		cfg.Simulation.BaseSeed = *seed
	}
	if cfg.Simulation.BaseSeed == 0 {
		cfg.Simulation.BaseSeed = dice.NewSeed()
	}

	sc, err := findScenario(cfg.Simulation)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}
	maxTurns := sc.Turns()
	if cfg.Simulation.MaxTurns > 0 {
		maxTurns = cfg.Simulation.MaxTurns
	}

	opts, err := battleOptions(cfg, logger)
	if err != nil {
		logger.Fatal("loading threat script", zap.Error(err))
	}

	logger.Info("skirmish initialized",
		zap.String("scenario", sc.Name),
		zap.Int("max_turns", maxTurns),
		zap.Int64("seed", cfg.Simulation.BaseSeed),
		zap.Duration("startup", time.Since(start)),
	)

	if *single {
		opts.Logger = observability.NewBattleLogger(logger, sc.Name, cfg.Simulation.BaseSeed)
		res, err := battle.Run(&sc.Battlefield, sc.Armies.A.Units, sc.Armies.B.Units, maxTurns, cfg.Simulation.BaseSeed, opts)
		if err != nil {
			logger.Fatal("battle setup", zap.Error(err))
		}
		if *asJSON {
			printJSON(os.Stdout, res)
		} else {
			printBattle(os.Stdout, sc, res)
		}
		return
	}

	var sess *batch.Session
	if *persist {
		store, err := storage.Open(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("opening result store", zap.Error(err))
		}
		sess = batch.NewSession(store, logger)
		defer sess.Close()
	}

	rec, err := batch.NewRunner(logger).RunRecord(ctx, batch.Request{
		Scenario:    sc.Name,
		Battlefield: &sc.Battlefield,
		ArmyA:       sc.Armies.A.Units,
		ArmyB:       sc.Armies.B.Units,
		MaxTurns:    maxTurns,
		Count:       cfg.Simulation.Count,
		BaseSeed:    cfg.Simulation.BaseSeed,
		Workers:     cfg.Simulation.Workers,
		Options:     opts,
	}, sess)
	if rec.Stats == nil {
		logger.Fatal("batch rejected", zap.Error(err))
	}
	if err != nil {
		logger.Warn("batch incomplete", zap.Error(err))
	}
	if *asJSON {
		printJSON(os.Stdout, rec)
	} else {
		printBatch(os.Stdout, sc, rec)
	}
}

func findScenario(sim config.SimulationConfig) (*scenario.Scenario, error) {
	all, err := scenario.LoadDirectory(sim.ScenarioDir)
	if err != nil {
		return nil, err
	}
	for _, sc := range all {
		if sc.Name == sim.Scenario {
			return sc, nil
		}
	}
	names := make([]string, 0, len(all))
	for _, sc := range all {
		names = append(names, sc.Name)
	}
	return nil, fmt.Errorf("scenario %q not found in %s (have %v)", sim.Scenario, sim.ScenarioDir, names)
}

func battleOptions(cfg config.Config, logger *zap.Logger) (battle.Options, error) {
	opts := battle.Options{
		Policy:          combat.Policy{SpillExcessDamage: cfg.Simulation.SpillExcessDamage},
		ControlRadius:   cfg.Simulation.ControlRadius,
		EngagementRange: cfg.Simulation.EngagementRange,
		Logger:          logger,
	}
	if cfg.Scripting.ThreatScript != "" {
		script, err := scripting.LoadThreatScript(cfg.Scripting.ThreatScript, cfg.Scripting.InstructionLimit, logger)
		if err != nil {
			return opts, err
		}
		opts.NewThreatScorer = script.NewThreatScorer
		logger.Info("threat script loaded", zap.String("script", script.Name()))
	}
	return opts, nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printBattle(w io.Writer, sc *scenario.Scenario, res *battle.Result) {
	fmt.Fprintf(w, "%s (seed %d): %s vs %s\n", sc.Name, res.Seed, sc.Armies.A.Name, sc.Armies.B.Name)
	for _, e := range res.Events {
		fmt.Fprintln(w, e)
	}
	fmt.Fprintln(w)
	for _, c := range res.Casualties {
		state := fmt.Sprintf("%d/%d models", c.SurvivingModels, c.StartingModels)
		if c.Destroyed {
			state = "destroyed"
		}
		fmt.Fprintf(w, "  [%s] %-24s %s\n", c.Player, c.Name, state)
	}
	fmt.Fprintln(w, res.Summary())
}

func printBatch(w io.Writer, sc *scenario.Scenario, rec batch.Record) {
	s := rec.Stats
	fmt.Fprintf(w, "%s: %d battles from seed %d (%d failed)\n", sc.Name, s.Completed, rec.BaseSeed, s.Failed)
	if rec.SessionID != uuid.Nil {
		fmt.Fprintf(w, "saved as batch %s\n", rec.ID)
	}
	for _, p := range battlefield.Players {
		army := sc.Armies.A.Name
		if p == battlefield.PlayerB {
			army = sc.Armies.B.Name
		}
		fmt.Fprintf(w, "  %s %-20s win %5.1f%%  VP %5.2f ± %.2f\n",
			p, army, 100*s.WinRate(p), s.MeanVP(p), s.StdDevVP(p))
	}
	if s.Completed > 0 {
		fmt.Fprintf(w, "  draws %5.1f%%  mean turns %.2f\n", 100*float64(s.Draws)/float64(s.Completed), s.MeanTurns())
		fmt.Fprintf(w, "  decided by: tabling %d, VP %d, points %d, draw %d\n",
			s.Decisions[battle.Tabling], s.Decisions[battle.VictoryPoints],
			s.Decisions[battle.SurvivingPoints], s.Decisions[battle.Draw])
	}

	ids := make([]string, 0, len(s.Units))
	for id := range s.Units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		u := s.Units[id]
		fmt.Fprintf(w, "  [%s] %-24s survived %5.1f%%  models %d/%d\n",
			u.Player, id, 100*u.SurvivalRate(), u.SurvivingModels, u.StartingModels)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  failed battle %d (seed %d): %s\n", f.Index, f.Seed, f.Message)
	}
}
