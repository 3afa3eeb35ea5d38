// Package main provides the feed server: battle replays, live event streams
// and batch statistics over HTTP and WebSocket.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/feed"
	"github.com/cory-johannsen/skirmish/internal/game/batch"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scenario"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/server"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "feedserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}

	loadStart := time.Now()
	scenarios, err := scenario.LoadDirectory(cfg.Simulation.ScenarioDir)
	if err != nil {
		logger.Fatal("loading scenarios", zap.Error(err))
	}
	logger.Info("scenarios loaded",
		zap.Int("count", len(scenarios)),
		zap.String("dir", cfg.Simulation.ScenarioDir),
		zap.Duration("elapsed", time.Since(loadStart)),
	)

	opts := battle.Options{
		Policy:          combat.Policy{SpillExcessDamage: cfg.Simulation.SpillExcessDamage},
		ControlRadius:   cfg.Simulation.ControlRadius,
		EngagementRange: cfg.Simulation.EngagementRange,
	}
	if cfg.Scripting.ThreatScript != "" {
		script, err := scripting.LoadThreatScript(cfg.Scripting.ThreatScript, cfg.Scripting.InstructionLimit, logger)
		if err != nil {
			logger.Fatal("loading threat script", zap.Error(err))
		}
		opts.NewThreatScorer = script.NewThreatScorer
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening result store", zap.Error(err))
	}
	sess := batch.NewSession(store, logger)

	handler := feed.NewServer(feed.Config{
		Scenarios: scenarios,
		Default:   cfg.Simulation.Scenario,
		Runner:    batch.NewRunner(logger),
		Session:   sess,
		Options:   opts,
		MaxBatch:  cfg.Feed.MaxBatch,
		MaxTurns:  cfg.Feed.MaxTurns,
		Logger:    logger,
	})
	httpServer := &http.Server{
		Addr:         cfg.Feed.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Feed.ReadTimeout,
		WriteTimeout: cfg.Feed.WriteTimeout,
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("feed", server.HTTPService(httpServer, cfg.Feed.ShutdownTimeout))
	released := make(chan struct{})
	lifecycle.Add("store", &server.FuncService{
		StartFn: func() error {
			<-released
			return nil
		},
		StopFn: func() {
			defer close(released)
			if err := sess.Close(); err != nil {
				logger.Warn("closing result store", zap.Error(err))
			}
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("flushing traces", zap.Error(err))
			}
		},
	})

	logger.Info("feed server initialized",
		zap.String("addr", cfg.Feed.Addr()),
		zap.String("storage", cfg.Storage.Backend),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
