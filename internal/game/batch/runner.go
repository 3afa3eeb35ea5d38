// Package batch runs many independent battles in parallel and reduces their
// results into aggregate statistics.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// MaxBattles is the largest batch a Runner accepts.
const MaxBattles = 40000

const tracerName = "github.com/cory-johannsen/skirmish/internal/game/batch"

// Request describes a batch. Battle i is played with seed BaseSeed+i.
type Request struct {
	// Scenario labels the persisted record.
	Scenario    string
	Battlefield *battlefield.Battlefield
	ArmyA       []unit.Record
	ArmyB       []unit.Record
	MaxTurns    int
	Count       int
	BaseSeed    int64
	// Workers bounds parallelism; 0 selects GOMAXPROCS.
	Workers int
	Options battle.Options
}

// Seed returns the seed of battle i.
func (r Request) Seed(i int) int64 { return r.BaseSeed + int64(i) }

// Runner executes batches.
type Runner struct {
	logger *zap.Logger
	tracer trace.Tracer
	play   func(req Request, seed int64) (*battle.Result, error)
}

// NewRunner returns a Runner. A nil logger selects a no-op logger; spans go to
// the global OpenTelemetry tracer provider.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger: logger,
		tracer: otel.Tracer(tracerName),
		play: func(req Request, seed int64) (*battle.Result, error) {
			return battle.Run(req.Battlefield, req.ArmyA, req.ArmyB, req.MaxTurns, seed, req.Options)
		},
	}
}

// Run plays req.Count battles and returns their merged statistics. When sess
// is not nil the finished batch is saved through it.
//
// Precondition: 1 <= req.Count <= MaxBattles.
// Postcondition: the statistics depend only on the request, never on
// scheduling. On cancellation the partial statistics are returned together
// with the context error; battles already running finish first.
func (r *Runner) Run(ctx context.Context, req Request, sess *Session) (*Stats, error) {
	rec, err := r.RunRecord(ctx, req, sess)
	return rec.Stats, err
}

// RunRecord is Run returning the batch record, whose ID is the one persisted
// through sess. Stats is nil only when the request is rejected.
func (r *Runner) RunRecord(ctx context.Context, req Request, sess *Session) (Record, error) {
	if req.Count < 1 || req.Count > MaxBattles {
		return Record{}, fmt.Errorf("batch count must be in [1, %d], got %d", MaxBattles, req.Count)
	}
	if req.MaxTurns < 1 {
		return Record{}, fmt.Errorf("max turns must be >= 1, got %d", req.MaxTurns)
	}
	if err := battle.Validate(req.Battlefield, req.ArmyA, req.ArmyB); err != nil {
		return Record{}, err
	}

	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, req.Count)

	ctx, span := r.tracer.Start(ctx, "batch.Run", trace.WithAttributes(
		attribute.String("scenario", req.Scenario),
		attribute.Int("count", req.Count),
		attribute.Int("workers", workers),
		attribute.Int64("base_seed", req.BaseSeed),
	))
	defer span.End()

	started := time.Now().UTC()
	r.logger.Info("batch started",
		zap.String("scenario", req.Scenario),
		zap.Int("count", req.Count),
		zap.Int("workers", workers),
		zap.Int64("base_seed", req.BaseSeed),
	)

	total := NewStats()
	var mu sync.Mutex
	indices := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(indices)
		for i := range req.Count {
			select {
			case indices <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range workers {
		g.Go(func() error {
			partial := NewStats()
			for i := range indices {
				if gctx.Err() != nil {
					continue
				}
				r.playOne(req, i, partial)
			}
			mu.Lock()
			total.Merge(partial)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil && total.Completed+total.Failed < req.Count {
		err = ctx.Err()
	}

	span.SetAttributes(
		attribute.Int("completed", total.Completed),
		attribute.Int("failed", total.Failed),
	)
	rec := Record{
		ID:         uuid.New(),
		Scenario:   req.Scenario,
		Count:      req.Count,
		BaseSeed:   req.BaseSeed,
		MaxTurns:   req.MaxTurns,
		Stats:      total,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("batch cancelled", zap.Int("completed", total.Completed), zap.Error(err))
		return rec, err
	}

	r.logger.Info("batch finished",
		zap.Int("completed", total.Completed),
		zap.Int("failed", total.Failed),
		zap.Float64("win_rate_a", total.WinRate(battlefield.PlayerA)),
		zap.Float64("win_rate_b", total.WinRate(battlefield.PlayerB)),
		zap.Duration("elapsed", rec.FinishedAt.Sub(started)),
	)

	if sess != nil {
		if err := sess.Save(ctx, rec); err != nil {
			span.RecordError(err)
			return rec, err
		}
		rec.SessionID = sess.ID
		span.SetAttributes(attribute.String("batch_id", rec.ID.String()))
	}
	return rec, nil
}

// playOne runs battle i into partial. A panic or error aborts only that
// battle and is recorded as a failure.
func (r *Runner) playOne(req Request, i int, partial *Stats) {
	seed := req.Seed(i)
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprint(p)
			r.logger.Error("battle failed", zap.Int("index", i), zap.Int64("seed", seed), zap.String("panic", msg))
			partial.AddFailure(Failure{Index: i, Seed: seed, Message: msg})
		}
	}()

	res, err := r.play(req, seed)
	if err != nil {
		r.logger.Error("battle failed", zap.Int("index", i), zap.Int64("seed", seed), zap.Error(err))
		partial.AddFailure(Failure{Index: i, Seed: seed, Message: err.Error()})
		return
	}
	partial.Add(res)
}

// RunBatch plays count battles between armyA and armyB with fresh random
// seeds and default options.
func RunBatch(ctx context.Context, bf *battlefield.Battlefield, armyA, armyB []unit.Record, maxTurns, count int) (*Stats, error) {
	return NewRunner(nil).Run(ctx, Request{
		Battlefield: bf,
		ArmyA:       armyA,
		ArmyB:       armyB,
		MaxTurns:    maxTurns,
		Count:       count,
		BaseSeed:    dice.NewSeed(),
	}, nil)
}
