package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/batch"
)

// BatchRepository persists finished batches in PostgreSQL.
type BatchRepository struct {
	db    *pgxpool.Pool
	owner *Pool
}

var _ batch.ResultStore = (*BatchRepository)(nil)

// NewBatchRepository creates a BatchRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the batches table migrated.
func NewBatchRepository(db *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{db: db}
}

// NewBatchStore creates a BatchRepository that owns p; Close releases the pool.
func NewBatchStore(p *Pool) *BatchRepository {
	return &BatchRepository{db: p.DB(), owner: p}
}

// SaveBatch upserts rec.
//
// Precondition: rec.Stats must be non-nil.
// Postcondition: A later Batch(rec.ID) returns rec.
func (r *BatchRepository) SaveBatch(ctx context.Context, rec batch.Record) error {
	if rec.Stats == nil {
		return fmt.Errorf("batch %s has no statistics", rec.ID)
	}
	stats, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("encoding batch stats: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO batches
			(id, session_id, scenario, battles, base_seed, max_turns,
			 wins_a, wins_b, draws, failed, stats, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			scenario = EXCLUDED.scenario,
			battles = EXCLUDED.battles,
			base_seed = EXCLUDED.base_seed,
			max_turns = EXCLUDED.max_turns,
			wins_a = EXCLUDED.wins_a,
			wins_b = EXCLUDED.wins_b,
			draws = EXCLUDED.draws,
			failed = EXCLUDED.failed,
			stats = EXCLUDED.stats,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at`,
		rec.ID, rec.SessionID, rec.Scenario, rec.Count, rec.BaseSeed, rec.MaxTurns,
		rec.Stats.WinsA, rec.Stats.WinsB, rec.Stats.Draws, rec.Stats.Failed, stats,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}
	return nil
}

const selectBatch = `
		SELECT id, session_id, scenario, battles, base_seed, max_turns,
		       stats, started_at, finished_at
		FROM batches`

// Batch retrieves a batch by ID.
//
// Postcondition: Returns the Record or batch.ErrNotFound.
func (r *BatchRepository) Batch(ctx context.Context, id uuid.UUID) (batch.Record, error) {
	rec, err := scanBatch(r.db.QueryRow(ctx, selectBatch+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return batch.Record{}, batch.ErrNotFound
		}
		return batch.Record{}, fmt.Errorf("querying batch: %w", err)
	}
	return rec, nil
}

// ListBatches returns up to limit batches ordered newest first; limit <= 0 returns all.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *BatchRepository) ListBatches(ctx context.Context, limit int) ([]batch.Record, error) {
	query := selectBatch + ` ORDER BY finished_at DESC, id ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	out := make([]batch.Record, 0)
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the pool when the repository owns it.
func (r *BatchRepository) Close() error {
	if r.owner != nil {
		r.owner.Close()
	}
	return nil
}

func scanBatch(row pgx.Row) (batch.Record, error) {
	var (
		rec   batch.Record
		stats []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.Scenario, &rec.Count, &rec.BaseSeed, &rec.MaxTurns,
		&stats, &rec.StartedAt, &rec.FinishedAt,
	); err != nil {
		return batch.Record{}, err
	}
	rec.Stats = batch.NewStats()
	if err := json.Unmarshal(stats, rec.Stats); err != nil {
		return batch.Record{}, fmt.Errorf("decoding batch stats: %w", err)
	}
	rec.StartedAt = rec.StartedAt.UTC()
	rec.FinishedAt = rec.FinishedAt.UTC()
	return rec, nil
}
