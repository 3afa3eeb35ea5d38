// Package sqlite provides a SQLite-backed batch result store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/skirmish/internal/game/batch"
	"github.com/cory-johannsen/skirmish/internal/storage/sqlite/migrations"
)

const migrationTable = "schema_migrations"

// Store persists finished batches in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ batch.ResultStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies embedded migrations.
//
// Precondition: path must be non-empty; ":memory:" is accepted.
// Postcondition: Returns a Store whose schema is current, or a non-nil error.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serialises writers
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveBatch inserts rec, replacing any record with the same ID.
func (s *Store) SaveBatch(ctx context.Context, rec batch.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Stats == nil {
		return fmt.Errorf("batch %s has no statistics", rec.ID)
	}
	stats, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("encoding batch stats: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO batches (
		   id, session_id, scenario, battles, base_seed, max_turns,
		   wins_a, wins_b, draws, failed, stats, started_at, finished_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   session_id = excluded.session_id,
		   scenario = excluded.scenario,
		   battles = excluded.battles,
		   base_seed = excluded.base_seed,
		   max_turns = excluded.max_turns,
		   wins_a = excluded.wins_a,
		   wins_b = excluded.wins_b,
		   draws = excluded.draws,
		   failed = excluded.failed,
		   stats = excluded.stats,
		   started_at = excluded.started_at,
		   finished_at = excluded.finished_at`,
		rec.ID.String(), rec.SessionID.String(), rec.Scenario, rec.Count, rec.BaseSeed, rec.MaxTurns,
		rec.Stats.WinsA, rec.Stats.WinsB, rec.Stats.Draws, rec.Stats.Failed, string(stats),
		toMillis(rec.StartedAt), toMillis(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, session_id, scenario, battles, base_seed, max_turns,
	stats, started_at, finished_at FROM batches`

// Batch returns the record with the given ID or batch.ErrNotFound.
func (s *Store) Batch(ctx context.Context, id uuid.UUID) (batch.Record, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return batch.Record{}, batch.ErrNotFound
	}
	if err != nil {
		return batch.Record{}, fmt.Errorf("querying batch: %w", err)
	}
	return rec, nil
}

// ListBatches returns up to limit records, newest first. A limit <= 0 returns all.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]batch.Record, error) {
	query := selectColumns + ` ORDER BY finished_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	out := make([]batch.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (batch.Record, error) {
	var (
		rec               batch.Record
		id, sessionID     string
		stats             string
		started, finished int64
	)
	if err := row.Scan(&id, &sessionID, &rec.Scenario, &rec.Count, &rec.BaseSeed, &rec.MaxTurns,
		&stats, &started, &finished); err != nil {
		return batch.Record{}, err
	}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return batch.Record{}, fmt.Errorf("parsing batch id: %w", err)
	}
	if rec.SessionID, err = uuid.Parse(sessionID); err != nil {
		return batch.Record{}, fmt.Errorf("parsing session id: %w", err)
	}
	rec.Stats = batch.NewStats()
	if err := json.Unmarshal([]byte(stats), rec.Stats); err != nil {
		return batch.Record{}, fmt.Errorf("decoding batch stats: %w", err)
	}
	rec.StartedAt = fromMillis(started)
	rec.FinishedAt = fromMillis(finished)
	return rec, nil
}

// applyMigrations executes each embedded *.sql file at most once, in name order.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`, migrationTable)); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var n int
		if err := sqlDB.QueryRow(
			fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE name = ?", migrationTable), file,
		).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if n > 0 {
			continue
		}
		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		up := upSection(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}

		tx, err := sqlDB.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (?, ?)", migrationTable),
			file, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
func upSection(content string) string {
	const upMarker, downMarker = "-- +migrate Up", "-- +migrate Down"
	up := strings.Index(content, upMarker)
	if up == -1 {
		return content
	}
	content = content[up+len(upMarker):]
	if down := strings.Index(content, downMarker); down != -1 {
		content = content[:down]
	}
	return content
}
