package batch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a batch record does not exist.
var ErrNotFound = errors.New("batch not found")

// Record is a finished batch as persisted by a ResultStore.
type Record struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Scenario   string    `json:"scenario"`
	Count      int       `json:"count"`
	BaseSeed   int64     `json:"base_seed"`
	MaxTurns   int       `json:"max_turns"`
	Stats      *Stats    `json:"stats"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ResultStore persists finished batches.
type ResultStore interface {
	SaveBatch(ctx context.Context, rec Record) error
	// Batch returns ErrNotFound when id is unknown.
	Batch(ctx context.Context, id uuid.UUID) (Record, error)
	// ListBatches returns up to limit records, newest first.
	ListBatches(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// MemoryStore is an in-process ResultStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]Record)}
}

// SaveBatch implements ResultStore.
func (m *MemoryStore) SaveBatch(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

// Batch implements ResultStore.
func (m *MemoryStore) Batch(ctx context.Context, id uuid.UUID) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// ListBatches implements ResultStore.
func (m *MemoryStore) ListBatches(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FinishedAt.Equal(out[j].FinishedAt) {
			return out[i].FinishedAt.After(out[j].FinishedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements ResultStore.
func (m *MemoryStore) Close() error { return nil }
