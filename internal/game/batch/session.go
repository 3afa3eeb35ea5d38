package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned when a closed session is used.
var ErrSessionClosed = errors.New("session closed")

// Session is a caller-owned handle on a result store. It is created with
// NewSession and must be released with Close.
type Session struct {
	ID      uuid.UUID
	Created time.Time

	store  ResultStore
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewSession returns an open session over store. A nil logger selects a
// no-op logger.
func NewSession(store ResultStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()
	return &Session{
		ID:      id,
		Created: time.Now().UTC(),
		store:   store,
		logger:  logger.With(zap.String("session", id.String())),
	}
}

// Store returns the session's result store.
func (s *Session) Store() ResultStore { return s.store }

// Save persists rec, stamping it with the session ID.
func (s *Session) Save(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if rec.Stats == nil {
		return fmt.Errorf("batch %s has no stats", rec.ID)
	}
	rec.SessionID = s.ID
	if err := s.store.SaveBatch(ctx, rec); err != nil {
		return fmt.Errorf("saving batch %s: %w", rec.ID, err)
	}
	s.logger.Info("batch saved",
		zap.String("batch", rec.ID.String()),
		zap.Int("completed", rec.Stats.Completed),
		zap.Int("failed", rec.Stats.Failed),
	)
	return nil
}

// Close releases the session and its store. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("closing result store: %w", err)
	}
	return nil
}
