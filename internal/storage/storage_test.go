package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/batch"
	"github.com/cory-johannsen/skirmish/internal/storage/sqlite"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func TestOpen_Memory(t *testing.T) {
	store, err := Open(context.Background(), config.Config{Storage: config.StorageConfig{Backend: "memory"}}, nil)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &batch.MemoryStore{}, store)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.Config{Storage: config.StorageConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "results.db"),
	}}
	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &sqlite.Store{}, store)
	testutil.ExerciseResultStore(t, store)
}

func TestOpen_Postgres(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	cfg := config.Config{Storage: config.StorageConfig{Backend: "postgres"}, Database: pc.Config}
	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()
	testutil.ExerciseResultStore(t, store)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.Config{Storage: config.StorageConfig{Backend: "tape"}}, nil)
	assert.Error(t, err)
}
