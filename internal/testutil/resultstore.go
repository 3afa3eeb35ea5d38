package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/batch"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
)

// SampleRecord builds a batch record finishing at finished with small,
// distinctive statistics. Times are truncated to milliseconds so stores that
// persist epoch millis round-trip exactly.
func SampleRecord(scenario string, finished time.Time) batch.Record {
	stats := batch.NewStats()
	stats.Completed = 9
	stats.Failed = 1
	stats.WinsA = 5
	stats.WinsB = 3
	stats.Draws = 1
	stats.Decisions = [4]int{1, 2, 4, 2}
	stats.TurnsSum = 41
	stats.VPSum = [2]int64{60, 33}
	stats.VPSqSum = [2]int64{500, 200}
	stats.Units["intercessors"] = batch.UnitStats{
		Player:          battlefield.PlayerA,
		Battles:         9,
		Survived:        7,
		StartingModels:  45,
		SurvivingModels: 30,
	}
	stats.Failures = []batch.Failure{{Index: 4, Seed: 104, Message: "boom"}}

	finished = finished.UTC().Truncate(time.Millisecond)
	return batch.Record{
		ID:         uuid.New(),
		SessionID:  uuid.New(),
		Scenario:   scenario,
		Count:      10,
		BaseSeed:   100,
		MaxTurns:   5,
		Stats:      stats,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

// ExerciseResultStore runs the behaviour every batch.ResultStore must share.
// The store must be empty on entry.
func ExerciseResultStore(t *testing.T, store batch.ResultStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Batch(ctx, uuid.New())
	require.ErrorIs(t, err, batch.ErrNotFound)

	older := SampleRecord("crucible", base)
	newer := SampleRecord("hammer_and_anvil", base.Add(time.Hour))
	require.NoError(t, store.SaveBatch(ctx, older))
	require.NoError(t, store.SaveBatch(ctx, newer))

	got, err := store.Batch(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)
	assert.Equal(t, older.SessionID, got.SessionID)
	assert.Equal(t, "crucible", got.Scenario)
	assert.Equal(t, older.Count, got.Count)
	assert.Equal(t, older.BaseSeed, got.BaseSeed)
	assert.True(t, older.FinishedAt.Equal(got.FinishedAt), "finished_at %v != %v", got.FinishedAt, older.FinishedAt)
	assert.True(t, older.StartedAt.Equal(got.StartedAt))
	require.NotNil(t, got.Stats)
	assert.Equal(t, older.Stats.WinsA, got.Stats.WinsA)
	assert.Equal(t, older.Stats.Decisions, got.Stats.Decisions)
	assert.Equal(t, older.Stats.VPSqSum, got.Stats.VPSqSum)
	assert.Equal(t, older.Stats.Units, got.Stats.Units)
	assert.Equal(t, older.Stats.Failures, got.Stats.Failures)

	all, err := store.ListBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID, "newest first")
	assert.Equal(t, older.ID, all[1].ID)

	limited, err := store.ListBatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.ID, limited[0].ID)

	// saving an existing ID replaces it
	older.Scenario = "renamed"
	require.NoError(t, store.SaveBatch(ctx, older))
	got, err = store.Batch(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Scenario)
	all, err = store.ListBatches(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
