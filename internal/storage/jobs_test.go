package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobPutGet(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	jobs := db.Jobs()
	ctx := context.Background()
	fireAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, jobs.Put(ctx, Job{JobID: "j1", FireTime: fireAt, ChatID: 42, Text: "hi"}))

	j, err := jobs.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, JobPending, j.State)
	assert.Equal(t, int64(42), j.ChatID)
	assert.True(t, j.FireTime.Equal(fireAt))

	_, err = jobs.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobPutResetsTerminalState(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	jobs := db.Jobs()
	ctx := context.Background()
	fireAt := time.Now().UTC()

	require.NoError(t, jobs.Put(ctx, Job{JobID: "j1", FireTime: fireAt, ChatID: 1, Text: "a"}))
	require.NoError(t, jobs.SetState(ctx, "j1", JobFired))

	// Re-arming the same id replaces the fired row with a fresh pending one.
	require.NoError(t, jobs.Put(ctx, Job{JobID: "j1", FireTime: fireAt.Add(time.Hour), ChatID: 1, Text: "b"}))
	j, err := jobs.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, JobPending, j.State)
	assert.Equal(t, "b", j.Text)
}

func TestJobTerminalStatesAreImmutable(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	jobs := db.Jobs()
	ctx := context.Background()

	require.NoError(t, jobs.Put(ctx, Job{JobID: "j1", FireTime: time.Now(), ChatID: 1, Text: "a"}))
	require.NoError(t, jobs.SetState(ctx, "j1", JobCancelled))

	// A cancelled job does not transition to fired.
	require.NoError(t, jobs.SetState(ctx, "j1", JobFired))
	j, err := jobs.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, JobCancelled, j.State)
}

func TestJobDeleteStalePendingBefore(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	jobs := db.Jobs()
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, jobs.Put(ctx, storageJob("old-pending", now.Add(-48*time.Hour))))
	require.NoError(t, jobs.Put(ctx, storageJob("live-pending", now.Add(time.Hour))))
	require.NoError(t, jobs.Put(ctx, storageJob("old-fired", now.Add(-48*time.Hour))))
	require.NoError(t, jobs.SetState(ctx, "old-fired", JobFired))

	n, err := jobs.DeleteStalePendingBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = jobs.Get(ctx, "old-pending")
	assert.ErrorIs(t, err, ErrNotFound)
	// Live pending rows and terminal rows are someone else's business.
	_, err = jobs.Get(ctx, "live-pending")
	assert.NoError(t, err)
	_, err = jobs.Get(ctx, "old-fired")
	assert.NoError(t, err)
}

func storageJob(id string, fireAt time.Time) Job {
	return Job{JobID: id, FireTime: fireAt, ChatID: 1, Text: "x"}
}

func TestJobDeleteTerminalBefore(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	jobs := db.Jobs()
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, jobs.Put(ctx, Job{JobID: "old-fired", FireTime: now.Add(-48 * time.Hour), ChatID: 1}))
	require.NoError(t, jobs.SetState(ctx, "old-fired", JobFired))
	require.NoError(t, jobs.Put(ctx, Job{JobID: "old-pending", FireTime: now.Add(-48 * time.Hour), ChatID: 1}))
	require.NoError(t, jobs.Put(ctx, Job{JobID: "new-fired", FireTime: now.Add(-time.Minute), ChatID: 1}))
	require.NoError(t, jobs.SetState(ctx, "new-fired", JobFired))

	n, err := jobs.DeleteTerminalBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Pending rows survive the purge even when old.
	_, err = jobs.Get(ctx, "old-pending")
	assert.NoError(t, err)
	_, err = jobs.Get(ctx, "new-fired")
	assert.NoError(t, err)
	_, err = jobs.Get(ctx, "old-fired")
	assert.ErrorIs(t, err, ErrNotFound)
}
