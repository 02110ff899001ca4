package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderInsertAndList(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := db.Reminders()
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	first, err := store.Insert(ctx, Reminder{
		UserID:     7,
		ChatID:     7,
		Text:       "buy milk",
		RemindTime: now.Add(2 * time.Hour),
		CreatedAt:  now,
		JobID:      "reminder_7_a",
	})
	require.NoError(t, err)
	assert.Greater(t, first.ID, int64(0))

	second, err := store.Insert(ctx, Reminder{
		UserID:     7,
		ChatID:     7,
		Text:       "call mom",
		RemindTime: now.Add(time.Hour),
		CreatedAt:  now,
		JobID:      "reminder_7_b",
	})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	got, err := store.ListActiveForUser(ctx, 7, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Soonest first.
	assert.Equal(t, "call mom", got[0].Text)
	assert.Equal(t, "buy milk", got[1].Text)
	assert.True(t, got[0].RemindTime.Equal(now.Add(time.Hour)))

	// Another user sees nothing.
	other, err := store.ListActiveForUser(ctx, 8, now)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReminderDuplicateJobID(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := db.Reminders()
	ctx := context.Background()
	now := time.Now()

	_, err := store.Insert(ctx, Reminder{UserID: 1, ChatID: 1, Text: "a", RemindTime: now.Add(time.Hour), JobID: "dup"})
	require.NoError(t, err)

	_, err = store.Insert(ctx, Reminder{UserID: 2, ChatID: 2, Text: "b", RemindTime: now.Add(time.Hour), JobID: "dup"})
	assert.ErrorIs(t, err, ErrDuplicateJobID)
}

func TestReminderListExcludesElapsed(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := db.Reminders()
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, Reminder{UserID: 1, ChatID: 1, Text: "past", RemindTime: now.Add(-time.Minute), JobID: "p"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, Reminder{UserID: 1, ChatID: 1, Text: "future", RemindTime: now.Add(time.Minute), JobID: "f"})
	require.NoError(t, err)

	got, err := store.ListActiveForUser(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "future", got[0].Text)

	all, err := store.ListAllActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "f", all[0].JobID)
}

func TestReminderDeleteByID(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := db.Reminders()
	ctx := context.Background()

	rem, err := store.Insert(ctx, Reminder{UserID: 1, ChatID: 1, Text: "x", RemindTime: time.Now().Add(time.Hour), JobID: "job-x"})
	require.NoError(t, err)

	jobID, ok, err := store.DeleteByID(ctx, rem.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "job-x", jobID)

	// Second delete finds nothing and is not an error.
	_, ok, err = store.DeleteByID(ctx, rem.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReminderDeleteBefore(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := db.Reminders()
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, Reminder{UserID: 1, ChatID: 1, Text: "old", RemindTime: now.Add(-48 * time.Hour), JobID: "old"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, Reminder{UserID: 1, ChatID: 1, Text: "new", RemindTime: now.Add(time.Hour), JobID: "new"})
	require.NoError(t, err)

	n, err := store.DeleteBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := store.ListAllActive(ctx, now.Add(-100*time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].JobID)
}
