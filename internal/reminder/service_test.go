package reminder

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/internal/clock"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

type fixture struct {
	svc   *Service
	sched *scheduler.Service
	store *storage.ReminderStore
	mock  *bclock.Mock

	mu    sync.Mutex
	sends []string
}

func (f *fixture) deliver(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, text)
	return nil
}

func (f *fixture) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock := bclock.NewMock()
	mock.Set(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	clk := clock.NewMock(mock, time.UTC)

	f := &fixture{mock: mock, store: db.Reminders()}
	f.sched = scheduler.New(clk, db.Jobs(), f.deliver, logx.Nop())
	f.svc = NewService(clk, f.store, f.sched, logx.Nop())
	return f
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	future := f.mock.Now().Add(time.Hour)

	_, err := f.svc.Create(ctx, 1, 1, "", future)
	assert.ErrorIs(t, err, ErrTextEmpty)

	_, err = f.svc.Create(ctx, 1, 1, "   \n\t ", future)
	assert.ErrorIs(t, err, ErrTextEmpty)

	_, err = f.svc.Create(ctx, 1, 1, strings.Repeat("x", MaxTextLen+1), future)
	assert.ErrorIs(t, err, ErrTextTooLong)

	// Exactly the limit is fine, and multibyte runes count as one.
	_, err = f.svc.Create(ctx, 1, 1, strings.Repeat("ы", MaxTextLen), future)
	assert.NoError(t, err)

	_, err = f.svc.Create(ctx, 1, 1, "too late", f.mock.Now().Add(-time.Second))
	assert.ErrorIs(t, err, ErrPastTime)

	// remind_time must be strictly in the future.
	_, err = f.svc.Create(ctx, 1, 1, "right now", f.mock.Now())
	assert.ErrorIs(t, err, ErrPastTime)

	assert.True(t, IsValidation(ErrTextEmpty))
	assert.True(t, IsValidation(ErrTextTooLong))
	assert.True(t, IsValidation(ErrPastTime))
}

func TestCreateListDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	future := f.mock.Now().Add(time.Hour)

	rem, err := f.svc.Create(ctx, 10, 20, "  water the plants  ", future)
	require.NoError(t, err)
	assert.Equal(t, "water the plants", rem.Text)
	assert.Contains(t, rem.JobID, "reminder_10_")
	assert.True(t, f.sched.Exists(rem.JobID))

	got, err := f.svc.ListForUser(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rem.ID, got[0].ID)

	ok, err := f.svc.Delete(ctx, rem.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, f.sched.Exists(rem.JobID))

	// Deleting an id that no longer exists reports false, not an error.
	ok, err = f.svc.Delete(ctx, rem.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = f.svc.ListForUser(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	// The cancelled timer never delivers.
	f.mock.Add(2 * time.Hour)
	assert.Empty(t, f.sent())
}

func TestCreateThenFire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, 1, "stand up", f.mock.Now().Add(30*time.Minute))
	require.NoError(t, err)

	f.mock.Add(time.Hour)
	require.Eventually(t, func() bool { return len(f.sent()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "stand up", f.sent()[0])
}
