package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"remindbot/pkg/logx"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()
	in := time.Date(2026, 3, 14, 15, 9, 26, 535000000, time.FixedZone("X", 3*3600))
	out, err := decodeTime(encodeTime(in))
	require.NoError(t, err)
	require.True(t, out.Equal(in), "got %v, want %v", out, in)
}
