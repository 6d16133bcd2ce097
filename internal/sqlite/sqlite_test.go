package sqlite_test

import (
	"context"
	"github.com/myrjola/caselink/internal/sqlite"
	"github.com/myrjola/caselink/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"path/filepath"
	"testing"
)

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)

	t.Run("in-memory databases are isolated", func(t *testing.T) {
		t.Parallel()
		first, err := sqlite.NewDatabase(ctx, ":memory:", logger)
		require.NoError(t, err)
		second, err := sqlite.NewDatabase(ctx, ":memory:", logger)
		require.NoError(t, err)

		_, err = first.ReadWrite.ExecContext(ctx, `INSERT INTO cases (id, case_number, title, created_at, updated_at)
VALUES ('c-1', 'CN-1', 'Break-in', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
		require.NoError(t, err)

		var count int
		require.NoError(t, first.ReadOnly.GetContext(ctx, &count, "SELECT COUNT(*) FROM cases"))
		require.Equal(t, 1, count)
		require.NoError(t, second.ReadOnly.GetContext(ctx, &count, "SELECT COUNT(*) FROM cases"))
		require.Equal(t, 0, count)

		require.NoError(t, first.Close(ctx))
		require.NoError(t, second.Close(ctx))
	})

	t.Run("read-only pool rejects writes", func(t *testing.T) {
		t.Parallel()
		db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close(ctx) })
		_, err = db.ReadOnly.ExecContext(ctx, "DELETE FROM cases")
		require.Error(t, err)
	})

	t.Run("file database keeps data across reopen", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "caselink.sqlite")
		db, err := sqlite.NewDatabase(ctx, path, logger)
		require.NoError(t, err)
		_, err = db.ReadWrite.ExecContext(ctx, `INSERT INTO cases (id, case_number, title, created_at, updated_at)
VALUES ('c-1', 'CN-1', 'Break-in', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
		require.NoError(t, err)
		require.NoError(t, db.Close(ctx))

		db, err = sqlite.NewDatabase(ctx, path, logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close(ctx) })
		var count int
		require.NoError(t, db.ReadOnly.GetContext(ctx, &count, "SELECT COUNT(*) FROM cases"))
		require.Equal(t, 1, count)
	})
}
