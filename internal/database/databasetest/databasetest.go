// Package databasetest opens throwaway SQLite databases for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/locvowork/tasktracker/internal/database"
)

// Open returns a migrated SQLite database under t.TempDir. It is closed when
// the test finishes.
func Open(t testing.TB) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Driver: database.SQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
