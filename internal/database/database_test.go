package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: SQLite, Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRebind(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		got := Postgres.Rebind("SELECT * FROM tasks WHERE id = ? AND user_id = ? LIMIT ?")
		assert.Equal(t, "SELECT * FROM tasks WHERE id = $1 AND user_id = $2 LIMIT $3", got)
	})

	t.Run("PostgresSkipsQuotedLiterals", func(t *testing.T) {
		got := Postgres.Rebind("SELECT '?' AS q, id FROM tasks WHERE id = ?")
		assert.Equal(t, "SELECT '?' AS q, id FROM tasks WHERE id = $1", got)
	})

	t.Run("SQLiteUnchanged", func(t *testing.T) {
		q := "SELECT * FROM tasks WHERE id = ?"
		assert.Equal(t, q, SQLite.Rebind(q))
	})
}

func TestLockClause(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", Postgres.LockClause())
	assert.Equal(t, "", SQLite.LockClause())
}

func TestBackoff(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		backoff := ConstantBackoff(5 * time.Millisecond)
		assert.Equal(t, 5*time.Millisecond, backoff(1))
		assert.Equal(t, 5*time.Millisecond, backoff(7))
	})

	t.Run("Exponential", func(t *testing.T) {
		backoff := ExponentialBackoff(10 * time.Millisecond)
		assert.Equal(t, 10*time.Millisecond, backoff(0))
		assert.Equal(t, 10*time.Millisecond, backoff(1))
		assert.Equal(t, 20*time.Millisecond, backoff(2))
		assert.Equal(t, 40*time.Millisecond, backoff(3))
		assert.Equal(t, 80*time.Millisecond, backoff(4))
	})

	t.Run("Default", func(t *testing.T) {
		assert.Equal(t, 500*time.Millisecond, backoffOrDefault(0))
		assert.Equal(t, time.Second, backoffOrDefault(time.Second))
	})
}

func TestPingWithRetry(t *testing.T) {
	db := openSQLite(t, filepath.Join(t.TempDir(), "ping.db"))
	require.NoError(t, pingWithRetry(context.Background(), db.DB, 2, ConstantBackoff(time.Millisecond)))

	require.NoError(t, db.Close())
	attempts := 0
	err := pingWithRetry(context.Background(), db.DB, 2, func(int) time.Duration {
		attempts++
		return time.Millisecond
	})
	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestOpen(t *testing.T) {
	t.Run("UnsupportedDriver", func(t *testing.T) {
		_, err := Open(context.Background(), Config{Driver: "mysql"})
		assert.Error(t, err)
	})

	t.Run("SQLiteRequiresPath", func(t *testing.T) {
		_, err := Open(context.Background(), Config{Driver: SQLite})
		assert.Error(t, err)
	})

	t.Run("MigrationsAppliedOnce", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracker.db")
		first := openSQLite(t, path)
		require.NoError(t, first.Close())

		second := openSQLite(t, path)
		var count int
		require.NoError(t, second.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.Equal(t, 1, count)

		for _, table := range []string{"users", "tasks", "subtasks"} {
			var name string
			err := second.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
			assert.NoError(t, err, table)
		}
	})

	t.Run("ForeignKeysEnforced", func(t *testing.T) {
		db := openSQLite(t, filepath.Join(t.TempDir(), "fk.db"))
		_, err := db.Exec("INSERT INTO tasks (title, completed, created_at, user_id) VALUES ('orphan', 0, CURRENT_TIMESTAMP, 999)")
		assert.Error(t, err)
	})
}

func TestApplyMigrations(t *testing.T) {
	db := openSQLite(t, filepath.Join(t.TempDir(), "custom.db"))
	ctx := context.Background()

	fsys := fstest.MapFS{
		"custom/0002_notes.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE notes (id INTEGER PRIMARY KEY);\n-- +migrate Down\nDROP TABLE notes;\n")},
		"custom/README.md":      {Data: []byte("ignored")},
	}
	require.NoError(t, ApplyMigrations(ctx, db, fsys, "custom"))
	require.NoError(t, ApplyMigrations(ctx, db, fsys, "custom"))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE name = '0002_notes.sql'").Scan(&count))
	assert.Equal(t, 1, count)

	t.Run("FailedMigrationNotRecorded", func(t *testing.T) {
		bad := fstest.MapFS{
			"bad/0003_broken.sql": {Data: []byte("CREATE TABLE broken (")},
		}
		assert.Error(t, ApplyMigrations(ctx, db, bad, "bad"))

		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE name = '0003_broken.sql'").Scan(&n))
		assert.Equal(t, 0, n)
	})
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id INT);\n", ExtractUpMigration(content))
	assert.Equal(t, "CREATE TABLE b (id INT);", ExtractUpMigration("CREATE TABLE b (id INT);"))
}

func TestUniqueViolation(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Table: "users", Constraint: "users_username_key"}
		column, ok := UniqueViolation(err)
		assert.True(t, ok)
		assert.Equal(t, "username", column)

		_, ok = UniqueViolation(&pq.Error{Code: "23503"})
		assert.False(t, ok)
	})

	t.Run("SQLite", func(t *testing.T) {
		db := openSQLite(t, filepath.Join(t.TempDir(), "unique.db"))
		insert := "INSERT INTO users (email, username, hashed_password, created_at) VALUES (?, ?, 'x', CURRENT_TIMESTAMP)"
		_, err := db.Exec(insert, "a@example.com", "alice")
		require.NoError(t, err)

		_, err = db.Exec(insert, "a@example.com", "other")
		column, ok := UniqueViolation(err)
		assert.True(t, ok)
		assert.Equal(t, "email", column)

		_, err = db.Exec(insert, "b@example.com", "alice")
		column, ok = UniqueViolation(err)
		assert.True(t, ok)
		assert.Equal(t, "username", column)
	})

	t.Run("Other", func(t *testing.T) {
		_, ok := UniqueViolation(errors.New("connection refused"))
		assert.False(t, ok)
		_, ok = UniqueViolation(nil)
		assert.False(t, ok)
	})
}
