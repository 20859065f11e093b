package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/locvowork/tasktracker/internal/logger"
)

// Config describes the connection target and pool. Driver selects the dialect.
type Config struct {
	Driver          Dialect
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	ConnectBackoff  time.Duration
}

// DB is a connection pool paired with the dialect its queries are written for.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the configured driver, verifies connectivity and applies
// the embedded migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case Postgres, "":
		db, err = NewPostgresDB(ctx, cfg)
	case SQLite:
		db, err = NewSQLiteDB(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func NewPostgresDB(ctx context.Context, cfg Config) (*DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := pingWithRetry(ctx, sqlDB, cfg.ConnectRetries, ExponentialBackoff(backoffOrDefault(cfg.ConnectBackoff))); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.InfoLog(ctx, "Successfully connected to the PostgreSQL database at %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return &DB{DB: sqlDB, Dialect: Postgres}, nil
}

// NewSQLiteDB opens a file-backed SQLite database with foreign keys enforced.
// The pool is limited to one connection so writers never race for the lock.
func NewSQLiteDB(ctx context.Context, cfg Config) (*DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := pingWithRetry(ctx, sqlDB, cfg.ConnectRetries, ConstantBackoff(backoffOrDefault(cfg.ConnectBackoff))); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	logger.DebugLog(ctx, "Opened SQLite database at %s", path)
	return &DB{DB: sqlDB, Dialect: SQLite}, nil
}

// Rebind rewrites a query written with ? placeholders for this pool's dialect.
func (db *DB) Rebind(query string) string {
	return db.Dialect.Rebind(query)
}

func backoffOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
