package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdle     time.Duration
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// Open connects with the configured driver and waits for the database with
// exponential backoff. SQLite is limited to one connection, which serializes
// every statement in the process.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*sql.DB, error) {
	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite {
		dsn = cfg.Path
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdle)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)
	backoff := 500 * time.Millisecond
	for {
		err := db.PingContext(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			_ = db.Close()
			return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
		}
		logger.Warn("database not ready yet", zap.String("driver", cfg.Driver), zap.Error(err))
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}

	if cfg.Driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	for _, stmt := range schema(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func schema(driver string) []string {
	serial := "BIGSERIAL PRIMARY KEY"
	if driver == DriverSQLite {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS actors (
			actor_id BIGINT PRIMARY KEY,
			role TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'ru',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			id ` + serial + `,
			actor_id BIGINT NOT NULL UNIQUE REFERENCES actors(actor_id),
			full_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			course TEXT NOT NULL,
			major TEXT NOT NULL,
			about TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS employers (
			id ` + serial + `,
			actor_id BIGINT NOT NULL UNIQUE REFERENCES actors(actor_id),
			company_name TEXT NOT NULL,
			contact_phone TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS postings (
			id ` + serial + `,
			employer_id BIGINT NOT NULL REFERENCES employers(id),
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			salary TEXT NOT NULL DEFAULT '',
			requirements TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS applications (
			id ` + serial + `,
			posting_id BIGINT NOT NULL REFERENCES postings(id) ON DELETE CASCADE,
			student_id BIGINT NOT NULL REFERENCES students(id),
			status TEXT NOT NULL DEFAULT 'pending',
			applied_at TEXT NOT NULL,
			reviewed_at TEXT,
			notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS applications_posting_student_idx ON applications (posting_id, student_id)`,
		`CREATE INDEX IF NOT EXISTS postings_employer_idx ON postings (employer_id)`,
	}
}
