// Package db implements the record store for attendance entries and the
// member roster on SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the attendance database.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrOpenExists is returned when creating an in-progress entry for a
	// slot that already has one.
	ErrOpenExists = errors.New("open entry already exists")
	// ErrMultipleOpen is returned when a slot unexpectedly holds more than
	// one in-progress entry (data written before the unique index existed).
	ErrMultipleOpen = errors.New("multiple open entries for slot")
)

// New opens the database at path and runs migrations.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, err
	}

	return &DB{DB: sqlDB, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			hall TEXT NOT NULL,
			role TEXT NOT NULL,
			member_names TEXT NOT NULL DEFAULT '[]',
			date TEXT NOT NULL,
			check_in DATETIME NOT NULL,
			check_out DATETIME,
			minutes INTEGER,
			status TEXT NOT NULL DEFAULT 'IN_PROGRESS',
			memo TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// At most one IN_PROGRESS entry per (date, hall, role). The original
		// deployment asserted this only in application code; enforcing it
		// here closes the two-kiosk check-in race.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_open_slot
			ON entries(date, hall, role) WHERE status = 'IN_PROGRESS'`,

		`CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_members_role_key ON members(role, name_key)`,
		`CREATE INDEX IF NOT EXISTS idx_members_active ON members(role, active)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Ping checks the connection, for readiness probes.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}
