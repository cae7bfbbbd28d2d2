// Package storage provides SQLite implementations of the storage ports.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xvierd/focusos/internal/ports"
	"modernc.org/sqlite"
)

// sqliteStorage implements the ports.Storage interface using SQLite.
type sqliteStorage struct {
	db          *sql.DB
	sessionRepo ports.SessionRepository
	statsRepo   ports.StatsRepository
	habitRepo   ports.HabitRepository
}

// Ensure sqliteStorage implements ports.Storage.
var _ ports.Storage = (*sqliteStorage)(nil)

// New creates a new SQLite storage instance.
func New(dbPath string) (ports.Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: writers are serialized and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	storage := &sqliteStorage{
		db:          db,
		sessionRepo: newSessionRepository(db),
		statsRepo:   newStatsRepository(db),
		habitRepo:   newHabitRepository(db),
	}

	if err := storage.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

// NewMemory creates a new in-memory SQLite storage instance for testing.
func NewMemory() (ports.Storage, error) {
	return New(":memory:")
}

// Sessions returns the session repository.
func (s *sqliteStorage) Sessions() ports.SessionRepository {
	return s.sessionRepo
}

// Stats returns the daily statistic repository.
func (s *sqliteStorage) Stats() ports.StatsRepository {
	return s.statsRepo
}

// Habits returns the habit repository.
func (s *sqliteStorage) Habits() ports.HabitRepository {
	return s.habitRepo
}

// ClearAllUserData deletes a user's sessions, statistics and habits in one
// transaction.
func (s *sqliteStorage) ClearAllUserData(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"sessions", "daily_stats", "habits"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// Migrate creates the database schema.
func (s *sqliteStorage) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		focus_score REAL NOT NULL,
		distractions TEXT NOT NULL DEFAULT '[]',
		tag TEXT,
		planned_duration INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_start ON sessions(user_id, start_time);

	CREATE TABLE IF NOT EXISTS daily_stats (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		total_focus_time INTEGER NOT NULL DEFAULT 0,
		session_count INTEGER NOT NULL DEFAULT 0,
		avg_productivity_score REAL NOT NULL DEFAULT 0,
		distraction_count INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME,
		PRIMARY KEY (user_id, date)
	);

	CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		icon TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	sqliteErr, ok := err.(*sqlite.Error)
	return ok && sqliteErr.Code() == 2067 // SQLITE_CONSTRAINT_UNIQUE
}
