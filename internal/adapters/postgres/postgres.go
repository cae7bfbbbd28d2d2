// Package postgres provides a PostgreSQL implementation of the storage ports
// for the hosted backend. Records use the same shape as the SQLite store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xvierd/focusos/internal/ports"
)

// Storage implements ports.Storage on a pgx connection pool.
type Storage struct {
	pool     *pgxpool.Pool
	sessions *SessionRepository
	stats    *StatsRepository
	habits   *HabitRepository
}

// Ensure Storage implements ports.Storage.
var _ ports.Storage = (*Storage)(nil)

// New connects to databaseURL, verifies the connection and creates the schema.
func New(ctx context.Context, databaseURL string) (*Storage, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required for PostgreSQL")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewWithPool(pool)
	if err := s.Migrate(); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool wraps an existing pool without migrating.
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{
		pool:     pool,
		sessions: NewSessionRepository(pool),
		stats:    NewStatsRepository(pool),
		habits:   NewHabitRepository(pool),
	}
}

// Sessions returns the session repository.
func (s *Storage) Sessions() ports.SessionRepository { return s.sessions }

// Stats returns the daily statistic repository.
func (s *Storage) Stats() ports.StatsRepository { return s.stats }

// Habits returns the habit repository.
func (s *Storage) Habits() ports.HabitRepository { return s.habits }

// ClearAllUserData deletes a user's sessions, statistics and habits in one
// transaction.
func (s *Storage) ClearAllUserData(ctx context.Context, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range []string{"focus_sessions", "daily_stats", "habits"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Storage) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS focus_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		focus_score DOUBLE PRECISION NOT NULL,
		distractions JSONB NOT NULL DEFAULT '[]',
		tag TEXT,
		planned_duration BIGINT
	);

	CREATE INDEX IF NOT EXISTS idx_focus_sessions_user_start ON focus_sessions(user_id, start_time DESC);

	CREATE TABLE IF NOT EXISTS daily_stats (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		total_focus_time BIGINT NOT NULL DEFAULT 0,
		session_count INTEGER NOT NULL DEFAULT 0,
		avg_productivity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		distraction_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ,
		PRIMARY KEY (user_id, date)
	);

	CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		icon TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, name)
	);
	`

	if _, err := s.pool.Exec(context.Background(), schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation reports a unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
