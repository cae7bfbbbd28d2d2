// Package ports defines the interfaces (driven and driving ports) between the
// FocusOS engine and its infrastructure, following hexagonal architecture.
package ports

import (
	"context"

	"github.com/xvierd/focusos/internal/domain"
)

// SessionRepository defines persistence for completed focus sessions.
// This is a driven port (implemented by adapters).
type SessionRepository interface {
	// Save upserts a session keyed by its ID.
	Save(ctx context.Context, session *domain.FocusSession) error

	// FindByID retrieves a session, or nil when it does not exist.
	FindByID(ctx context.Context, id string) (*domain.FocusSession, error)

	// FindByUser returns a user's sessions ordered by start time, newest first.
	FindByUser(ctx context.Context, userID string) ([]*domain.FocusSession, error)
}

// StatsRepository defines persistence for daily statistics.
// This is a driven port (implemented by adapters).
type StatsRepository interface {
	// Find returns the statistic for (userID, date), or nil when none exists.
	Find(ctx context.Context, userID, date string) (*domain.DailyStatistic, error)

	// Upsert replaces the statistic keyed by (UserID, Date).
	Upsert(ctx context.Context, stat *domain.DailyStatistic) error

	// FindRange returns stored statistics with from <= date <= to, ascending.
	FindRange(ctx context.Context, userID, from, to string) ([]*domain.DailyStatistic, error)
}

// HabitRepository defines persistence for habits.
// This is a driven port (implemented by adapters).
type HabitRepository interface {
	// Save upserts a habit keyed by its ID.
	Save(ctx context.Context, habit *domain.Habit) error

	// FindByUser returns a user's habits, oldest first.
	FindByUser(ctx context.Context, userID string) ([]*domain.Habit, error)

	// Delete removes one habit. Missing habits yield domain.ErrHabitNotFound.
	Delete(ctx context.Context, userID, id string) error
}

// Storage is the persistence gateway consumed by the services.
// This is a driven port (implemented by adapters).
type Storage interface {
	// Sessions provides access to session operations.
	Sessions() SessionRepository

	// Stats provides access to daily statistic operations.
	Stats() StatsRepository

	// Habits provides access to habit operations.
	Habits() HabitRepository

	// ClearAllUserData deletes every session, statistic and habit of a user.
	ClearAllUserData(ctx context.Context, userID string) error

	// Migrate creates the schema.
	Migrate() error

	// Close closes the storage connection.
	Close() error
}
