package ports

import (
	"context"
	"time"

	"github.com/xvierd/focusos/internal/domain"
)

// MCPHandler defines the interface for MCP server operations.
// This is a driving port (called by the application layer).
type MCPHandler interface {
	// Start begins serving MCP requests.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the server.
	Stop() error

	// IsRunning returns true if the server is active.
	IsRunning() bool
}

// MCPStateProvider exposes the engine and its history to the MCP server.
// This is a driven port (implemented by the services layer).
type MCPStateProvider interface {
	// GetCurrentState returns the engine snapshot and today's statistic.
	GetCurrentState(ctx context.Context) (*domain.CurrentState, error)

	// StartSession begins a focus session.
	StartSession(ctx context.Context, tag *string, planned *time.Duration) (*domain.FocusSession, error)

	// PauseSession pauses the running session; false when there is none.
	PauseSession(ctx context.Context) (*domain.FocusSession, bool)

	// ResumeSession resumes the paused session; false when there is none.
	ResumeSession(ctx context.Context) (*domain.FocusSession, bool)

	// LogDistraction records a distraction on the running session.
	LogDistraction(ctx context.Context, description string) (*domain.DistractionRecord, bool)

	// EndSession completes the active session.
	EndSession(ctx context.Context) (*domain.FocusSession, bool)

	// GetDailyStats returns the statistic for a YYYY-MM-DD day.
	GetDailyStats(ctx context.Context, date string) (*domain.DailyStatistic, error)

	// ListSessions returns the most recent persisted sessions.
	ListSessions(ctx context.Context, limit int) ([]*domain.FocusSession, error)

	// AddHabit creates a habit for the current user.
	AddHabit(ctx context.Context, name, icon string) (*domain.Habit, error)

	// ListHabits returns the current user's habits.
	ListHabits(ctx context.Context) ([]*domain.Habit, error)

	// DeleteHabit removes one of the current user's habits.
	DeleteHabit(ctx context.Context, id string) error
}
