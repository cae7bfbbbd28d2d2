// Package domain contains the core entities of the FocusOS engine: focus
// sessions, the distractions logged against them, the per-day statistics
// folded from completed sessions, and habits. Nothing here depends on storage
// or presentation.
package domain

import "errors"

// Common domain errors.
var (
	ErrSessionAlreadyActive = errors.New("session already active")
	ErrNoUser               = errors.New("no current user")
	ErrHabitNotFound        = errors.New("habit not found")
	ErrHabitExists          = errors.New("habit already exists")
	ErrEmptyHabitName       = errors.New("habit name cannot be empty")
	ErrInvalidDate          = errors.New("invalid date, expected YYYY-MM-DD")
)
