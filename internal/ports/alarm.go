package ports

import "time"

// AlarmScheduler delivers the "planned duration reached" notification.
// Implementations hold a single slot: Schedule replaces any pending alarm, so
// at most one deadline is outstanding at a time.
// This is a driven port (implemented by adapters).
type AlarmScheduler interface {
	// Schedule arms the alarm to fire once after the given delay.
	Schedule(after time.Duration) error

	// Cancel disarms the pending alarm, if any.
	Cancel()
}
