package notification

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xvierd/focusos/internal/ports"
)

// Alarm delivers the goal-reached notification after a delay. It holds a
// single slot: scheduling replaces the pending alarm.
type Alarm struct {
	notifier *Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	slot  uint64
}

// Ensure Alarm implements ports.AlarmScheduler.
var _ ports.AlarmScheduler = (*Alarm)(nil)

// NewAlarm creates an alarm that fires through notifier.
func NewAlarm(notifier *Notifier, logger *slog.Logger) *Alarm {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alarm{notifier: notifier, logger: logger}
}

// Schedule arms the alarm to fire once after the given delay.
func (a *Alarm) Schedule(after time.Duration) error {
	if after <= 0 {
		return fmt.Errorf("alarm delay must be positive, got %s", after)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	slot := a.slot
	a.timer = time.AfterFunc(after, func() { a.fire(slot) })
	return nil
}

// Cancel disarms the pending alarm, if any.
func (a *Alarm) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Pending reports whether an alarm is armed.
func (a *Alarm) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// stopLocked stops the timer and invalidates its slot, so a callback that
// already started does nothing.
func (a *Alarm) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.slot++
}

func (a *Alarm) fire(slot uint64) {
	a.mu.Lock()
	if slot != a.slot {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.mu.Unlock()

	if err := a.notifier.NotifyGoalReached(); err != nil {
		a.logger.Warn("failed to deliver goal notification", "error", err)
	}
}
