// Package notification provides desktop notifications and the single-slot
// deadline alarm built on them.
package notification

import (
	"time"

	"github.com/gen2brain/beeep"
	"github.com/xvierd/focusos/internal/config"
	"github.com/xvierd/focusos/internal/domain"
)

// Notifier handles desktop notifications.
type Notifier struct {
	cfg    *config.NotificationConfig
	notify func(title, message string) error
}

// New creates a new notifier with the given configuration.
func New(cfg *config.NotificationConfig) *Notifier {
	return &Notifier{
		cfg: cfg,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Notify displays a desktop notification if enabled.
func (n *Notifier) Notify(title, message string) error {
	if !n.IsEnabled() {
		return nil
	}
	return n.notify(title, message)
}

// NotifyGoalReached tells the user the planned focus time is up.
func (n *Notifier) NotifyGoalReached() error {
	return n.Notify("Focus goal reached", "Your planned focus time is up. End the session when you're ready.")
}

// NotifySessionEnded summarizes a completed session.
func (n *Notifier) NotifySessionEnded(session domain.FocusSession) error {
	return n.Notify("Session complete", domain.Summary(session, time.Now()))
}

// IsEnabled returns true if notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	return n.cfg != nil && n.cfg.Enabled
}
