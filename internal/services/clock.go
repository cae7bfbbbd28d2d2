package services

import (
	"time"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

type systemClock struct{}

// NewSystemClock returns a ports.Clock backed by the time package.
func NewSystemClock() ports.Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTicker(d time.Duration) ports.Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// StaticIdentity is an IdentityProvider for a fixed, configured user.
// The empty string means no user is signed in.
type StaticIdentity string

// CurrentUserID implements ports.IdentityProvider.
func (s StaticIdentity) CurrentUserID() (string, bool) {
	return string(s), s != ""
}

// resolveUser returns the current user or ErrNoUser.
func resolveUser(identity ports.IdentityProvider) (string, error) {
	if identity == nil {
		return "", domain.ErrNoUser
	}
	id, ok := identity.CurrentUserID()
	if !ok || id == "" {
		return "", domain.ErrNoUser
	}
	return id, nil
}
