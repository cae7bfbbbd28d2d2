package ports

import "time"

// Clock abstracts wall-clock time and periodic ticks so the engine can be
// driven by simulated time in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// IdentityProvider reports the signed-in user.
type IdentityProvider interface {
	// CurrentUserID returns the current user identifier, or false when no
	// user is signed in.
	CurrentUserID() (string, bool)
}
