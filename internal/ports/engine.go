package ports

import "github.com/xvierd/focusos/internal/domain"

// EngineController is the set of session operations a presentation layer
// drives. Mutating calls with no applicable session return false and change
// nothing.
type EngineController interface {
	Start(req domain.StartRequest) (*domain.FocusSession, error)
	Pause() (*domain.FocusSession, bool)
	Resume() (*domain.FocusSession, bool)
	LogDistraction(description string) (*domain.DistractionRecord, bool)
	End() (*domain.FocusSession, bool)
	Snapshot() domain.EngineSnapshot
	History() []domain.FocusSession

	// Subscribe registers fn for every engine event and returns a function
	// that removes it.
	Subscribe(fn func(domain.Event)) func()
}
