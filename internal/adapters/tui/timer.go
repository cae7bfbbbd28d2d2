package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// eventBuffer bounds the events waiting for the update loop.
const eventBuffer = 64

// Run shows the timer for the engine's current session and blocks until the
// user quits or ctx is cancelled. It returns the session ended from the
// timer, if any.
func Run(ctx context.Context, engine ports.EngineController, theme Theme) (*domain.FocusSession, error) {
	events := make(chan domain.Event, eventBuffer)
	unsubscribe := engine.Subscribe(forwardEvents(events))
	defer unsubscribe()

	model := NewModel(engine, events, theme)
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil {
		model.width, model.height = w, h
		model.progress.Width = progressWidth(w)
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, fmt.Errorf("failed to run TUI: %w", err)
	}

	if m, ok := final.(Model); ok {
		return m.Ended(), nil
	}
	return nil, nil
}

// forwardEvents returns an engine subscriber feeding events. Engine
// subscribers run on the goroutine that changed the engine, which may be the
// update loop itself, so a full buffer drops the event instead of blocking;
// the model re-reads the engine snapshot on the next event it does receive.
func forwardEvents(events chan<- domain.Event) func(domain.Event) {
	return func(ev domain.Event) {
		select {
		case events <- ev:
		default:
		}
	}
}
