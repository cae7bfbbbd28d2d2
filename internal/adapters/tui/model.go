// Package tui provides the interactive session timer using the Bubbletea
// framework.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// Theme holds the timer's colors.
type Theme struct {
	ColorRunning  string
	ColorPaused   string
	ColorTitle    string
	ColorHelp     string
	ColorGoal     string
	GradientStart string
	GradientEnd   string
}

// DefaultTheme returns the default colors.
func DefaultTheme() Theme {
	return Theme{
		ColorRunning:  "#7C6FE0",
		ColorPaused:   "#6B7280",
		ColorTitle:    "#6B7280",
		ColorHelp:     "#95A5A6",
		ColorGoal:     "#2ECC71",
		GradientStart: "#7C6FE0",
		GradientEnd:   "#A78BFA",
	}
}

// eventMsg carries an engine event into the update loop.
type eventMsg domain.Event

// eventsClosedMsg is sent once the event channel is closed.
type eventsClosedMsg struct{}

// Model is the timer view over one engine.
type Model struct {
	engine   ports.EngineController
	events   <-chan domain.Event
	snapshot domain.EngineSnapshot
	ended    *domain.FocusSession

	progress progress.Model
	input    textinput.Model
	help     help.Model
	keys     keyMap
	theme    Theme

	distractionMode bool
	lastDistraction string
	width           int
	height          int
}

// NewModel creates a timer model. Events are read from events until it is
// closed; the engine is the source of truth for every render.
func NewModel(engine ports.EngineController, events <-chan domain.Event, theme Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "what pulled you away?"
	ti.CharLimit = 120
	ti.Width = 40

	return Model{
		engine:   engine,
		events:   events,
		snapshot: engine.Snapshot(),
		progress: progress.New(progress.WithGradient(theme.GradientStart, theme.GradientEnd)),
		input:    ti,
		help:     help.New(),
		keys:     defaultKeyMap(),
		theme:    theme,
	}
}

// Ended returns the session completed through this model, if any.
func (m Model) Ended() *domain.FocusSession {
	return m.ended
}

// Init starts listening for engine events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// waitForEvent returns a command that blocks until the next engine event.
func waitForEvent(events <-chan domain.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = progressWidth(msg.Width)
		return m, nil

	case eventMsg:
		m.snapshot = m.engine.Snapshot()
		if msg.Type == domain.EventSessionEnded && m.ended == nil {
			session := msg.Session
			m.ended = &session
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, nil

	case tea.KeyMsg:
		if m.distractionMode {
			return m.updateDistractionInput(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.endSession()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Pause):
		switch m.snapshot.State {
		case domain.StateRunning:
			m.engine.Pause()
		case domain.StatePaused:
			m.engine.Resume()
		}

	case key.Matches(msg, m.keys.Distraction):
		if m.snapshot.State == domain.StateRunning {
			m.distractionMode = true
			m.input.Reset()
			m.input.Focus()
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.End):
		m.endSession()
	}

	m.snapshot = m.engine.Snapshot()
	return m, nil
}

// endSession ends the active session, if any, and keeps the result for the
// completion view.
func (m *Model) endSession() {
	if session, ok := m.engine.End(); ok {
		m.ended = session
	}
	m.snapshot = m.engine.Snapshot()
}

func (m Model) updateDistractionInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		description := m.input.Value()
		if _, ok := m.engine.LogDistraction(description); ok {
			m.lastDistraction = description
		}
		m.distractionMode = false
		m.input.Blur()
		m.snapshot = m.engine.Snapshot()
		return m, nil
	case tea.KeyEsc:
		m.distractionMode = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.ColorTitle)).MarginBottom(1)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorHelp))

	sections := []string{titleStyle.Render("FocusOS")}

	switch {
	case m.snapshot.IsSessionActive():
		sections = m.viewActiveSession(sections)
	case m.ended != nil:
		sections = m.viewCompleted(sections)
	default:
		sections = append(sections, helpStyle.Render("No active session"))
		sections = append(sections, "", helpStyle.Render("[q]uit"))
	}

	content := lipgloss.JoinVertical(lipgloss.Center, sections...)
	if m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) viewActiveSession(sections []string) []string {
	snap := m.snapshot
	session := snap.Session
	paused := snap.State == domain.StatePaused

	color := lipgloss.Color(m.theme.ColorRunning)
	if paused {
		color = lipgloss.Color(m.theme.ColorPaused)
	}
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorHelp))

	if tag := session.TagLabel(); tag != "" {
		sections = append(sections, helpStyle.Render("#"+tag))
	}

	// Count down toward a goal, count up otherwise.
	shown := snap.Elapsed
	if session.PlannedDuration != nil && !snap.GoalReached {
		shown = snap.Remaining()
	}
	sections = append(sections, "", renderClock(shown, color, m.width))

	if paused {
		badge := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(m.theme.ColorPaused)).
			Padding(0, 1).
			Render("PAUSED")
		sections = append(sections, "", badge)
	}

	if session.PlannedDuration != nil {
		sections = append(sections, "", m.progress.ViewAs(snap.Progress()))
	}

	if snap.GoalReached {
		goal := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.ColorGoal))
		sections = append(sections, "", goal.Render(fmt.Sprintf("Goal of %s reached. Keep going or end the session.", formatDuration(*session.PlannedDuration))))
	}

	if n := len(session.Distractions); n > 0 {
		line := fmt.Sprintf("Distractions: %d", n)
		if m.lastDistraction != "" {
			line += fmt.Sprintf(" (last: %s)", m.lastDistraction)
		}
		sections = append(sections, helpStyle.Render(line))
	}

	sections = append(sections, "")
	if m.distractionMode {
		sections = append(sections, helpStyle.Render("Log distraction: ")+m.input.View())
		sections = append(sections, helpStyle.Render("enter save · esc cancel"))
	} else {
		sections = append(sections, m.help.View(m.keys))
	}
	return sections
}

func (m Model) viewCompleted(sections []string) []string {
	session := m.ended
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorGoal))
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ColorHelp))

	sections = append(sections, statusStyle.Render("Session complete"))
	sections = append(sections, m.progress.ViewAs(1.0))
	sections = append(sections, "", domain.Summary(*session, time.Now()))
	sections = append(sections, statusStyle.Render(fmt.Sprintf("Focus score: %.0f", session.FocusScore)))
	sections = append(sections, "", helpStyle.Render("[q]uit"))
	return sections
}

func progressWidth(width int) int {
	w := width - 4
	if w > 80 {
		w = 80
	}
	if w < 10 {
		w = 10
	}
	return w
}

// formatDuration formats a duration as MM:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
