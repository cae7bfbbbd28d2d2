package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/services"
)

func newTestEngine(t *testing.T) *services.SessionEngine {
	t.Helper()
	// An hour-long tick keeps the clock still for the duration of a test.
	return services.NewSessionEngine(nil, nil, services.StaticIdentity("user-1"), services.EngineOptions{TickInterval: time.Hour})
}

func startSession(t *testing.T, engine *services.SessionEngine, planned time.Duration) {
	t.Helper()
	req := domain.StartRequest{}
	if planned > 0 {
		req.PlannedDuration = &planned
	}
	_, err := engine.Start(req)
	require.NoError(t, err)
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func sized(m Model) Model {
	m.width = 80
	m.height = 24
	return m
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{25 * time.Minute, "25:00"},
		{5 * time.Minute, "05:00"},
		{1*time.Minute + 30*time.Second, "01:30"},
		{0, "00:00"},
		{-time.Second, "00:00"},
		{125 * time.Minute, "125:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.want {
				t.Errorf("formatDuration(%v) = %v, want %v", tt.duration, got, tt.want)
			}
		})
	}
}

func TestRenderClock(t *testing.T) {
	color := DefaultTheme().ColorRunning

	narrow := renderClock(25*time.Minute, lipgloss.Color(color), 30)
	assert.Contains(t, narrow, "25:00")
	assert.NotContains(t, narrow, "\n")

	wide := renderClock(25*time.Minute, lipgloss.Color(color), 80)
	lines := strings.Split(wide, "\n")
	require.Len(t, lines, glyphRows)
	for _, line := range lines {
		assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(line), "rows must align")
	}
	assert.NotContains(t, wide, "25:00")
}

func TestModel_PauseResume(t *testing.T) {
	engine := newTestEngine(t)
	startSession(t, engine, 25*time.Minute)
	m := NewModel(engine, nil, DefaultTheme())

	m, _ = update(t, m, keyPress("p"))
	assert.Equal(t, domain.StatePaused, engine.Snapshot().State)
	assert.Contains(t, sized(m).View(), "PAUSED")

	m, _ = update(t, m, keyPress("p"))
	assert.Equal(t, domain.StateRunning, engine.Snapshot().State)
	assert.NotContains(t, sized(m).View(), "PAUSED")
}

func TestModel_LogDistraction(t *testing.T) {
	engine := newTestEngine(t)
	startSession(t, engine, 0)
	m := NewModel(engine, nil, DefaultTheme())

	m, _ = update(t, m, keyPress("d"))
	require.True(t, m.distractionMode)

	m, _ = update(t, m, keyPress("slack"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.distractionMode)
	snap := engine.Snapshot()
	require.Len(t, snap.Session.Distractions, 1)
	assert.Equal(t, "slack", snap.Session.Distractions[0].Description)
	assert.Contains(t, sized(m).View(), "Distractions: 1")
}

func TestModel_DistractionCancelled(t *testing.T) {
	engine := newTestEngine(t)
	startSession(t, engine, 0)
	m := NewModel(engine, nil, DefaultTheme())

	m, _ = update(t, m, keyPress("d"))
	m, _ = update(t, m, keyPress("x"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.distractionMode)
	assert.Empty(t, engine.Snapshot().Session.Distractions)
}

func TestModel_DistractionIgnoredWhilePaused(t *testing.T) {
	engine := newTestEngine(t)
	startSession(t, engine, 0)
	engine.Pause()
	m := NewModel(engine, nil, DefaultTheme())

	m, _ = update(t, m, keyPress("d"))
	assert.False(t, m.distractionMode)
}

func TestModel_EndShowsSummary(t *testing.T) {
	engine := newTestEngine(t)
	startSession(t, engine, 25*time.Minute)
	m := NewModel(engine, nil, DefaultTheme())

	m, cmd := update(t, m, keyPress("e"))
	assert.Nil(t, cmd, "ending keeps the timer open")
	require.NotNil(t, m.Ended())
	assert.Equal(t, domain.StateIdle, engine.Snapshot().State)

	view := sized(m).View()
	assert.Contains(t, view, "Session complete")
	assert.Contains(t, view, "Focus score")

	// A second end is a no-op and keeps the first result.
	first := m.Ended()
	m, _ = update(t, m, keyPress("e"))
	assert.Equal(t, first.ID, m.Ended().ID)
}

func TestModel_QuitEndsActiveSession(t *testing.T) {
	engine := newTestEngine(t)
	startSession(t, engine, 0)
	m := NewModel(engine, nil, DefaultTheme())

	m, cmd := update(t, m, keyPress("q"))
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
	assert.NotNil(t, m.Ended())
	assert.Equal(t, domain.StateIdle, engine.Snapshot().State)
}

func TestModel_Events(t *testing.T) {
	engine := newTestEngine(t)
	events := make(chan domain.Event, eventBuffer)
	unsubscribe := engine.Subscribe(forwardEvents(events))
	defer unsubscribe()

	m := NewModel(engine, events, DefaultTheme())
	startSession(t, engine, 25*time.Minute)

	msg := m.Init()()
	ev, ok := msg.(eventMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, domain.EventSessionStarted, ev.Type)

	m, cmd := update(t, m, msg)
	assert.NotNil(t, cmd, "the model keeps listening")
	assert.Equal(t, domain.StateRunning, m.snapshot.State)

	ended, ok := engine.End()
	require.True(t, ok)
	m, _ = update(t, m, cmd())
	require.NotNil(t, m.Ended())
	assert.Equal(t, ended.ID, m.Ended().ID)

	close(events)
	_, isClosed := waitForEvent(events)().(eventsClosedMsg)
	assert.True(t, isClosed)
}

func TestForwardEvents_DropsWhenFull(t *testing.T) {
	events := make(chan domain.Event, 1)
	forward := forwardEvents(events)

	done := make(chan struct{})
	go func() {
		forward(domain.Event{Type: domain.EventTick})
		forward(domain.Event{Type: domain.EventTick})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarding must never block the engine")
	}
	assert.Len(t, events, 1)
}

func TestModel_View(t *testing.T) {
	engine := newTestEngine(t)
	m := NewModel(engine, nil, DefaultTheme())
	assert.Equal(t, "Loading...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "No active session")

	tag := "Reading"
	_, err := engine.Start(domain.StartRequest{Tag: &tag})
	require.NoError(t, err)
	m, _ = update(t, m, keyPress("x"))
	view := m.View()
	assert.Contains(t, view, "#Reading")
	assert.Contains(t, view, "pause/resume")
}

func TestRenderHeatmap(t *testing.T) {
	assert.Empty(t, RenderHeatmap(nil))

	days := []domain.DailyStatistic{
		{Date: "2026-03-01"},
		{Date: "2026-03-02", SessionCount: 1, AvgProductivityScore: 90},
		{Date: "2026-03-03", SessionCount: 2, AvgProductivityScore: 45},
	}
	out := RenderHeatmap(days)
	assert.Equal(t, 3, strings.Count(out, heatmapCell))
	assert.Contains(t, out, "2026-03-01")
	assert.Contains(t, out, "2026-03-03")
}
