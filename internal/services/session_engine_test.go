package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xvierd/focusos/internal/domain"
)

var engineStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

func newTestEngine(t *testing.T) (*SessionEngine, *fakeClock, *fakeAlarm, *eventRecorder) {
	t.Helper()
	clock := newFakeClock(engineStart)
	alarm := &fakeAlarm{}
	rec := &eventRecorder{}
	engine := NewSessionEngine(clock, alarm, StaticIdentity("user-1"), EngineOptions{TickInterval: time.Second})
	engine.Subscribe(rec.record)
	t.Cleanup(func() { engine.End() })
	return engine, clock, alarm, rec
}

func ptr[T any](v T) *T { return &v }

func waitElapsed(t *testing.T, engine *SessionEngine, want time.Duration) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return engine.Snapshot().Elapsed == want
	}, time.Second, time.Millisecond, "elapsed never reached %v", want)
}

func TestSessionEngine_Start(t *testing.T) {
	engine, _, _, rec := newTestEngine(t)

	session, err := engine.Start(domain.StartRequest{Tag: ptr("Reading"), PlannedDuration: ptr(25 * time.Minute)})
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, engineStart, session.StartTime)
	assert.True(t, session.IsActive())
	assert.Equal(t, "Reading", session.TagLabel())
	assert.Equal(t, domain.DefaultFocusScore, session.FocusScore)

	snap := engine.Snapshot()
	assert.Equal(t, domain.StateRunning, snap.State)
	assert.True(t, snap.IsSessionActive())
	assert.Equal(t, time.Duration(0), snap.Elapsed)
	assert.False(t, snap.GoalReached)

	assert.Eventually(t, func() bool { return rec.count(domain.EventSessionStarted) == 1 }, time.Second, time.Millisecond)
}

func TestSessionEngine_StartWhileActive(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	first, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)

	_, err = engine.Start(domain.StartRequest{Tag: ptr("other")})
	assert.True(t, errors.Is(err, domain.ErrSessionAlreadyActive))

	_, ok := engine.Pause()
	require.True(t, ok)
	_, err = engine.Start(domain.StartRequest{})
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyActive)

	snap := engine.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, first.ID, snap.Session.ID, "a rejected start must not replace the session")
}

func TestSessionEngine_NoActiveSessionGuards(t *testing.T) {
	engine, _, alarm, rec := newTestEngine(t)
	before := engine.Snapshot()

	paused, ok := engine.Pause()
	assert.False(t, ok)
	assert.Nil(t, paused)

	resumed, ok := engine.Resume()
	assert.False(t, ok)
	assert.Nil(t, resumed)

	record, ok := engine.LogDistraction("phone")
	assert.False(t, ok)
	assert.Nil(t, record)

	ended, ok := engine.End()
	assert.False(t, ok)
	assert.Nil(t, ended)

	assert.Equal(t, before, engine.Snapshot())
	assert.Equal(t, domain.StateIdle, engine.Snapshot().State)
	assert.Empty(t, engine.History())
	assert.Empty(t, alarm.Calls())
	assert.Empty(t, rec.lifecycle())
}

func TestSessionEngine_InvalidTransitionsWhileActive(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)

	_, ok := engine.Resume()
	assert.False(t, ok, "resume while running is a no-op")

	_, ok = engine.Pause()
	require.True(t, ok)
	_, ok = engine.Pause()
	assert.False(t, ok, "pause while paused is a no-op")

	_, ok = engine.LogDistraction("phone")
	assert.False(t, ok, "distractions are only logged while running")
	assert.Empty(t, engine.Snapshot().Session.Distractions)
}

func TestSessionEngine_ScenarioA(t *testing.T) {
	engine, clock, _, rec := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{Tag: ptr("Reading"), PlannedDuration: ptr(1500 * time.Second)})
	require.NoError(t, err)

	clock.Advance(300 * time.Second)
	record, ok := engine.LogDistraction("phone")
	require.True(t, ok)
	assert.Equal(t, "phone", record.Description)
	assert.Equal(t, engineStart.Add(300*time.Second), record.Timestamp)

	clock.Advance(1500 * time.Second)
	ended, ok := engine.End()
	require.True(t, ok)

	assert.Equal(t, 1800*time.Second, ended.Duration(time.Now()))
	assert.Equal(t, int64(1800), ended.DurationSeconds(time.Now()))
	assert.Len(t, ended.Distractions, 1)
	assert.InDelta(t, 90.0, ended.FocusScore, 1e-9)
	assert.False(t, ended.IsActive())

	assert.Equal(t, domain.StateIdle, engine.Snapshot().State)
	history := engine.History()
	require.Len(t, history, 1)
	assert.Equal(t, ended.ID, history[0].ID)
	engine.ClearHistory()
	assert.Empty(t, engine.History())

	assert.Eventually(t, func() bool { return rec.count(domain.EventSessionEnded) == 1 }, time.Second, time.Millisecond)
	ev, _ := rec.last(domain.EventSessionEnded)
	assert.Equal(t, ended.ID, ev.Session.ID)
	assert.InDelta(t, 90.0, ev.Session.FocusScore, 1e-9)
}

func TestSessionEngine_ScenarioB(t *testing.T) {
	engine, _, alarm, _ := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)
	ended, ok := engine.End()
	require.True(t, ok)

	assert.Equal(t, time.Duration(0), ended.Duration(time.Now()))
	assert.Equal(t, 100.0, ended.FocusScore)
	assert.Nil(t, ended.PlannedDuration)
	assert.NotContains(t, alarm.Calls(), "schedule 0s", "open-ended sessions never arm an alarm")
}

func TestSessionEngine_DurationIgnoresTicks(t *testing.T) {
	engine, clock, _, _ := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)

	// Three ticks observed while an hour of wall time passes.
	require.Equal(t, 3, clock.tick(3, 20*time.Minute))
	waitElapsed(t, engine, 3*time.Second)

	ended, ok := engine.End()
	require.True(t, ok)
	assert.Equal(t, time.Hour, ended.EndTime.Sub(ended.StartTime))
	assert.Equal(t, int64(3600), ended.DurationSeconds(time.Now()))
}

func TestSessionEngine_GoalReachedFiresOnce(t *testing.T) {
	engine, clock, _, rec := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{PlannedDuration: ptr(10 * time.Second)})
	require.NoError(t, err)

	require.Equal(t, 9, clock.tick(9, time.Second))
	waitElapsed(t, engine, 9*time.Second)
	assert.False(t, engine.Snapshot().GoalReached)
	assert.Equal(t, 0, rec.count(domain.EventGoalReached))

	require.Equal(t, 6, clock.tick(6, time.Second))
	waitElapsed(t, engine, 15*time.Second)

	assert.Eventually(t, func() bool { return rec.count(domain.EventTick) == 15 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, rec.count(domain.EventGoalReached))
	assert.True(t, engine.Snapshot().GoalReached)
	assert.Equal(t, domain.StateRunning, engine.Snapshot().State, "reaching the goal does not end the session")

	ev, ok := rec.last(domain.EventGoalReached)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, ev.Elapsed)
}

func TestSessionEngine_GoalReachedSurvivesPause(t *testing.T) {
	engine, clock, alarm, rec := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{PlannedDuration: ptr(3 * time.Second)})
	require.NoError(t, err)
	require.Equal(t, 4, clock.tick(4, time.Second))
	waitElapsed(t, engine, 4*time.Second)

	_, ok := engine.Pause()
	require.True(t, ok)
	_, ok = engine.Resume()
	require.True(t, ok)
	require.Equal(t, 2, clock.tick(2, time.Second))
	waitElapsed(t, engine, 6*time.Second)

	assert.Equal(t, 1, rec.count(domain.EventGoalReached))
	assert.Nil(t, alarm.Pending(), "no alarm once the goal has passed")
}

func TestSessionEngine_PauseStopsTicks(t *testing.T) {
	engine, clock, _, _ := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, clock.tick(2, time.Second))
	waitElapsed(t, engine, 2*time.Second)

	running := clock.lastTicker()
	_, ok := engine.Pause()
	require.True(t, ok)

	assert.Eventually(t, running.isStopped, time.Second, time.Millisecond)
	clock.tick(3, time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2*time.Second, engine.Snapshot().Elapsed, "no ticks while paused")

	_, ok = engine.Resume()
	require.True(t, ok)
	assert.Equal(t, 2, clock.tickerCount(), "resume starts a fresh ticker")
	require.Equal(t, 1, clock.tick(1, time.Second))
	waitElapsed(t, engine, 3*time.Second)
}

func TestSessionEngine_EndStopsTicks(t *testing.T) {
	engine, clock, _, rec := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)
	running := clock.lastTicker()

	_, ok := engine.End()
	require.True(t, ok)
	assert.Eventually(t, running.isStopped, time.Second, time.Millisecond)

	clock.tick(2, time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, rec.count(domain.EventTick))
	assert.Equal(t, time.Duration(0), engine.Snapshot().Elapsed)
}

func TestSessionEngine_AlarmDiscipline(t *testing.T) {
	engine, clock, alarm, _ := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{PlannedDuration: ptr(25 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []string{"cancel", "schedule 25m0s"}, alarm.Calls())

	require.Equal(t, 10, clock.tick(10, time.Second))
	waitElapsed(t, engine, 10*time.Second)

	_, ok := engine.Pause()
	require.True(t, ok)
	assert.Nil(t, alarm.Pending())

	_, ok = engine.Resume()
	require.True(t, ok)
	require.NotNil(t, alarm.Pending())
	assert.Equal(t, 25*time.Minute-10*time.Second, *alarm.Pending())

	_, ok = engine.End()
	require.True(t, ok)
	assert.Nil(t, alarm.Pending())

	_, err = engine.Start(domain.StartRequest{PlannedDuration: ptr(5 * time.Minute)})
	require.NoError(t, err)
	require.NotNil(t, alarm.Pending())
	assert.Equal(t, 5*time.Minute, *alarm.Pending())

	assert.NotContains(t, alarm.Calls(), "overlap", "at most one alarm may be outstanding")
}

func TestSessionEngine_AlarmFailureDoesNotBlockStart(t *testing.T) {
	engine, _, alarm, _ := newTestEngine(t)
	alarm.err = errors.New("notifications disabled")

	_, err := engine.Start(domain.StartRequest{PlannedDuration: ptr(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, domain.StateRunning, engine.Snapshot().State)
}

func TestSessionEngine_EventOrder(t *testing.T) {
	engine, _, _, rec := newTestEngine(t)

	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)
	engine.LogDistraction("phone")
	engine.Pause()
	engine.Resume()
	engine.End()

	want := []domain.EventType{
		domain.EventSessionStarted,
		domain.EventDistractionLogged,
		domain.EventSessionPaused,
		domain.EventSessionResumed,
		domain.EventSessionEnded,
	}
	assert.Eventually(t, func() bool { return len(rec.lifecycle()) == len(want) }, time.Second, time.Millisecond)
	assert.Equal(t, want, rec.lifecycle())
}

func TestSessionEngine_SubscriberPanicIsRecovered(t *testing.T) {
	engine, _, _, rec := newTestEngine(t)
	engine.Subscribe(func(domain.Event) { panic("boom") })

	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)
	_, ok := engine.End()
	require.True(t, ok)

	assert.Eventually(t, func() bool { return rec.count(domain.EventSessionEnded) == 1 }, time.Second, time.Millisecond)
}

func TestSessionEngine_SubscriberMayCallEngine(t *testing.T) {
	engine, _, _, rec := newTestEngine(t)

	engine.Subscribe(func(ev domain.Event) {
		if ev.Type == domain.EventDistractionLogged {
			_ = engine.Snapshot()
			engine.Pause()
		}
	})

	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)
	_, ok := engine.LogDistraction("phone")
	require.True(t, ok)

	assert.Equal(t, domain.StatePaused, engine.Snapshot().State)
	assert.Eventually(t, func() bool { return rec.count(domain.EventSessionPaused) == 1 }, time.Second, time.Millisecond)
}

func TestSessionEngine_Unsubscribe(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	other := &eventRecorder{}
	unsubscribe := engine.Subscribe(other.record)
	unsubscribe()

	_, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)
	engine.End()

	assert.Empty(t, other.lifecycle())
}

func TestSessionEngine_SnapshotIsACopy(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	_, err := engine.Start(domain.StartRequest{Tag: ptr("Deep")})
	require.NoError(t, err)

	snap := engine.Snapshot()
	*snap.Session.Tag = "mutated"
	snap.Session.Distractions = append(snap.Session.Distractions, domain.NewDistractionRecord("x", time.Now()))

	again := engine.Snapshot()
	assert.Equal(t, "Deep", again.Session.TagLabel())
	assert.Empty(t, again.Session.Distractions)
}

func TestSessionEngine_WithoutIdentity(t *testing.T) {
	engine := NewSessionEngine(newFakeClock(engineStart), nil, nil, EngineOptions{})
	session, err := engine.Start(domain.StartRequest{})
	require.NoError(t, err)
	assert.Equal(t, "", session.UserID)

	ended, ok := engine.End()
	require.True(t, ok)
	assert.Equal(t, 100.0, ended.FocusScore)
}
