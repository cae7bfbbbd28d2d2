package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// DefaultTickInterval is the granularity of the elapsed-time clock.
const DefaultTickInterval = time.Second

// EngineOptions configures a SessionEngine. Zero values select defaults.
type EngineOptions struct {
	TickInterval time.Duration
	Logger       *slog.Logger
}

// SessionEngine owns at most one active focus session and its elapsed-time
// clock. All mutations are serialized by mu. Events are delivered to
// subscribers after mu is released, in emission order. Whichever goroutine is
// already dispatching delivers events queued meanwhile, so subscribers may
// call back into the engine.
type SessionEngine struct {
	clock        ports.Clock
	alarm        ports.AlarmScheduler
	identity     ports.IdentityProvider
	logger       *slog.Logger
	tickInterval time.Duration

	mu          sync.Mutex
	state       domain.EngineState
	session     *domain.FocusSession
	elapsed     time.Duration
	goalReached bool
	generation  uint64
	stopTick    chan struct{}
	history     []domain.FocusSession
	pending     []domain.Event
	dispatching bool

	subMu       sync.RWMutex
	subscribers map[int]func(domain.Event)
	nextSubID   int
}

var _ ports.EngineController = (*SessionEngine)(nil)

// NewSessionEngine creates an idle engine. A nil clock uses the system clock,
// a nil alarm disables deadline notifications and a nil identity leaves
// sessions without a user.
func NewSessionEngine(clock ports.Clock, alarm ports.AlarmScheduler, identity ports.IdentityProvider, opts EngineOptions) *SessionEngine {
	if clock == nil {
		clock = NewSystemClock()
	}
	if alarm == nil {
		alarm = nopAlarm{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionEngine{
		clock:        clock,
		alarm:        alarm,
		identity:     identity,
		logger:       logger,
		tickInterval: opts.TickInterval,
		state:        domain.StateIdle,
		subscribers:  make(map[int]func(domain.Event)),
	}
}

// Start begins a new session. It fails with ErrSessionAlreadyActive unless
// the engine is idle.
func (e *SessionEngine) Start(req domain.StartRequest) (*domain.FocusSession, error) {
	e.mu.Lock()
	if e.state != domain.StateIdle {
		e.mu.Unlock()
		return nil, domain.ErrSessionAlreadyActive
	}

	now := e.clock.Now()
	session := domain.NewFocusSession(e.currentUserID(), now, req.Tag, req.PlannedDuration)
	e.session = session
	e.elapsed = 0
	e.goalReached = false
	e.state = domain.StateRunning
	e.startClockLocked()
	if session.PlannedDuration != nil {
		e.armAlarmLocked(*session.PlannedDuration)
	}

	e.logger.Debug("session started", "session_id", session.ID, "tag", session.TagLabel())
	started := session.Clone()
	e.releaseAndDispatch(e.eventLocked(domain.EventSessionStarted, now))
	return &started, nil
}

// Pause stops the elapsed-time clock and cancels the pending alarm.
func (e *SessionEngine) Pause() (*domain.FocusSession, bool) {
	e.mu.Lock()
	if e.state != domain.StateRunning {
		e.mu.Unlock()
		return nil, false
	}

	e.stopClockLocked()
	e.alarm.Cancel()
	e.state = domain.StatePaused

	paused := e.session.Clone()
	e.releaseAndDispatch(e.eventLocked(domain.EventSessionPaused, e.clock.Now()))
	return &paused, true
}

// Resume restarts the clock and re-arms the alarm for the remaining planned
// time, if any.
func (e *SessionEngine) Resume() (*domain.FocusSession, bool) {
	e.mu.Lock()
	if e.state != domain.StatePaused {
		e.mu.Unlock()
		return nil, false
	}

	e.state = domain.StateRunning
	e.startClockLocked()
	if planned := e.session.PlannedDuration; planned != nil {
		if remaining := *planned - e.elapsed; remaining > 0 {
			e.armAlarmLocked(remaining)
		}
	}

	resumed := e.session.Clone()
	e.releaseAndDispatch(e.eventLocked(domain.EventSessionResumed, e.clock.Now()))
	return &resumed, true
}

// LogDistraction appends a distraction to the running session.
func (e *SessionEngine) LogDistraction(description string) (*domain.DistractionRecord, bool) {
	e.mu.Lock()
	if e.state != domain.StateRunning {
		e.mu.Unlock()
		return nil, false
	}

	now := e.clock.Now()
	record := domain.NewDistractionRecord(description, now)
	if !e.session.AppendDistraction(record) {
		e.mu.Unlock()
		return nil, false
	}

	e.releaseAndDispatch(e.eventLocked(domain.EventDistractionLogged, now))
	return &record, true
}

// End completes the running or paused session, appends it to the history and
// returns the engine to idle. Persistence is left to SessionEnded
// subscribers.
func (e *SessionEngine) End() (*domain.FocusSession, bool) {
	e.mu.Lock()
	if e.state != domain.StateRunning && e.state != domain.StatePaused {
		e.mu.Unlock()
		return nil, false
	}

	now := e.clock.Now()
	e.stopClockLocked()
	e.alarm.Cancel()
	e.session.Finish(now)
	e.state = domain.StateCompleted

	ended := e.session.Clone()
	e.history = append(e.history, ended)
	event := e.eventLocked(domain.EventSessionEnded, now)

	e.session = nil
	e.elapsed = 0
	e.goalReached = false
	e.state = domain.StateIdle

	e.logger.Debug("session ended",
		"session_id", ended.ID,
		"duration_seconds", ended.DurationSeconds(now),
		"distractions", len(ended.Distractions),
		"focus_score", ended.FocusScore,
	)
	e.releaseAndDispatch(event)
	return &ended, true
}

// Snapshot returns a copy of the engine's observable state.
func (e *SessionEngine) Snapshot() domain.EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := domain.EngineSnapshot{
		State:       e.state,
		Elapsed:     e.elapsed,
		GoalReached: e.goalReached,
	}
	if e.session != nil {
		s := e.session.Clone()
		snap.Session = &s
	}
	return snap
}

// History returns the sessions completed by this engine, oldest first.
func (e *SessionEngine) History() []domain.FocusSession {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.FocusSession, 0, len(e.history))
	for i := range e.history {
		out = append(out, e.history[i].Clone())
	}
	return out
}

// ClearHistory forgets the sessions completed by this engine.
func (e *SessionEngine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}

// Subscribe implements ports.EngineController.
func (e *SessionEngine) Subscribe(fn func(domain.Event)) func() {
	e.subMu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subscribers, id)
		e.subMu.Unlock()
	}
}

// startClockLocked begins a new running segment with its own ticker.
func (e *SessionEngine) startClockLocked() {
	e.generation++
	stop := make(chan struct{})
	e.stopTick = stop
	go e.runClock(e.generation, e.clock.NewTicker(e.tickInterval), stop)
}

// stopClockLocked ends the current running segment. Ticks already in flight
// carry a stale generation and are dropped.
func (e *SessionEngine) stopClockLocked() {
	e.generation++
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

func (e *SessionEngine) runClock(generation uint64, ticker ports.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			e.tick(generation)
		}
	}
}

func (e *SessionEngine) tick(generation uint64) {
	e.mu.Lock()
	if generation != e.generation || e.state != domain.StateRunning {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	e.elapsed += e.tickInterval
	events := []domain.Event{e.eventLocked(domain.EventTick, now)}

	if planned := e.session.PlannedDuration; planned != nil && !e.goalReached && e.elapsed >= *planned {
		e.goalReached = true
		e.logger.Debug("goal reached", "session_id", e.session.ID, "elapsed", e.elapsed)
		events = append(events, e.eventLocked(domain.EventGoalReached, now))
	}

	e.releaseAndDispatch(events...)
}

// armAlarmLocked replaces any pending alarm with one firing after d.
func (e *SessionEngine) armAlarmLocked(d time.Duration) {
	e.alarm.Cancel()
	if err := e.alarm.Schedule(d); err != nil {
		e.logger.Warn("failed to schedule deadline alarm", "after", d, "error", err)
	}
}

func (e *SessionEngine) currentUserID() string {
	if e.identity == nil {
		return ""
	}
	id, ok := e.identity.CurrentUserID()
	if !ok {
		return ""
	}
	return id
}

func (e *SessionEngine) eventLocked(t domain.EventType, at time.Time) domain.Event {
	ev := domain.Event{Type: t, Elapsed: e.elapsed, At: at}
	if e.session != nil {
		ev.Session = e.session.Clone()
	}
	return ev
}

// releaseAndDispatch queues events, unlocks mu and delivers queued events
// unless another goroutine is already doing so. mu must be held.
func (e *SessionEngine) releaseAndDispatch(events ...domain.Event) {
	e.pending = append(e.pending, events...)
	if e.dispatching {
		e.mu.Unlock()
		return
	}

	e.dispatching = true
	for len(e.pending) > 0 {
		batch := e.pending
		e.pending = nil
		e.mu.Unlock()

		subs := e.subscriberList()
		for _, ev := range batch {
			for _, fn := range subs {
				e.deliver(fn, ev)
			}
		}

		e.mu.Lock()
	}
	e.dispatching = false
	e.mu.Unlock()
}

func (e *SessionEngine) subscriberList() []func(domain.Event) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()

	subs := make([]func(domain.Event), 0, len(e.subscribers))
	for id := 0; id < e.nextSubID; id++ {
		if fn, ok := e.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func (e *SessionEngine) deliver(fn func(domain.Event), ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event subscriber panicked", "event", ev.Type, "panic", r)
		}
	}()
	fn(ev)
}

type nopAlarm struct{}

func (nopAlarm) Schedule(time.Duration) error { return nil }
func (nopAlarm) Cancel()                      {}
