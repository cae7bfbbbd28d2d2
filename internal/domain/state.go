package domain

import (
	"time"
)

// EngineState is the lifecycle state of the session engine.
type EngineState string

const (
	StateIdle      EngineState = "idle"
	StateRunning   EngineState = "running"
	StatePaused    EngineState = "paused"
	StateCompleted EngineState = "completed"
)

// Label returns a human-readable label for the state.
func (s EngineState) Label() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// EventType identifies an engine event.
type EventType string

const (
	EventSessionStarted    EventType = "session_started"
	EventSessionPaused     EventType = "session_paused"
	EventSessionResumed    EventType = "session_resumed"
	EventDistractionLogged EventType = "distraction_logged"
	EventGoalReached       EventType = "goal_reached"
	EventSessionEnded      EventType = "session_ended"
	EventTick              EventType = "tick"
)

// Event is emitted by the engine after each state change. Session is a copy
// taken at emission time.
type Event struct {
	Type    EventType
	Session FocusSession
	Elapsed time.Duration
	At      time.Time
}

// EngineSnapshot captures what a presentation layer needs to render the engine.
type EngineSnapshot struct {
	State       EngineState
	Session     *FocusSession
	Elapsed     time.Duration
	GoalReached bool
}

// IsSessionActive returns true if there's a running or paused session.
func (s EngineSnapshot) IsSessionActive() bool {
	return s.Session != nil && (s.State == StateRunning || s.State == StatePaused)
}

// Remaining returns the time left until the planned duration, or zero for
// open-ended sessions and sessions past their goal.
func (s EngineSnapshot) Remaining() time.Duration {
	if s.Session == nil || s.Session.PlannedDuration == nil {
		return 0
	}
	r := *s.Session.PlannedDuration - s.Elapsed
	if r < 0 {
		return 0
	}
	return r
}

// Progress returns elapsed/planned in [0,1]; zero for open-ended sessions.
func (s EngineSnapshot) Progress() float64 {
	if s.Session == nil || s.Session.PlannedDuration == nil || *s.Session.PlannedDuration <= 0 {
		return 0
	}
	p := float64(s.Elapsed) / float64(*s.Session.PlannedDuration)
	if p > 1 {
		return 1
	}
	return p
}

// CurrentState is what status views and the MCP server report.
type CurrentState struct {
	Engine EngineSnapshot
	Today  DailyStatistic
}

// StartRequest carries the optional parameters of a new session.
type StartRequest struct {
	Tag             *string
	PlannedDuration *time.Duration
}
