package domain

import (
	"fmt"
	"time"
)

// DefaultFocusScore is the score a session holds until it is ended.
const DefaultFocusScore = 100.0

// FocusSession is one continuous, possibly paused, focus attempt.
type FocusSession struct {
	ID              string
	UserID          string
	StartTime       time.Time
	EndTime         *time.Time
	FocusScore      float64
	Distractions    []DistractionRecord
	Tag             *string
	PlannedDuration *time.Duration
}

// NewFocusSession creates an active session started at the given instant.
// A nil or non-positive planned duration means the session is open-ended.
func NewFocusSession(userID string, startedAt time.Time, tag *string, planned *time.Duration) *FocusSession {
	s := &FocusSession{
		ID:         generateID(),
		UserID:     userID,
		StartTime:  startedAt,
		FocusScore: DefaultFocusScore,
	}
	if tag != nil && *tag != "" {
		t := *tag
		s.Tag = &t
	}
	if planned != nil && *planned > 0 {
		p := *planned
		s.PlannedDuration = &p
	}
	return s
}

// IsActive returns true while the session has no end time.
func (s *FocusSession) IsActive() bool {
	return s.EndTime == nil
}

// Duration returns the wall-clock length of the session. Active sessions are
// measured up to now.
func (s *FocusSession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	d := end.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// DurationSeconds returns the integer-truncated duration in seconds.
func (s *FocusSession) DurationSeconds(now time.Time) int64 {
	return int64(s.Duration(now) / time.Second)
}

// AppendDistraction adds a record to an active session. It reports false and
// leaves the session untouched once the session has ended.
func (s *FocusSession) AppendDistraction(d DistractionRecord) bool {
	if !s.IsActive() {
		return false
	}
	s.Distractions = append(s.Distractions, d)
	return true
}

// Finish ends the session at the given instant and computes its focus score.
// Finishing an ended session is a no-op.
func (s *FocusSession) Finish(at time.Time) {
	if !s.IsActive() {
		return
	}
	if at.Before(s.StartTime) {
		at = s.StartTime
	}
	s.EndTime = &at
	s.FocusScore = Score(s.Duration(at), len(s.Distractions))
}

// TagLabel returns the tag or an empty string.
func (s *FocusSession) TagLabel() string {
	if s.Tag == nil {
		return ""
	}
	return *s.Tag
}

// Clone returns a deep copy of the session.
func (s *FocusSession) Clone() FocusSession {
	c := *s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	if s.Tag != nil {
		tag := *s.Tag
		c.Tag = &tag
	}
	if s.PlannedDuration != nil {
		planned := *s.PlannedDuration
		c.PlannedDuration = &planned
	}
	if s.Distractions != nil {
		c.Distractions = make([]DistractionRecord, len(s.Distractions))
		copy(c.Distractions, s.Distractions)
	}
	return c
}

// Summary returns a one-line description of a session. An active session is
// measured up to now.
func Summary(s FocusSession, now time.Time) string {
	minutes := int(s.Duration(now) / time.Minute)
	return fmt.Sprintf("You stayed focused for %d minutes with %d distractions.", minutes, len(s.Distractions))
}
