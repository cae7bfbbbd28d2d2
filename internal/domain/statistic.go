package domain

import (
	"fmt"
	"time"
)

// DateLayout is the storage format of a calendar day.
const DateLayout = "2006-01-02"

// DailyStatistic aggregates the completed sessions of one user on one
// calendar day. (UserID, Date) is its natural key.
type DailyStatistic struct {
	ID                   *string    `json:"id,omitempty" yaml:"id,omitempty"`
	UserID               string     `json:"user_id" yaml:"user_id"`
	Date                 string     `json:"date" yaml:"date"`
	TotalFocusTime       int64      `json:"total_focus_time" yaml:"total_focus_time"` // seconds
	SessionCount         int        `json:"session_count" yaml:"session_count"`
	AvgProductivityScore float64    `json:"avg_productivity_score" yaml:"avg_productivity_score"`
	DistractionCount     int        `json:"distraction_count" yaml:"distraction_count"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// NewDailyStatistic returns a zero statistic for the given key.
func NewDailyStatistic(userID, date string) DailyStatistic {
	return DailyStatistic{UserID: userID, Date: date}
}

// DateKey formats the local calendar day of t.
func DateKey(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// ParseDateKey validates and parses a YYYY-MM-DD day in the local zone.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Fold returns existing updated with one more completed session. A nil
// existing statistic starts from zero for (userID, date). The average is a
// plain mean of session scores, not weighted by time. A session without an
// end is measured up to now.
func Fold(existing *DailyStatistic, session FocusSession, userID, date string, now time.Time) DailyStatistic {
	base := NewDailyStatistic(userID, date)
	if existing != nil {
		base = *existing
	}

	oldTotalScore := base.AvgProductivityScore * float64(base.SessionCount)
	end := now
	if session.EndTime != nil {
		end = *session.EndTime
	}

	base.SessionCount++
	base.TotalFocusTime += session.DurationSeconds(end)
	base.DistractionCount += len(session.Distractions)
	base.AvgProductivityScore = (oldTotalScore + session.FocusScore) / float64(base.SessionCount)
	return base
}

// Intensity maps the day's average score to a heatmap level from 0 (no
// sessions) to 4.
func (d DailyStatistic) Intensity() int {
	if d.SessionCount == 0 {
		return 0
	}
	switch {
	case d.AvgProductivityScore >= 80:
		return 4
	case d.AvgProductivityScore >= 60:
		return 3
	case d.AvgProductivityScore >= 40:
		return 2
	default:
		return 1
	}
}

// TotalFocusDuration returns TotalFocusTime as a time.Duration.
func (d DailyStatistic) TotalFocusDuration() time.Duration {
	return time.Duration(d.TotalFocusTime) * time.Second
}
