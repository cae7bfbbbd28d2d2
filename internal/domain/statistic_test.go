package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedSession(start time.Time, length time.Duration, score float64, distractions int) FocusSession {
	s := NewFocusSession("u", start, nil, nil)
	for i := 0; i < distractions; i++ {
		s.AppendDistraction(NewDistractionRecord("d", start))
	}
	s.Finish(start.Add(length))
	s.FocusScore = score
	return *s
}

func TestFold_Sequencing(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first := Fold(nil, finishedSession(start, 30*time.Minute, 90, 1), "u", "2026-03-02", start)
	assert.Equal(t, "u", first.UserID)
	assert.Equal(t, "2026-03-02", first.Date)
	assert.Equal(t, 1, first.SessionCount)
	assert.InDelta(t, 90.0, first.AvgProductivityScore, 1e-9)
	assert.Equal(t, int64(1800), first.TotalFocusTime)
	assert.Equal(t, 1, first.DistractionCount)

	second := Fold(&first, finishedSession(start.Add(time.Hour), 20*time.Minute, 70, 2), "u", "2026-03-02", start)
	assert.Equal(t, 2, second.SessionCount)
	assert.InDelta(t, 80.0, second.AvgProductivityScore, 1e-9)
	assert.Equal(t, int64(3000), second.TotalFocusTime)
	assert.Equal(t, 3, second.DistractionCount)

	assert.Equal(t, 1, first.SessionCount, "fold must not mutate its input")
}

func TestFold_ActiveSessionMeasuredToNow(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	active := NewFocusSession("u", start, nil, nil)

	stat := Fold(nil, *active, "u", "2026-03-02", start.Add(15*time.Minute))
	assert.Equal(t, int64(900), stat.TotalFocusTime)

	// The end time wins over now once the session is finished.
	done := finishedSession(start, 10*time.Minute, 100, 0)
	stat = Fold(nil, done, "u", "2026-03-02", start.Add(time.Hour))
	assert.Equal(t, int64(600), stat.TotalFocusTime)
}

func TestFold_AverageReconstruction(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	scores := []float64{100, 93.3, 12.5, 47, 88.8888, 0, 71.25, 64.1, 99.9, 33.3333}

	var stat *DailyStatistic
	sum := 0.0
	var totalSeconds int64
	for i, score := range scores {
		length := time.Duration(i+1)*time.Minute + 700*time.Millisecond
		next := Fold(stat, finishedSession(start, length, score, 0), "u", "2026-03-02", start)
		stat = &next
		sum += score
		totalSeconds += int64((length) / time.Second)
	}

	require.NotNil(t, stat)
	assert.Equal(t, len(scores), stat.SessionCount)
	assert.InDelta(t, sum/float64(len(scores)), stat.AvgProductivityScore, 1e-9)
	assert.Equal(t, totalSeconds, stat.TotalFocusTime)
}

func TestFold_KeepsExistingKey(t *testing.T) {
	id := "stat-1"
	existing := DailyStatistic{ID: &id, UserID: "u", Date: "2026-03-01", SessionCount: 1, AvgProductivityScore: 50}
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	next := Fold(&existing, finishedSession(start, time.Minute, 100, 0), "u", "2026-03-02", start)

	require.NotNil(t, next.ID)
	assert.Equal(t, "stat-1", *next.ID)
	assert.Equal(t, "2026-03-01", next.Date, "an existing statistic keeps its own key")
	assert.InDelta(t, 75.0, next.AvgProductivityScore, 1e-9)
}

func TestDailyStatistic_Intensity(t *testing.T) {
	tests := []struct {
		name string
		stat DailyStatistic
		want int
	}{
		{"empty day", DailyStatistic{}, 0},
		{"empty day ignores score", DailyStatistic{AvgProductivityScore: 95}, 0},
		{"great", DailyStatistic{SessionCount: 1, AvgProductivityScore: 80}, 4},
		{"good", DailyStatistic{SessionCount: 2, AvgProductivityScore: 60}, 3},
		{"okay", DailyStatistic{SessionCount: 1, AvgProductivityScore: 40}, 2},
		{"low", DailyStatistic{SessionCount: 1, AvgProductivityScore: 39.9}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stat.Intensity())
		})
	}
}

func TestDateKey(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)
	assert.Equal(t, "2026-03-02", DateKey(at))

	parsed, err := ParseDateKey("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", DateKey(parsed))

	_, err = ParseDateKey("03/02/2026")
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestNewHabit(t *testing.T) {
	habit, err := NewHabit("u", "  Doomscrolling ", "")
	require.NoError(t, err)
	assert.NotEmpty(t, habit.ID)
	assert.Equal(t, "Doomscrolling", habit.Name)
	assert.Equal(t, DefaultHabitIcon, habit.Icon)
	assert.False(t, habit.CreatedAt.IsZero())

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := NewHabit("u", name, "x")
		assert.ErrorIs(t, err, ErrEmptyHabitName)
	}
}
