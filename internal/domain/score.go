package domain

import (
	"math"
	"time"
)

// Scoring constants.
const (
	ScoreMax                   = 100.0
	ScorePenaltyPerDistraction = 5.0
	// ScoreMinEffectiveHours keeps the distraction rate finite for very short sessions.
	ScoreMinEffectiveHours = 0.1
)

// Score computes the 0-100 focus score of a session from its duration and the
// number of distractions logged. Distractions are penalised per hour of focus,
// so the same number of interruptions hurts a short session more than a long one.
func Score(duration time.Duration, distractionCount int) float64 {
	effectiveHours := math.Max(duration.Hours(), ScoreMinEffectiveHours)
	rate := float64(distractionCount) / effectiveHours
	penalty := rate * ScorePenaltyPerDistraction
	return clampScore(ScoreMax - penalty)
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), ScoreMax)
}
