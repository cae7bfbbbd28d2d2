package domain

import "time"

// DistractionRecord is one loss of focus logged during a session.
// Records are immutable once created.
type DistractionRecord struct {
	ID          string    `json:"id" yaml:"id"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Description string    `json:"description" yaml:"description"`
}

// NewDistractionRecord creates a record stamped at the given instant.
// An empty description is accepted.
func NewDistractionRecord(description string, at time.Time) DistractionRecord {
	return DistractionRecord{
		ID:          generateID(),
		Timestamp:   at,
		Description: description,
	}
}
