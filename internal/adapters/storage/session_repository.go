package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// sessionRepository implements ports.SessionRepository using SQLite.
type sessionRepository struct {
	db *sql.DB
}

// newSessionRepository creates a new session repository.
func newSessionRepository(db *sql.DB) ports.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, user_id, start_time, end_time, focus_score, distractions, tag, planned_duration`

// Save upserts a session keyed by its ID.
func (r *sessionRepository) Save(ctx context.Context, session *domain.FocusSession) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			focus_score = excluded.focus_score,
			distractions = excluded.distractions,
			tag = excluded.tag,
			planned_duration = excluded.planned_duration
	`

	distractionsJSON, err := marshalDistractions(session.Distractions)
	if err != nil {
		return err
	}

	var endTime *time.Time
	if session.EndTime != nil {
		end := session.EndTime.UTC()
		endTime = &end
	}

	var planned *int64
	if session.PlannedDuration != nil {
		seconds := int64(*session.PlannedDuration / time.Second)
		planned = &seconds
	}

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.StartTime.UTC(),
		endTime,
		session.FocusScore,
		distractionsJSON,
		session.Tag,
		planned,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// FindByID retrieves a session by its unique identifier.
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*domain.FocusSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// FindByUser retrieves a user's sessions, newest first.
func (r *sessionRepository) FindByUser(ctx context.Context, userID string) ([]*domain.FocusSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = ?
		ORDER BY start_time DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*domain.FocusSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.FocusSession, error) {
	var session domain.FocusSession
	var endTime sql.NullTime
	var distractionsStr string
	var tag sql.NullString
	var planned sql.NullInt64

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.StartTime,
		&endTime,
		&session.FocusScore,
		&distractionsStr,
		&tag,
		&planned,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		end := endTime.Time
		session.EndTime = &end
	}
	if tag.Valid {
		t := tag.String
		session.Tag = &t
	}
	if planned.Valid {
		d := time.Duration(planned.Int64) * time.Second
		session.PlannedDuration = &d
	}
	session.Distractions, err = unmarshalDistractions(distractionsStr)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// marshalDistractions stores distractions as a JSON array, never null.
func marshalDistractions(records []domain.DistractionRecord) (string, error) {
	if records == nil {
		records = []domain.DistractionRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode distractions: %w", err)
	}
	return string(data), nil
}

func unmarshalDistractions(data string) ([]domain.DistractionRecord, error) {
	if data == "" || data == "[]" || data == "null" {
		return nil, nil
	}
	var records []domain.DistractionRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("failed to decode distractions: %w", err)
	}
	return records, nil
}
