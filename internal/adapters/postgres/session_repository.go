package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// SessionRepository handles persistence for focus sessions.
type SessionRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, start_time, end_time, focus_score, distractions, tag, planned_duration`

// Save upserts a session keyed by its ID.
func (r *SessionRepository) Save(ctx context.Context, session *domain.FocusSession) error {
	query := `
		INSERT INTO focus_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			focus_score = EXCLUDED.focus_score,
			distractions = EXCLUDED.distractions,
			tag = EXCLUDED.tag,
			planned_duration = EXCLUDED.planned_duration
	`

	distractions := session.Distractions
	if distractions == nil {
		distractions = []domain.DistractionRecord{}
	}
	distractionsJSON, err := json.Marshal(distractions)
	if err != nil {
		return fmt.Errorf("failed to encode distractions: %w", err)
	}

	var planned *int64
	if session.PlannedDuration != nil {
		seconds := int64(*session.PlannedDuration / time.Second)
		planned = &seconds
	}

	_, err = r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.StartTime,
		session.EndTime,
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

// FindByID retrieves a session, or nil when it does not exist.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*domain.FocusSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM focus_sessions WHERE id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// FindByUser returns a user's sessions, newest first.
func (r *SessionRepository) FindByUser(ctx context.Context, userID string) ([]*domain.FocusSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM focus_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

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

func scanSession(row pgx.Row) (*domain.FocusSession, error) {
	var session domain.FocusSession
	var distractionsJSON []byte
	var planned *int64

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.StartTime,
		&session.EndTime,
		&session.FocusScore,
		&distractionsJSON,
		&session.Tag,
		&planned,
	)
	if err != nil {
		return nil, err
	}

	if planned != nil {
		d := time.Duration(*planned) * time.Second
		session.PlannedDuration = &d
	}
	if len(distractionsJSON) > 0 {
		if err := json.Unmarshal(distractionsJSON, &session.Distractions); err != nil {
			return nil, fmt.Errorf("failed to decode distractions: %w", err)
		}
		if len(session.Distractions) == 0 {
			session.Distractions = nil
		}
	}
	return &session, nil
}
