package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// statsRepository implements ports.StatsRepository using SQLite.
type statsRepository struct {
	db *sql.DB
}

// newStatsRepository creates a new daily statistic repository.
func newStatsRepository(db *sql.DB) ports.StatsRepository {
	return &statsRepository{db: db}
}

const statColumns = `id, user_id, date, total_focus_time, session_count, avg_productivity_score, distraction_count, updated_at`

// Find retrieves the statistic for (userID, date), or nil.
func (r *statsRepository) Find(ctx context.Context, userID, date string) (*domain.DailyStatistic, error) {
	query := `SELECT ` + statColumns + ` FROM daily_stats WHERE user_id = ? AND date = ?`

	stat, err := scanStat(r.db.QueryRowContext(ctx, query, userID, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find daily statistic: %w", err)
	}
	return stat, nil
}

// Upsert replaces the statistic keyed by (user_id, date).
func (r *statsRepository) Upsert(ctx context.Context, stat *domain.DailyStatistic) error {
	query := `
		INSERT INTO daily_stats (` + statColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			total_focus_time = excluded.total_focus_time,
			session_count = excluded.session_count,
			avg_productivity_score = excluded.avg_productivity_score,
			distraction_count = excluded.distraction_count,
			updated_at = excluded.updated_at
	`

	id := domain.NewID()
	if stat.ID != nil {
		id = *stat.ID
	}
	var updatedAt *time.Time
	if stat.UpdatedAt != nil {
		u := stat.UpdatedAt.UTC()
		updatedAt = &u
	}

	_, err := r.db.ExecContext(ctx, query,
		id,
		stat.UserID,
		stat.Date,
		stat.TotalFocusTime,
		stat.SessionCount,
		stat.AvgProductivityScore,
		stat.DistractionCount,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily statistic: %w", err)
	}

	return nil
}

// FindRange retrieves statistics with from <= date <= to, oldest first.
func (r *statsRepository) FindRange(ctx context.Context, userID, from, to string) ([]*domain.DailyStatistic, error) {
	query := `
		SELECT ` + statColumns + `
		FROM daily_stats
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily statistics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []*domain.DailyStatistic
	for rows.Next() {
		stat, err := scanStat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily statistic: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func scanStat(row rowScanner) (*domain.DailyStatistic, error) {
	var stat domain.DailyStatistic
	var id string
	var updatedAt sql.NullTime

	err := row.Scan(
		&id,
		&stat.UserID,
		&stat.Date,
		&stat.TotalFocusTime,
		&stat.SessionCount,
		&stat.AvgProductivityScore,
		&stat.DistractionCount,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	stat.ID = &id
	if updatedAt.Valid {
		u := updatedAt.Time
		stat.UpdatedAt = &u
	}
	return &stat, nil
}
