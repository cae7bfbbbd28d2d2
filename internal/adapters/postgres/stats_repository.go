package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// StatsRepository handles persistence for daily statistics.
type StatsRepository struct {
	pool *pgxpool.Pool
}

var _ ports.StatsRepository = (*StatsRepository)(nil)

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

const statColumns = `id, user_id, date, total_focus_time, session_count, avg_productivity_score, distraction_count, updated_at`

// Find returns the statistic for (userID, date), or nil.
func (r *StatsRepository) Find(ctx context.Context, userID, date string) (*domain.DailyStatistic, error) {
	query := `SELECT ` + statColumns + ` FROM daily_stats WHERE user_id = $1 AND date = $2`

	stat, err := scanStat(r.pool.QueryRow(ctx, query, userID, date))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find daily statistic: %w", err)
	}
	return stat, nil
}

// Upsert replaces the statistic keyed by (user_id, date).
func (r *StatsRepository) Upsert(ctx context.Context, stat *domain.DailyStatistic) error {
	query := `
		INSERT INTO daily_stats (` + statColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, date) DO UPDATE SET
			total_focus_time = EXCLUDED.total_focus_time,
			session_count = EXCLUDED.session_count,
			avg_productivity_score = EXCLUDED.avg_productivity_score,
			distraction_count = EXCLUDED.distraction_count,
			updated_at = EXCLUDED.updated_at
	`

	id := domain.NewID()
	if stat.ID != nil {
		id = *stat.ID
	}

	_, err := r.pool.Exec(ctx, query,
		id,
		stat.UserID,
		stat.Date,
		stat.TotalFocusTime,
		stat.SessionCount,
		stat.AvgProductivityScore,
		stat.DistractionCount,
		stat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily statistic: %w", err)
	}
	return nil
}

// FindRange returns stored statistics with from <= date <= to, ascending.
func (r *StatsRepository) FindRange(ctx context.Context, userID, from, to string) ([]*domain.DailyStatistic, error) {
	query := `
		SELECT ` + statColumns + `
		FROM daily_stats
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily statistics: %w", err)
	}
	defer rows.Close()

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

func scanStat(row pgx.Row) (*domain.DailyStatistic, error) {
	var stat domain.DailyStatistic
	var id string
	err := row.Scan(
		&id,
		&stat.UserID,
		&stat.Date,
		&stat.TotalFocusTime,
		&stat.SessionCount,
		&stat.AvgProductivityScore,
		&stat.DistractionCount,
		&stat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	stat.ID = &id
	return &stat, nil
}
