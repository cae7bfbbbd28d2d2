package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// HabitRepository handles persistence for habits.
type HabitRepository struct {
	pool *pgxpool.Pool
}

var _ ports.HabitRepository = (*HabitRepository)(nil)

// NewHabitRepository creates a new HabitRepository.
func NewHabitRepository(pool *pgxpool.Pool) *HabitRepository {
	return &HabitRepository{pool: pool}
}

// Save upserts a habit keyed by its ID.
func (r *HabitRepository) Save(ctx context.Context, habit *domain.Habit) error {
	query := `
		INSERT INTO habits (id, user_id, name, icon, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			icon = EXCLUDED.icon
	`
	_, err := r.pool.Exec(ctx, query, habit.ID, habit.UserID, habit.Name, habit.Icon, habit.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrHabitExists
	}
	if err != nil {
		return fmt.Errorf("failed to save habit: %w", err)
	}
	return nil
}

// FindByUser returns a user's habits, oldest first.
func (r *HabitRepository) FindByUser(ctx context.Context, userID string) ([]*domain.Habit, error) {
	query := `
		SELECT id, user_id, name, icon, created_at
		FROM habits
		WHERE user_id = $1
		ORDER BY created_at ASC, name ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var habits []*domain.Habit
	for rows.Next() {
		var habit domain.Habit
		if err := rows.Scan(&habit.ID, &habit.UserID, &habit.Name, &habit.Icon, &habit.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, &habit)
	}
	return habits, rows.Err()
}

// Delete removes a habit owned by userID.
func (r *HabitRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}
