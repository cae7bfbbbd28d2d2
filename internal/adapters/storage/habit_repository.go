package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// habitRepository implements ports.HabitRepository using SQLite.
type habitRepository struct {
	db *sql.DB
}

// newHabitRepository creates a new habit repository.
func newHabitRepository(db *sql.DB) ports.HabitRepository {
	return &habitRepository{db: db}
}

// Save upserts a habit keyed by its ID. A second habit with the same name
// for the same user yields domain.ErrHabitExists.
func (r *habitRepository) Save(ctx context.Context, habit *domain.Habit) error {
	query := `
		INSERT INTO habits (id, user_id, name, icon, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			icon = excluded.icon
	`

	_, err := r.db.ExecContext(ctx, query,
		habit.ID,
		habit.UserID,
		habit.Name,
		habit.Icon,
		habit.CreatedAt.UTC(),
	)
	if isUniqueConstraintError(err) {
		return domain.ErrHabitExists
	}
	if err != nil {
		return fmt.Errorf("failed to save habit: %w", err)
	}

	return nil
}

// FindByUser retrieves a user's habits, oldest first.
func (r *habitRepository) FindByUser(ctx context.Context, userID string) ([]*domain.Habit, error) {
	query := `
		SELECT id, user_id, name, icon, created_at
		FROM habits
		WHERE user_id = ?
		ORDER BY created_at ASC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
func (r *habitRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrHabitNotFound
	}

	return nil
}
