// Package services implements the application layer (use cases)
// following hexagonal architecture principles.
package services

import (
	"context"
	"fmt"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// HabitService handles the habits a user wants to break and the account-level
// data reset.
type HabitService struct {
	storage  ports.Storage
	identity ports.IdentityProvider
}

// NewHabitService creates a new habit service.
func NewHabitService(storage ports.Storage, identity ports.IdentityProvider) *HabitService {
	return &HabitService{storage: storage, identity: identity}
}

// Add creates a habit for the current user.
func (s *HabitService) Add(ctx context.Context, name, icon string) (*domain.Habit, error) {
	userID, err := resolveUser(s.identity)
	if err != nil {
		return nil, err
	}

	habit, err := domain.NewHabit(userID, name, icon)
	if err != nil {
		return nil, fmt.Errorf("invalid habit: %w", err)
	}

	if err := s.storage.Habits().Save(ctx, habit); err != nil {
		return nil, fmt.Errorf("failed to save habit: %w", err)
	}

	return habit, nil
}

// List returns the current user's habits.
func (s *HabitService) List(ctx context.Context) ([]*domain.Habit, error) {
	userID, err := resolveUser(s.identity)
	if err != nil {
		return nil, err
	}
	return s.storage.Habits().FindByUser(ctx, userID)
}

// Delete removes one of the current user's habits.
func (s *HabitService) Delete(ctx context.Context, id string) error {
	userID, err := resolveUser(s.identity)
	if err != nil {
		return err
	}
	if err := s.storage.Habits().Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	return nil
}

// ClearAllUserData deletes every session, statistic and habit of the current
// user.
func (s *HabitService) ClearAllUserData(ctx context.Context) error {
	userID, err := resolveUser(s.identity)
	if err != nil {
		return err
	}
	if err := s.storage.ClearAllUserData(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear user data: %w", err)
	}
	return nil
}
