package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// StateService implements the MCPStateProvider interface on top of one
// engine and the persisted history.
type StateService struct {
	storage  ports.Storage
	engine   ports.EngineController
	stats    *StatsService
	habits   *HabitService
	identity ports.IdentityProvider
}

// NewStateService creates a new state service.
func NewStateService(storage ports.Storage, engine ports.EngineController, stats *StatsService, habits *HabitService, identity ports.IdentityProvider) *StateService {
	return &StateService{
		storage:  storage,
		engine:   engine,
		stats:    stats,
		habits:   habits,
		identity: identity,
	}
}

// GetCurrentState implements ports.MCPStateProvider.
func (s *StateService) GetCurrentState(ctx context.Context) (*domain.CurrentState, error) {
	state := &domain.CurrentState{Engine: s.engine.Snapshot()}

	today, err := s.stats.Today(ctx)
	if err != nil {
		state.Today = domain.NewDailyStatistic("", domain.DateKey(time.Now()))
		return state, nil
	}
	state.Today = *today
	return state, nil
}

// StartSession implements ports.MCPStateProvider.
func (s *StateService) StartSession(_ context.Context, tag *string, planned *time.Duration) (*domain.FocusSession, error) {
	return s.engine.Start(domain.StartRequest{Tag: tag, PlannedDuration: planned})
}

// PauseSession implements ports.MCPStateProvider.
func (s *StateService) PauseSession(_ context.Context) (*domain.FocusSession, bool) {
	return s.engine.Pause()
}

// ResumeSession implements ports.MCPStateProvider.
func (s *StateService) ResumeSession(_ context.Context) (*domain.FocusSession, bool) {
	return s.engine.Resume()
}

// LogDistraction implements ports.MCPStateProvider.
func (s *StateService) LogDistraction(_ context.Context, description string) (*domain.DistractionRecord, bool) {
	return s.engine.LogDistraction(description)
}

// EndSession implements ports.MCPStateProvider.
func (s *StateService) EndSession(_ context.Context) (*domain.FocusSession, bool) {
	return s.engine.End()
}

// GetDailyStats implements ports.MCPStateProvider. An empty date means today.
func (s *StateService) GetDailyStats(ctx context.Context, date string) (*domain.DailyStatistic, error) {
	if date == "" {
		return s.stats.Today(ctx)
	}
	return s.stats.Day(ctx, date)
}

// ListSessions implements ports.MCPStateProvider. Sessions ended by this
// engine that have not reached storage yet are included.
func (s *StateService) ListSessions(ctx context.Context, limit int) ([]*domain.FocusSession, error) {
	userID, err := resolveUser(s.identity)
	if err != nil {
		return nil, err
	}

	sessions, err := s.storage.Sessions().FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	seen := make(map[string]bool, len(sessions))
	for _, session := range sessions {
		seen[session.ID] = true
	}
	for _, session := range s.engine.History() {
		if seen[session.ID] || session.UserID != userID {
			continue
		}
		session := session
		sessions = append(sessions, &session)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})

	if limit > 0 && len(sessions) > limit {
		return sessions[:limit], nil
	}
	return sessions, nil
}

// AddHabit implements ports.MCPStateProvider.
func (s *StateService) AddHabit(ctx context.Context, name, icon string) (*domain.Habit, error) {
	return s.habits.Add(ctx, name, icon)
}

// ListHabits implements ports.MCPStateProvider.
func (s *StateService) ListHabits(ctx context.Context) ([]*domain.Habit, error) {
	return s.habits.List(ctx)
}

// DeleteHabit implements ports.MCPStateProvider.
func (s *StateService) DeleteHabit(ctx context.Context, id string) error {
	return s.habits.Delete(ctx, id)
}

// Ensure StateService implements MCPStateProvider.
var _ ports.MCPStateProvider = (*StateService)(nil)
