package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// Attribution selects which calendar day a completed session is folded into.
type Attribution string

const (
	// AttributeToEnd folds a session into the day it was ended on.
	AttributeToEnd Attribution = "end"
	// AttributeToStart folds a session into the day it was started on.
	AttributeToStart Attribution = "start"
)

// ParseAttribution validates a configured attribution mode.
func ParseAttribution(s string) (Attribution, error) {
	switch Attribution(s) {
	case "", AttributeToEnd:
		return AttributeToEnd, nil
	case AttributeToStart:
		return AttributeToStart, nil
	default:
		return "", fmt.Errorf("unknown stats attribution %q (want %q or %q)", s, AttributeToEnd, AttributeToStart)
	}
}

// StatsService maintains the per-day statistics derived from completed
// sessions.
type StatsService struct {
	storage     ports.Storage
	identity    ports.IdentityProvider
	clock       ports.Clock
	attribution Attribution
	logger      *slog.Logger
	locks       keyedMutex
}

// NewStatsService creates a new stats service.
func NewStatsService(storage ports.Storage, identity ports.IdentityProvider, clock ports.Clock, attribution Attribution, logger *slog.Logger) *StatsService {
	if clock == nil {
		clock = NewSystemClock()
	}
	if attribution == "" {
		attribution = AttributeToEnd
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsService{
		storage:     storage,
		identity:    identity,
		clock:       clock,
		attribution: attribution,
		logger:      logger,
	}
}

// DateFor returns the day key a completed session is attributed to.
func (s *StatsService) DateFor(session domain.FocusSession) string {
	switch {
	case s.attribution == AttributeToStart:
		return domain.DateKey(session.StartTime)
	case session.EndTime != nil:
		return domain.DateKey(*session.EndTime)
	default:
		return domain.DateKey(s.clock.Now())
	}
}

// FoldSession adds a completed session to its day's statistic and upserts
// the result. Folds for the same user and day are serialized.
func (s *StatsService) FoldSession(ctx context.Context, session domain.FocusSession) (*domain.DailyStatistic, error) {
	return s.foldWith(ctx, session, runOnce)
}

// storageStep runs one storage call. The sync queue passes a retrying
// runner; each call it wraps is idempotent on its own.
type storageStep func(ctx context.Context, op string, fn func(context.Context) error) error

func runOnce(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

// foldWith reads the day row and computes the folded statistic once, then
// writes it through step. Retrying the write replays the same keyed row, so
// a write that committed but reported failure is not counted twice.
func (s *StatsService) foldWith(ctx context.Context, session domain.FocusSession, step storageStep) (*domain.DailyStatistic, error) {
	userID := session.UserID
	if userID == "" {
		var err error
		if userID, err = resolveUser(s.identity); err != nil {
			return nil, err
		}
	}
	date := s.DateFor(session)

	unlock := s.locks.Lock(userID + "|" + date)
	defer unlock()

	var existing *domain.DailyStatistic
	err := step(ctx, "fetch_statistic", func(ctx context.Context) error {
		var err error
		existing, err = s.storage.Stats().Find(ctx, userID, date)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily statistic: %w", err)
	}

	now := s.clock.Now()
	next := domain.Fold(existing, session, userID, date, now)
	if next.ID == nil {
		id := domain.NewID()
		next.ID = &id
	}
	next.UpdatedAt = &now

	err = step(ctx, "upsert_statistic", func(ctx context.Context) error {
		return s.storage.Stats().Upsert(ctx, &next)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert daily statistic: %w", err)
	}

	s.logger.Debug("daily statistic folded",
		"user_id", userID,
		"date", date,
		"session_id", session.ID,
		"session_count", next.SessionCount,
	)
	return &next, nil
}

// Today returns the current user's statistic for today.
func (s *StatsService) Today(ctx context.Context) (*domain.DailyStatistic, error) {
	return s.Day(ctx, domain.DateKey(s.clock.Now()))
}

// Day returns the current user's statistic for a YYYY-MM-DD day. Days with no
// sessions yield a zero statistic.
func (s *StatsService) Day(ctx context.Context, date string) (*domain.DailyStatistic, error) {
	if _, err := domain.ParseDateKey(date); err != nil {
		return nil, err
	}
	userID, err := resolveUser(s.identity)
	if err != nil {
		return nil, err
	}

	stat, err := s.storage.Stats().Find(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily statistic: %w", err)
	}
	if stat == nil {
		zero := domain.NewDailyStatistic(userID, date)
		return &zero, nil
	}
	return stat, nil
}

// Range returns one statistic per day from..to inclusive, ascending, with
// zero statistics for days without sessions.
func (s *StatsService) Range(ctx context.Context, from, to time.Time) ([]domain.DailyStatistic, error) {
	userID, err := resolveUser(s.identity)
	if err != nil {
		return nil, err
	}

	fromKey, toKey := domain.DateKey(from), domain.DateKey(to)
	if fromKey > toKey {
		fromKey, toKey = toKey, fromKey
	}

	stored, err := s.storage.Stats().FindRange(ctx, userID, fromKey, toKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily statistics: %w", err)
	}
	byDate := make(map[string]*domain.DailyStatistic, len(stored))
	for _, st := range stored {
		byDate[st.Date] = st
	}

	start, _ := domain.ParseDateKey(fromKey)
	var out []domain.DailyStatistic
	for day := start; domain.DateKey(day) <= toKey; day = day.AddDate(0, 0, 1) {
		key := domain.DateKey(day)
		if st, ok := byDate[key]; ok {
			out = append(out, *st)
			continue
		}
		out = append(out, domain.NewDailyStatistic(userID, key))
	}
	return out, nil
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
