package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

// SyncConfig holds the retry policy for background persistence.
type SyncConfig struct {
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	QueueSize       int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// DefaultSyncConfig returns the default retry policy.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		MaxAttempts:     3,
		BackoffBase:     500 * time.Millisecond,
		BackoffMax:      10 * time.Second,
		QueueSize:       64,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// SyncStats reports queue activity since creation.
type SyncStats struct {
	Enqueued  int64
	Succeeded int64
	Failed    int64
	Retried   int64
}

// ErrQueueClosed is returned when a job is offered to a closed queue.
var ErrQueueClosed = errors.New("sync queue is closed")

// SyncQueue persists completed sessions in the background. Each job saves
// the session and folds it into its daily statistic concurrently; neither
// step waits for or rolls back the other.
type SyncQueue struct {
	storage ports.Storage
	stats   *StatsService
	config  SyncConfig
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[struct{}]

	jobs   chan domain.FocusSession
	cancel context.CancelFunc
	done   chan struct{}

	// mu guards closed, pending and idle. idle is closed whenever pending
	// is zero.
	mu      sync.Mutex
	closed  bool
	pending int
	idle    chan struct{}

	enqueued  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64
}

// NewSyncQueue creates a queue. Call Start to begin processing.
func NewSyncQueue(storage ports.Storage, stats *StatsService, config SyncConfig, logger *slog.Logger) *SyncQueue {
	defaults := DefaultSyncConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = defaults.BackoffBase
	}
	if config.BackoffMax < config.BackoffBase {
		config.BackoffMax = config.BackoffBase
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = defaults.BreakerFailures
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = defaults.BreakerTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &SyncQueue{
		storage: storage,
		stats:   stats,
		config:  config,
		logger:  logger,
		jobs:    make(chan domain.FocusSession, config.QueueSize),
		done:    make(chan struct{}),
		idle:    make(chan struct{}),
	}
	close(q.idle)
	q.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "persistence",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		// A missing user says nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNoUser)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return q
}

// Start launches the worker. It returns immediately.
func (q *SyncQueue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	go q.run(ctx)
}

// HandleEvent enqueues ended sessions. It is meant to be passed to
// SessionEngine.Subscribe.
func (q *SyncQueue) HandleEvent(ev domain.Event) {
	if ev.Type != domain.EventSessionEnded {
		return
	}
	if err := q.Enqueue(ev.Session); err != nil {
		q.logger.Error("failed to enqueue session sync",
			"session_id", ev.Session.ID,
			"user_id", ev.Session.UserID,
			"error", err,
		)
	}
}

// Enqueue schedules a completed session for persistence without blocking.
func (q *SyncQueue) Enqueue(session domain.FocusSession) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- session:
		if q.pending == 0 {
			q.idle = make(chan struct{})
		}
		q.pending++
		q.enqueued.Add(1)
		return nil
	default:
		q.failed.Add(1)
		return fmt.Errorf("sync queue full (%d jobs)", q.config.QueueSize)
	}
}

// jobDone marks one enqueued job as finished.
func (q *SyncQueue) jobDone() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending--
	if q.pending == 0 {
		close(q.idle)
	}
}

// Flush waits until every enqueued job has been processed or ctx is done.
func (q *SyncQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects new jobs, waits for pending ones until ctx is done and stops
// the worker. Jobs still queued at that point are dropped and counted as
// failed.
func (q *SyncQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	err := q.Flush(ctx)
	if q.cancel != nil {
		q.cancel()
		<-q.done
	}

	for {
		select {
		case session := <-q.jobs:
			q.failed.Add(1)
			q.logger.Error("dropped unsynced session on close",
				"session_id", session.ID,
				"user_id", session.UserID,
			)
			q.jobDone()
		default:
			return err
		}
	}
}

// Stats returns a snapshot of the queue counters.
func (q *SyncQueue) Stats() SyncStats {
	return SyncStats{
		Enqueued:  q.enqueued.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Retried:   q.retried.Load(),
	}
}

func (q *SyncQueue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case session := <-q.jobs:
			q.process(ctx, session)
			q.jobDone()
		}
	}
}

func (q *SyncQueue) process(ctx context.Context, session domain.FocusSession) {
	if session.UserID == "" {
		if userID, err := resolveUser(q.stats.identity); err == nil {
			session.UserID = userID
		}
	}
	logger := q.logger.With("session_id", session.ID, "user_id", session.UserID)
	step := func(ctx context.Context, op string, fn func(context.Context) error) error {
		return q.retry(ctx, logger, op, fn)
	}

	var g errgroup.Group
	g.Go(func() error {
		err := q.saveSession(ctx, session, step)
		if err != nil {
			logger.Error("failed to save session", "error", err)
		}
		return err
	})
	g.Go(func() error {
		_, err := q.stats.foldWith(ctx, session, step)
		if err != nil {
			logger.Error("failed to fold daily statistic", "date", q.stats.DateFor(session), "error", err)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		q.failed.Add(1)
		return
	}
	q.succeeded.Add(1)
	logger.Debug("session synced")
}

// saveSession persists a session that has an owner. Sessions nobody owns are
// never written.
func (q *SyncQueue) saveSession(ctx context.Context, session domain.FocusSession, step storageStep) error {
	if session.UserID == "" {
		return fmt.Errorf("save_session: %w", domain.ErrNoUser)
	}
	return step(ctx, "save_session", func(ctx context.Context) error {
		return q.storage.Sessions().Save(ctx, &session)
	})
}

// retry runs fn through the breaker until it succeeds, attempts run out or
// ctx is done. Missing identity is not retried.
func (q *SyncQueue) retry(ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		_, err := q.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, fn(ctx)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNoUser) || attempt >= q.config.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempt(s): %w", op, attempt, err)
		}

		q.retried.Add(1)
		wait := q.backoff(attempt)
		logger.Warn("persistence attempt failed, retrying",
			"op", op,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff returns base * 2^(attempt-1), capped at BackoffMax.
func (q *SyncQueue) backoff(attempt int) time.Duration {
	d := q.config.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= q.config.BackoffMax {
			return q.config.BackoffMax
		}
	}
	return d
}
