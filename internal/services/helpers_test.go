package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xvierd/focusos/internal/adapters/storage"
	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

func setupTestStorage(t *testing.T) (ports.Storage, func()) {
	store, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("Failed to create test storage: %v", err)
	}
	return store, func() { _ = store.Close() }
}

// fakeClock is a manually advanced clock whose tickers are driven by tests.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *fakeClock) lastTicker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

// tick advances the clock by d and delivers n ticks to the newest ticker.
// It reports how many ticks were accepted.
func (c *fakeClock) tick(n int, d time.Duration) int {
	accepted := 0
	for i := 0; i < n; i++ {
		c.Advance(d)
		t := c.lastTicker()
		if t == nil || !t.send(c.Now()) {
			break
		}
		accepted++
	}
	return accepted
}

type fakeTicker struct {
	ch      chan time.Time
	once    sync.Once
	stopped chan struct{}
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *fakeTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

func (t *fakeTicker) send(at time.Time) bool {
	select {
	case t.ch <- at:
		return true
	case <-t.stopped:
		return false
	case <-time.After(time.Second):
		return false
	}
}

// fakeAlarm records every call in order.
type fakeAlarm struct {
	mu      sync.Mutex
	calls   []string
	pending *time.Duration
	err     error
}

func (a *fakeAlarm) Schedule(after time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, fmt.Sprintf("schedule %s", after))
	if a.pending != nil {
		// Single slot: a second outstanding alarm must never exist.
		a.calls = append(a.calls, "overlap")
	}
	if a.err != nil {
		return a.err
	}
	a.pending = &after
	return nil
}

func (a *fakeAlarm) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "cancel")
	a.pending = nil
}

func (a *fakeAlarm) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeAlarm) Pending() *time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// eventRecorder collects engine events.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) record(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) count(t domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// lifecycle returns the recorded event types without ticks.
func (r *eventRecorder) lifecycle() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EventType
	for _, ev := range r.events {
		if ev.Type != domain.EventTick {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (r *eventRecorder) last(t domain.EventType) (domain.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return domain.Event{}, false
}

// flakyStorage wraps a Storage and fails the first N calls of selected
// operations.
type flakyStorage struct {
	ports.Storage
	mu            sync.Mutex
	saveFailures  int
	statsFailures int
	// lostAcks makes an upsert commit and then report failure.
	lostAcks    int
	saveCalls   int
	upsertCalls int
}

var (
	errUnavailable        = errors.New("backend unavailable")
	errTimeoutAfterCommit = errors.New("timeout after commit")
)

func (f *flakyStorage) Sessions() ports.SessionRepository {
	return flakySessions{SessionRepository: f.Storage.Sessions(), f: f}
}

func (f *flakyStorage) Stats() ports.StatsRepository {
	return flakyStats{StatsRepository: f.Storage.Stats(), f: f}
}

func (f *flakyStorage) counts() (saves, upserts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls, f.upsertCalls
}

type flakySessions struct {
	ports.SessionRepository
	f *flakyStorage
}

func (s flakySessions) Save(ctx context.Context, session *domain.FocusSession) error {
	s.f.mu.Lock()
	s.f.saveCalls++
	fail := s.f.saveFailures > 0
	if fail {
		s.f.saveFailures--
	}
	s.f.mu.Unlock()
	if fail {
		return errUnavailable
	}
	return s.SessionRepository.Save(ctx, session)
}

type flakyStats struct {
	ports.StatsRepository
	f *flakyStorage
}

func (s flakyStats) Upsert(ctx context.Context, stat *domain.DailyStatistic) error {
	s.f.mu.Lock()
	s.f.upsertCalls++
	fail := s.f.statsFailures > 0
	if fail {
		s.f.statsFailures--
	}
	lostAck := !fail && s.f.lostAcks > 0
	if lostAck {
		s.f.lostAcks--
	}
	s.f.mu.Unlock()
	if fail {
		return errUnavailable
	}
	if err := s.StatsRepository.Upsert(ctx, stat); err != nil {
		return err
	}
	if lostAck {
		return errTimeoutAfterCommit
	}
	return nil
}
