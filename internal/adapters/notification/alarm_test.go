package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xvierd/focusos/internal/config"
	"github.com/xvierd/focusos/internal/domain"
)

type sentNotifications struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (s *sentNotifications) notify(title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
	s.bodies = append(s.bodies, message)
	return nil
}

func (s *sentNotifications) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.titles)
}

func newTestNotifier(enabled bool) (*Notifier, *sentNotifications) {
	sent := &sentNotifications{}
	n := New(&config.NotificationConfig{Enabled: enabled})
	n.notify = sent.notify
	return n, sent
}

func TestNotifier_Disabled(t *testing.T) {
	n, sent := newTestNotifier(false)
	require.NoError(t, n.NotifyGoalReached())
	assert.Equal(t, 0, sent.count())
	assert.False(t, n.IsEnabled())

	assert.False(t, New(nil).IsEnabled())
	assert.NoError(t, New(nil).Notify("t", "m"))
}

func TestNotifier_SessionEnded(t *testing.T) {
	n, sent := newTestNotifier(true)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	session := domain.NewFocusSession("u", start, nil, nil)
	session.Finish(start.Add(25 * time.Minute))

	require.NoError(t, n.NotifySessionEnded(*session))
	require.Equal(t, 1, sent.count())
	assert.Equal(t, "You stayed focused for 25 minutes with 0 distractions.", sent.bodies[0])
}

func TestAlarm_Fires(t *testing.T) {
	n, sent := newTestNotifier(true)
	alarm := NewAlarm(n, nil)

	require.NoError(t, alarm.Schedule(5*time.Millisecond))
	assert.True(t, alarm.Pending())

	assert.Eventually(t, func() bool { return sent.count() == 1 }, time.Second, time.Millisecond)
	assert.False(t, alarm.Pending())
	assert.Equal(t, "Focus goal reached", sent.titles[0])
}

func TestAlarm_Cancel(t *testing.T) {
	n, sent := newTestNotifier(true)
	alarm := NewAlarm(n, nil)

	require.NoError(t, alarm.Schedule(20*time.Millisecond))
	alarm.Cancel()
	assert.False(t, alarm.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sent.count())
}

func TestAlarm_ScheduleReplacesPending(t *testing.T) {
	n, sent := newTestNotifier(true)
	alarm := NewAlarm(n, nil)

	require.NoError(t, alarm.Schedule(10*time.Millisecond))
	require.NoError(t, alarm.Schedule(30*time.Millisecond))
	require.NoError(t, alarm.Schedule(15*time.Millisecond))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, sent.count(), "only the last scheduled alarm may fire")
}

func TestAlarm_RejectsNonPositiveDelay(t *testing.T) {
	n, _ := newTestNotifier(true)
	alarm := NewAlarm(n, nil)

	assert.Error(t, alarm.Schedule(0))
	assert.Error(t, alarm.Schedule(-time.Second))
	assert.False(t, alarm.Pending())
}
