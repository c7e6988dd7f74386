package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Canary-Prism/TimeBot/internal/domain"
	"github.com/Canary-Prism/TimeBot/internal/store"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeSender) SendMessage(userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("delivery down")
	}
	f.sent = append(f.sent, userID+": "+text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type zoneMap map[string]string

func (z zoneMap) Zone(userID string) (string, bool) {
	tz, ok := z[userID]
	return tz, ok
}

func newTestScheduler(t *testing.T, zones zoneMap) (*Scheduler, store.Repo, *fakeSender) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	sender := &fakeSender{}
	s := New(zap.NewNop(), repo, zones, sender, time.Second)
	return s, repo, sender
}

func TestTick_FiresDueTimer(t *testing.T) {
	s, repo, sender := newTestScheduler(t, zoneMap{})
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.AddTimer(ctx, &domain.Timer{
		UserID:    "alice",
		Duration:  5 * time.Minute,
		DueAt:     now.Add(-time.Second),
		Message:   "tea is ready",
		CreatedAt: now.Add(-5 * time.Minute),
	}))

	s.Tick(ctx, now)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "alice")
	require.Contains(t, msgs[0], "5 minutes")
	require.Contains(t, msgs[0], "tea is ready")

	timers, err := repo.DueTimers(ctx, now, 10)
	require.NoError(t, err)
	require.Empty(t, timers)
}

func TestTick_FutureTimerStays(t *testing.T) {
	s, repo, sender := newTestScheduler(t, zoneMap{})
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.AddTimer(ctx, &domain.Timer{
		UserID: "alice", Duration: time.Hour, DueAt: now.Add(time.Hour), CreatedAt: now,
	}))

	s.Tick(ctx, now)
	require.Empty(t, sender.messages())

	timers, err := repo.ListTimers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, timers, 1)
}

func TestTick_DeliveryFailureKeepsTimer(t *testing.T) {
	s, repo, sender := newTestScheduler(t, zoneMap{})
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.AddTimer(ctx, &domain.Timer{
		UserID: "alice", Duration: time.Minute, DueAt: now.Add(-time.Second), CreatedAt: now,
	}))

	sender.fail = true
	s.Tick(ctx, now)

	timers, err := repo.ListTimers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, timers, 1)

	// Next tick retries and succeeds.
	sender.fail = false
	s.Tick(ctx, now)
	require.Len(t, sender.messages(), 1)

	timers, err = repo.ListTimers(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, timers)
}

func TestTick_OneShotAlarmDeleted(t *testing.T) {
	s, repo, sender := newTestScheduler(t, zoneMap{"alice": "UTC"})
	ctx := context.Background()
	now := time.Now().UTC()
	due := now.Add(-time.Second)

	require.NoError(t, repo.AddAlarm(ctx, &domain.Alarm{
		UserID: "alice", Hour: 7, Minute: 30, NextFireAt: &due, Message: "wake up", CreatedAt: now,
	}))

	s.Tick(ctx, now)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "07:30")
	require.Contains(t, msgs[0], "wake up")

	alarms, err := repo.ListAlarms(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, alarms)
}

func TestTick_RepeatingAlarmRescheduled(t *testing.T) {
	s, repo, sender := newTestScheduler(t, zoneMap{"alice": "UTC"})
	ctx := context.Background()
	now := time.Now().UTC()
	due := now.Add(-time.Second)

	alarm := &domain.Alarm{
		UserID: "alice", Hour: 7, Minute: 0, NextFireAt: &due, Message: "daily", CreatedAt: now,
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		alarm.AddRepeat(d)
	}
	require.NoError(t, repo.AddAlarm(ctx, alarm))

	s.Tick(ctx, now)
	require.Len(t, sender.messages(), 1)

	alarms, err := repo.ListAlarms(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	require.NotNil(t, alarms[0].NextFireAt)
	require.True(t, alarms[0].NextFireAt.After(now))
}

func TestTick_RepeatingAlarmWithoutZonePauses(t *testing.T) {
	s, repo, _ := newTestScheduler(t, zoneMap{})
	ctx := context.Background()
	now := time.Now().UTC()
	due := now.Add(-time.Second)

	alarm := &domain.Alarm{
		UserID: "ghost", Hour: 7, NextFireAt: &due, Message: "daily", CreatedAt: now,
	}
	alarm.AddRepeat(time.Monday)
	require.NoError(t, repo.AddAlarm(ctx, alarm))

	s.Tick(ctx, now)

	alarms, err := repo.ListAlarms(ctx, "ghost")
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	require.Nil(t, alarms[0].NextFireAt)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _, _ := newTestScheduler(t, zoneMap{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
