package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Canary-Prism/TimeBot/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestUserRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	pref := &domain.UserPref{
		UserID:  "alice",
		TZ:      "America/Los_Angeles",
		Visible: true,
	}
	require.NoError(t, repo.UpsertUser(ctx, pref))

	got, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", got.UserID)
	require.Equal(t, "America/Los_Angeles", got.TZ)
	require.True(t, got.Visible)
	require.Empty(t, got.Format)
	require.False(t, got.CreatedAt.IsZero())
}

func TestUserUpsertOverwrites(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, &domain.UserPref{UserID: "bob", TZ: "UTC", Visible: true}))
	require.NoError(t, repo.UpsertUser(ctx, &domain.UserPref{UserID: "bob", TZ: "Europe/London", Format: "15:04"}))

	got, err := repo.GetUser(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "Europe/London", got.TZ)
	require.Equal(t, "15:04", got.Format)
	require.False(t, got.Visible)
}

func TestGetUserNotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetUser(context.Background(), "nobody")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestListUsersOrdered(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"carol", "alice", "bob"} {
		require.NoError(t, repo.UpsertUser(ctx, &domain.UserPref{UserID: id, TZ: "UTC"}))
	}

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.Equal(t, "alice", users[0].UserID)
	require.Equal(t, "bob", users[1].UserID)
	require.Equal(t, "carol", users[2].UserID)
}

func TestTimerLifecycle(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	early := &domain.Timer{
		UserID:    "alice",
		Duration:  5 * time.Minute,
		DueAt:     now.Add(5 * time.Minute),
		Message:   "tea",
		CreatedAt: now,
	}
	late := &domain.Timer{
		UserID:    "alice",
		Duration:  time.Hour,
		DueAt:     now.Add(time.Hour),
		Message:   "laundry",
		CreatedAt: now,
	}
	require.NoError(t, repo.AddTimer(ctx, late))
	require.NoError(t, repo.AddTimer(ctx, early))
	require.NotZero(t, early.ID)
	require.NotEqual(t, early.ID, late.ID)

	timers, err := repo.ListTimers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, timers, 2)
	require.Equal(t, "tea", timers[0].Message)
	require.Equal(t, 5*time.Minute, timers[0].Duration)
	require.True(t, timers[0].DueAt.Equal(early.DueAt))

	require.NoError(t, repo.DeleteTimer(ctx, early.ID))
	timers, err = repo.ListTimers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, timers, 1)
	require.Equal(t, "laundry", timers[0].Message)
}

func TestDueTimers(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	past := &domain.Timer{UserID: "a", Duration: time.Minute, DueAt: now.Add(-time.Minute), Message: "past", CreatedAt: now}
	future := &domain.Timer{UserID: "a", Duration: time.Minute, DueAt: now.Add(time.Hour), Message: "future", CreatedAt: now}
	require.NoError(t, repo.AddTimer(ctx, past))
	require.NoError(t, repo.AddTimer(ctx, future))

	due, err := repo.DueTimers(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "past", due[0].Message)
}

func TestAlarmLifecycle(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	next := now.Add(2 * time.Hour)

	alarm := &domain.Alarm{
		UserID:     "alice",
		Hour:       7,
		Minute:     30,
		NextFireAt: &next,
		Message:    "wake up",
		CreatedAt:  now,
	}
	alarm.AddRepeat(time.Monday)
	alarm.AddRepeat(time.Friday)
	require.NoError(t, repo.AddAlarm(ctx, alarm))
	require.NotZero(t, alarm.ID)

	alarms, err := repo.ListAlarms(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	got := alarms[0]
	require.Equal(t, 7, got.Hour)
	require.Equal(t, 30, got.Minute)
	require.Equal(t, []time.Weekday{time.Monday, time.Friday}, got.Repeats())
	require.NotNil(t, got.NextFireAt)
	require.True(t, got.NextFireAt.Equal(next))

	got.Hour = 8
	got.NextFireAt = nil
	require.NoError(t, repo.UpdateAlarm(ctx, &got))

	alarms, err = repo.ListAlarms(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 8, alarms[0].Hour)
	require.Nil(t, alarms[0].NextFireAt)

	require.NoError(t, repo.DeleteAlarm(ctx, got.ID))
	alarms, err = repo.ListAlarms(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, alarms)
}

func TestDueAlarms(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := &domain.Alarm{UserID: "a", Hour: 6, NextFireAt: &past, Message: "due", CreatedAt: now}
	notDue := &domain.Alarm{UserID: "a", Hour: 9, NextFireAt: &future, Message: "later", CreatedAt: now}
	paused := &domain.Alarm{UserID: "a", Hour: 12, Message: "paused", CreatedAt: now}
	require.NoError(t, repo.AddAlarm(ctx, due))
	require.NoError(t, repo.AddAlarm(ctx, notDue))
	require.NoError(t, repo.AddAlarm(ctx, paused))

	got, err := repo.DueAlarms(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "due", got[0].Message)
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	repo, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.UpsertUser(ctx, &domain.UserPref{UserID: "dave", TZ: "Asia/Tokyo", Visible: true}))
	require.NoError(t, repo.Close())

	repo, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetUser(ctx, "dave")
	require.NoError(t, err)
	require.Equal(t, "Asia/Tokyo", got.TZ)
}
