package store

import (
	"context"
	"time"

	"github.com/Canary-Prism/TimeBot/internal/domain"
)

// Repo defines storage operations for preferences, timers and alarms.
type Repo interface {
	UpsertUser(ctx context.Context, p *domain.UserPref) error
	GetUser(ctx context.Context, userID string) (*domain.UserPref, error)
	ListUsers(ctx context.Context) ([]domain.UserPref, error)

	AddTimer(ctx context.Context, t *domain.Timer) error
	ListTimers(ctx context.Context, userID string) ([]domain.Timer, error)
	DeleteTimer(ctx context.Context, id int64) error
	DueTimers(ctx context.Context, now time.Time, limit int) ([]domain.Timer, error)

	AddAlarm(ctx context.Context, a *domain.Alarm) error
	UpdateAlarm(ctx context.Context, a *domain.Alarm) error
	ListAlarms(ctx context.Context, userID string) ([]domain.Alarm, error)
	DeleteAlarm(ctx context.Context, id int64) error
	DueAlarms(ctx context.Context, now time.Time, limit int) ([]domain.Alarm, error)

	Close() error
}
