// Package scheduler polls the store for due timers and alarms and delivers
// them through a Sender. Delivery failures leave the row in place so the
// next tick retries; a fired one-shot is deleted, a repeating alarm is
// rescheduled.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Canary-Prism/TimeBot/internal/domain"
	"github.com/Canary-Prism/TimeBot/internal/store"
)

// Sender delivers a reminder to a user. The gateway implements it.
type Sender interface {
	SendMessage(userID, text string) error
}

const batchLimit = 50

type Scheduler struct {
	log      *zap.Logger
	repo     store.Repo
	zones    domain.ZoneSource
	sender   Sender
	interval time.Duration
}

func New(log *zap.Logger, repo store.Repo, zones domain.ZoneSource, sender Sender, interval time.Duration) *Scheduler {
	return &Scheduler{
		log:      log,
		repo:     repo,
		zones:    zones,
		sender:   sender,
		interval: interval,
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now.UTC())
		}
	}
}

// Tick fires everything due at or before now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.fireTimers(ctx, now)
	s.fireAlarms(ctx, now)
}

func (s *Scheduler) fireTimers(ctx context.Context, now time.Time) {
	due, err := s.repo.DueTimers(ctx, now, batchLimit)
	if err != nil {
		s.log.Error("query due timers", zap.Error(err))
		return
	}

	for _, t := range due {
		text := fmt.Sprintf("Timer for %s is up!", domain.FormatDuration(t.Duration))
		if t.Message != "" {
			text += " " + t.Message
		}
		if err := s.sender.SendMessage(t.UserID, text); err != nil {
			s.log.Warn("deliver timer",
				zap.Int64("id", t.ID),
				zap.String("user", t.UserID),
				zap.Error(err))
			continue
		}
		if err := s.repo.DeleteTimer(ctx, t.ID); err != nil {
			s.log.Error("delete fired timer", zap.Int64("id", t.ID), zap.Error(err))
		}
	}
}

func (s *Scheduler) fireAlarms(ctx context.Context, now time.Time) {
	due, err := s.repo.DueAlarms(ctx, now, batchLimit)
	if err != nil {
		s.log.Error("query due alarms", zap.Error(err))
		return
	}

	for _, a := range due {
		text := fmt.Sprintf("Alarm for %s!", a.ClockString())
		if a.Message != "" {
			text += " " + a.Message
		}
		if err := s.sender.SendMessage(a.UserID, text); err != nil {
			s.log.Warn("deliver alarm",
				zap.Int64("id", a.ID),
				zap.String("user", a.UserID),
				zap.Error(err))
			continue
		}

		if a.RepeatDays == 0 {
			if err := s.repo.DeleteAlarm(ctx, a.ID); err != nil {
				s.log.Error("delete fired alarm", zap.Int64("id", a.ID), zap.Error(err))
			}
			continue
		}

		tz, ok := s.zones.Zone(a.UserID)
		if !ok {
			// Owner dropped their timezone since setting the alarm. Leave the
			// alarm paused instead of guessing a zone.
			a.NextFireAt = nil
		} else {
			next := a.NextFire(now, domain.LoadZone(tz))
			a.NextFireAt = &next
		}
		if err := s.repo.UpdateAlarm(ctx, &a); err != nil {
			s.log.Error("reschedule alarm", zap.Int64("id", a.ID), zap.Error(err))
		}
	}
}
