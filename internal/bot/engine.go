// Package bot ties the parser, resolver and registry together into the
// operations the chat surface exposes: scanning messages for time
// expressions, preference commands, current-time queries, timers and alarms.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Canary-Prism/TimeBot/internal/domain"
	"github.com/Canary-Prism/TimeBot/internal/registry"
	"github.com/Canary-Prism/TimeBot/internal/store"
)

// Engine is stateless apart from its collaborators and safe for concurrent
// use; all mutable state lives in the registry and the store.
type Engine struct {
	log       *zap.Logger
	reg       *registry.Registry
	repo      store.Repo
	defaultTZ string
}

func New(log *zap.Logger, reg *registry.Registry, repo store.Repo, defaultTZ string) *Engine {
	return &Engine{log: log, reg: reg, repo: repo, defaultTZ: defaultTZ}
}

// HandleMessage scans a message for time expressions and builds the reply:
// one block per expression, each block listing the instant in every
// configured recipient zone. Returns "" when there is nothing to say, either
// because no expression was found or no recipient has a timezone.
//
// A sender without a configured timezone is anchored to the default zone, so
// their expressions still convert for everyone else.
func (e *Engine) HandleMessage(ctx context.Context, senderID, text string, recipientIDs []string, sentAt time.Time) string {
	candidates := domain.Extract(text)
	if len(candidates) == 0 {
		return ""
	}

	senderTZ, ok := e.reg.Zone(senderID)
	if !ok {
		senderTZ = e.defaultTZ
	}
	senderLoc := domain.LoadZone(senderTZ)

	var blocks []string
	for _, c := range candidates {
		r, err := domain.Resolve(c, senderLoc, sentAt)
		if err != nil {
			e.log.Debug("dropping unresolvable expression",
				zap.String("text", c.Text),
				zap.Error(err))
			continue
		}

		locs := domain.Convert(r, recipientIDs, e.reg, sentAt)
		if block := domain.Compose(c, locs); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// --- Preferences ---

// SetUserTimezone stores a timezone for the user, replacing any prior value.
func (e *Engine) SetUserTimezone(ctx context.Context, userID, tz string) error {
	return e.reg.SetTimezone(ctx, userID, tz)
}

// GetUserTimezone returns the user's configured zone name, or
// domain.ErrNotConfigured when none is set.
func (e *Engine) GetUserTimezone(userID string) (string, error) {
	tz, ok := e.reg.Zone(userID)
	if !ok {
		return "", domain.ErrNotConfigured
	}
	return tz, nil
}

func (e *Engine) RemoveUserTimezone(ctx context.Context, userID string) error {
	return e.reg.RemoveTimezone(ctx, userID)
}

func (e *Engine) SetTimezoneVisible(ctx context.Context, userID string, visible bool) error {
	return e.reg.SetVisible(ctx, userID, visible)
}

func (e *Engine) SetUserFormat(ctx context.Context, userID, layout string) error {
	return e.reg.SetFormat(ctx, userID, layout)
}

const defaultTimeLayout = "Monday, January 2, 2006 3:04:05 PM"

// CurrentTimeFor renders the current time in the subject's zone, honoring
// their format override and visibility flag. With the default layout the
// zone abbreviation is appended only when the subject opted in to showing
// it; a custom layout is rendered verbatim since the subject chose exactly
// what it reveals.
func (e *Engine) CurrentTimeFor(userID string, now time.Time) (string, error) {
	pref, ok := e.reg.Get(userID)
	if !ok || !pref.Configured() {
		return "", domain.ErrNotConfigured
	}

	local := now.In(domain.LoadZone(pref.TZ))
	if pref.Format != "" {
		return local.Format(pref.Format), nil
	}

	layout := defaultTimeLayout
	if pref.Visible {
		layout += " (MST)"
	}
	return local.Format(layout), nil
}

// --- Timers ---

// StartTimer parses the duration text and schedules a one-shot reminder.
func (e *Engine) StartTimer(ctx context.Context, userID, duration, message string, now time.Time) (*domain.Timer, error) {
	d, err := domain.ParseTimerDuration(duration)
	if err != nil {
		return nil, err
	}

	t := &domain.Timer{
		UserID:    userID,
		Duration:  d,
		DueAt:     now.UTC().Add(d),
		Message:   message,
		CreatedAt: now.UTC(),
	}
	if err := e.repo.AddTimer(ctx, t); err != nil {
		return nil, err
	}
	e.log.Info("timer started",
		zap.String("user", userID),
		zap.Duration("duration", d),
		zap.Time("due_at", t.DueAt))
	return t, nil
}

// ListTimers returns a user's pending timers, soonest first.
func (e *Engine) ListTimers(ctx context.Context, userID string) ([]domain.Timer, error) {
	return e.repo.ListTimers(ctx, userID)
}

// CancelTimer removes the user's timer at the given 1-based list position.
func (e *Engine) CancelTimer(ctx context.Context, userID string, index int) (*domain.Timer, error) {
	timers, err := e.repo.ListTimers(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(timers) {
		return nil, fmt.Errorf("no timer #%d (have %d)", index, len(timers))
	}
	t := timers[index-1]
	if err := e.repo.DeleteTimer(ctx, t.ID); err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Alarms ---

// SetAlarm schedules a daily-clock reminder. Alarms are anchored to the
// owner's zone, so one is required up front.
func (e *Engine) SetAlarm(ctx context.Context, userID string, hour, minute, second int, message string, now time.Time) (*domain.Alarm, error) {
	tz, ok := e.reg.Zone(userID)
	if !ok {
		return nil, domain.ErrNotConfigured
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return nil, fmt.Errorf("invalid clock time %02d:%02d:%02d", hour, minute, second)
	}

	a := &domain.Alarm{
		UserID:    userID,
		Hour:      hour,
		Minute:    minute,
		Second:    second,
		Message:   message,
		CreatedAt: now.UTC(),
	}
	next := a.NextFire(now.UTC(), domain.LoadZone(tz))
	a.NextFireAt = &next

	if err := e.repo.AddAlarm(ctx, a); err != nil {
		return nil, err
	}
	e.log.Info("alarm set",
		zap.String("user", userID),
		zap.String("clock", a.ClockString()),
		zap.Time("next_fire", next))
	return a, nil
}

// ListAlarms returns a user's alarms in creation order.
func (e *Engine) ListAlarms(ctx context.Context, userID string) ([]domain.Alarm, error) {
	return e.repo.ListAlarms(ctx, userID)
}

// AddAlarmRepeat adds a repeating weekday to the alarm at the given 1-based
// position and reschedules it.
func (e *Engine) AddAlarmRepeat(ctx context.Context, userID string, index int, day time.Weekday) (*domain.Alarm, error) {
	return e.modifyAlarm(ctx, userID, index, func(a *domain.Alarm) bool {
		return a.AddRepeat(day)
	})
}

// RemoveAlarmRepeat removes a repeating weekday and reschedules.
func (e *Engine) RemoveAlarmRepeat(ctx context.Context, userID string, index int, day time.Weekday) (*domain.Alarm, error) {
	return e.modifyAlarm(ctx, userID, index, func(a *domain.Alarm) bool {
		return a.RemoveRepeat(day)
	})
}

// RescheduleAlarm changes an alarm's clock time.
func (e *Engine) RescheduleAlarm(ctx context.Context, userID string, index, hour, minute, second int) (*domain.Alarm, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return nil, fmt.Errorf("invalid clock time %02d:%02d:%02d", hour, minute, second)
	}
	return e.modifyAlarm(ctx, userID, index, func(a *domain.Alarm) bool {
		a.Hour, a.Minute, a.Second = hour, minute, second
		return true
	})
}

// CancelAlarm removes the alarm at the given 1-based list position.
func (e *Engine) CancelAlarm(ctx context.Context, userID string, index int) (*domain.Alarm, error) {
	alarms, err := e.repo.ListAlarms(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(alarms) {
		return nil, fmt.Errorf("no alarm #%d (have %d)", index, len(alarms))
	}
	a := alarms[index-1]
	if err := e.repo.DeleteAlarm(ctx, a.ID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (e *Engine) modifyAlarm(ctx context.Context, userID string, index int, fn func(*domain.Alarm) bool) (*domain.Alarm, error) {
	alarms, err := e.repo.ListAlarms(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(alarms) {
		return nil, fmt.Errorf("no alarm #%d (have %d)", index, len(alarms))
	}
	a := alarms[index-1]
	if !fn(&a) {
		return &a, nil
	}

	tz, ok := e.reg.Zone(userID)
	if !ok {
		return nil, domain.ErrNotConfigured
	}
	next := a.NextFire(time.Now().UTC(), domain.LoadZone(tz))
	a.NextFireAt = &next

	if err := e.repo.UpdateAlarm(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
