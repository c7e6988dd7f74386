package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Timer is a one-shot reminder firing a fixed duration after creation.
type Timer struct {
	ID        int64
	UserID    string
	Duration  time.Duration
	DueAt     time.Time // UTC
	Message   string
	CreatedAt time.Time
}

// Alarm is a reminder at a clock time in the owner's timezone, optionally
// repeating on a set of weekdays. A non-repeating alarm fires once and is
// deleted; a repeating alarm reschedules itself after each fire.
type Alarm struct {
	ID         int64
	UserID     string
	Hour       int
	Minute     int
	Second     int
	RepeatDays uint8 // bit per time.Weekday (bit 0 = Sunday)
	NextFireAt *time.Time
	Message    string
	CreatedAt  time.Time
}

// Repeats reports whether the alarm repeats on the given weekday.
func (a *Alarm) Repeats(d time.Weekday) bool {
	return a.RepeatDays&(1<<uint(d)) != 0
}

// AddRepeat marks a weekday as repeating. Reports whether the set changed.
func (a *Alarm) AddRepeat(d time.Weekday) bool {
	if a.Repeats(d) {
		return false
	}
	a.RepeatDays |= 1 << uint(d)
	return true
}

// RemoveRepeat unmarks a weekday. Reports whether the set changed.
func (a *Alarm) RemoveRepeat(d time.Weekday) bool {
	if !a.Repeats(d) {
		return false
	}
	a.RepeatDays &^= 1 << uint(d)
	return true
}

// RepeatString lists the repeating weekdays, or "" for a one-shot alarm.
func (a *Alarm) RepeatString() string {
	if a.RepeatDays == 0 {
		return ""
	}
	var days []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if a.Repeats(d) {
			days = append(days, d.String())
		}
	}
	return strings.Join(days, ", ")
}

// ClockString renders the alarm's clock time, with seconds only when set.
func (a *Alarm) ClockString() string {
	if a.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", a.Hour, a.Minute, a.Second)
	}
	return fmt.Sprintf("%02d:%02d", a.Hour, a.Minute)
}

// NextFire computes the alarm's next occurrence as a UTC instant: today at
// the clock time in the owner's zone, the next day if that is already past,
// then forward to the nearest repeating weekday. AddDate keeps the wall
// clock stable across DST transitions.
func (a *Alarm) NextFire(nowUTC time.Time, loc *time.Location) time.Time {
	local := nowUTC.In(loc)
	t := time.Date(local.Year(), local.Month(), local.Day(), a.Hour, a.Minute, a.Second, 0, loc)
	if !t.After(local) {
		t = t.AddDate(0, 0, 1)
	}
	if a.RepeatDays != 0 {
		for !a.Repeats(t.Weekday()) {
			t = t.AddDate(0, 0, 1)
		}
	}
	return t.UTC()
}

var (
	ErrEmptyDuration   = errors.New("empty duration")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrDurationRange   = errors.New("duration out of range")
)

const (
	minTimer = time.Second
	maxTimer = 30 * 24 * time.Hour
)

var durationPartRe = regexp.MustCompile(`(\d+)\s*([dhms])`)

// ParseTimerDuration parses human-friendly timer durations like "90m",
// "1h30m", "2d12h", "45s". A plain number means minutes. Timers must run
// between one second and thirty days.
func ParseTimerDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, ErrEmptyDuration
	}

	var total time.Duration
	if isAllDigits(s) {
		mins, _ := strconv.Atoi(s)
		total = time.Duration(mins) * time.Minute
	} else {
		for _, m := range durationPartRe.FindAllStringSubmatch(s, -1) {
			n, _ := strconv.Atoi(m[1])
			switch m[2] {
			case "d":
				total += time.Duration(n) * 24 * time.Hour
			case "h":
				total += time.Duration(n) * time.Hour
			case "m":
				total += time.Duration(n) * time.Minute
			case "s":
				total += time.Duration(n) * time.Second
			}
		}
		if total == 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
	}

	if total < minTimer {
		return 0, fmt.Errorf("%w: min %s", ErrDurationRange, minTimer)
	}
	if total > maxTimer {
		return 0, fmt.Errorf("%w: max %s", ErrDurationRange, maxTimer)
	}
	return total, nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// FormatDuration renders a duration as "2 days 3 hours 4 minutes 5 seconds".
// Days and hours are dropped when zero, minutes and seconds always appear.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "negative time"
	}
	d = d.Round(time.Second)

	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	seconds := int((d - time.Duration(minutes)*time.Minute) / time.Second)

	var parts []string
	unit := func(n int, name string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", name)
		}
		return fmt.Sprintf("%d %ss", n, name)
	}
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	parts = append(parts, unit(minutes, "minute"), unit(seconds, "second"))
	return strings.Join(parts, " ")
}
