package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimerDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"90m", 90 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"90", 90 * time.Minute},
		{"2d12h", 60 * time.Hour},
		{"45s", 45 * time.Second},
	}
	for _, tc := range tests {
		got, err := ParseTimerDuration(tc.in)
		if err != nil {
			t.Errorf("ParseTimerDuration(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimerDuration(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTimerDuration_Errors(t *testing.T) {
	if _, err := ParseTimerDuration(""); !errors.Is(err, ErrEmptyDuration) {
		t.Errorf("empty: err = %v, want ErrEmptyDuration", err)
	}
	if _, err := ParseTimerDuration("soon"); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("garbage: err = %v, want ErrInvalidDuration", err)
	}
	if _, err := ParseTimerDuration("45d"); !errors.Is(err, ErrDurationRange) {
		t.Errorf("too long: err = %v, want ErrDurationRange", err)
	}
	if _, err := ParseTimerDuration("0"); !errors.Is(err, ErrDurationRange) {
		t.Errorf("zero: err = %v, want ErrDurationRange", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{90 * time.Minute, "1 hour 30 minutes 0 seconds"},
		{25*time.Hour + time.Second, "1 day 1 hour 0 minutes 1 second"},
		{45 * time.Second, "0 minutes 45 seconds"},
		{-time.Minute, "negative time"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAlarmNextFire_TodayOrTomorrow(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	a := &Alarm{Hour: 9, Minute: 0}

	// 07:00 local: today's 09:00 is still ahead
	now := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 6, 7, 0)
	next := a.NextFire(now, loc)
	want := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 6, 9, 0)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	// 09:00 exactly: not After, rolls to tomorrow
	now = want
	next = a.NextFire(now, loc)
	want = mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 7, 9, 0)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestAlarmNextFire_RepeatDays(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	a := &Alarm{Hour: 9}
	a.AddRepeat(time.Monday)
	a.AddRepeat(time.Friday)

	// Tuesday 2025-05-06 10:00: next slot is Friday the 9th
	now := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 6, 10, 0)
	next := a.NextFire(now, loc)
	want := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 9, 9, 0)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestAlarmNextFire_AcrossDSTTransition(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	a := &Alarm{Hour: 9}

	// Saturday 2024-03-09 10:00 EST; Sunday the 10th springs forward.
	// The alarm keeps its 09:00 wall clock even though the UTC gap shrinks.
	now := mustLocalUTC(t, "America/New_York", 2024, time.March, 9, 10, 0)
	next := a.NextFire(now, loc)
	local := next.In(loc)
	if local.Day() != 10 || local.Hour() != 9 {
		t.Errorf("next = %v, want 09:00 on March 10", local)
	}
}

func TestAlarmRepeatSet(t *testing.T) {
	a := &Alarm{}
	if !a.AddRepeat(time.Monday) {
		t.Error("first add should change the set")
	}
	if a.AddRepeat(time.Monday) {
		t.Error("second add should be a no-op")
	}
	if got := a.RepeatString(); got != "Monday" {
		t.Errorf("RepeatString = %q, want Monday", got)
	}
	if !a.RemoveRepeat(time.Monday) {
		t.Error("remove should change the set")
	}
	if a.RemoveRepeat(time.Monday) {
		t.Error("second remove should be a no-op")
	}
	if a.RepeatDays != 0 {
		t.Errorf("RepeatDays = %b, want empty", a.RepeatDays)
	}
}

func TestAlarmClockString(t *testing.T) {
	a := &Alarm{Hour: 7, Minute: 5}
	if got := a.ClockString(); got != "07:05" {
		t.Errorf("ClockString = %q, want 07:05", got)
	}
	a.Second = 9
	if got := a.ClockString(); got != "07:05:09" {
		t.Errorf("ClockString = %q, want 07:05:09", got)
	}
}
