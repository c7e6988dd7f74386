package domain

import (
	"fmt"
	"time"
)

// Resolved is an unambiguous point in time produced from one candidate.
// Once created it is never re-interpreted.
type Resolved struct {
	At         time.Time // UTC instant
	Candidate  Candidate
	AnchorZone *time.Location // zone the expression was interpreted in
}

// Resolve pins a candidate to a concrete instant. It is a pure function of
// (candidate fields, sender zone, send instant): no wall clock is consulted,
// so behavior is reproducible in tests.
//
// Disambiguation policy:
//   - The calendar date is seeded from sentAt in the sender's zone, then
//     shifted by the day fields. A bare or "this"-qualified weekday means the
//     next occurrence within the coming seven days (the same weekday said on
//     that day means a week ahead; "today" is the word for that). "next"
//     pushes one further week out.
//   - A clock time with am/pm, or an unambiguous 24-hour value (>= 13, or
//     hour 0 as in "0:30"), is taken literally. An ambiguous hour (1-12
//     without a marker) picks whichever of the am/pm readings lands soonest
//     at or after sentAt; if both are already past, the pm reading wins as
//     the nearer one.
//   - A zone abbreviation inside the candidate overrides the sender zone for
//     this resolution only.
//   - A candidate with no clock fields resolves to midnight of its day.
//
// Local date+times falling inside a DST gap normalize to a valid instant on
// the far side of the gap (time.Date semantics), never an error.
func Resolve(c Candidate, sender *time.Location, sentAt time.Time) (Resolved, error) {
	f := c.Fields
	if !f.HasClock && !f.HasDayOffset && !f.HasWeekday {
		return Resolved{}, fmt.Errorf("%w: %q has no time or day fields", ErrUnresolvable, c.Text)
	}

	zone := sender
	if f.Zone != "" {
		if loc, ok := AbbrevLocation(f.Zone); ok {
			zone = loc
		}
	}

	local := sentAt.In(zone)
	year, month, day := local.Date()

	switch {
	case f.HasDayOffset:
		day += f.DayOffset
	case f.HasWeekday:
		ahead := (int(f.Weekday) - int(local.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		if f.NextWeek {
			ahead += 7
		}
		day += ahead
	}

	hour, minute := 0, 0
	if f.HasClock {
		hour, minute = f.Hour, f.Minute
		switch {
		case f.HasMeridiem:
			if f.PM && hour != 12 {
				hour += 12
			}
			if !f.PM && hour == 12 {
				hour = 0
			}
		case hour == 0 || hour >= 13:
			// explicit 24-hour value, take literally
		default:
			hour = pickMeridiem(year, month, day, hour, minute, zone, sentAt)
		}
	}

	at := time.Date(year, month, day, hour, minute, 0, 0, zone)
	return Resolved{At: at.UTC(), Candidate: c, AnchorZone: zone}, nil
}

// pickMeridiem chooses between the am and pm reading of an ambiguous hour,
// preferring the next upcoming occurrence relative to sentAt.
func pickMeridiem(year int, month time.Month, day, hour, minute int, zone *time.Location, sentAt time.Time) int {
	am := hour % 12
	pm := am + 12

	best := pm // both in the past: the pm reading is the nearer one
	bestDelta := time.Duration(-1)
	for _, h := range [2]int{am, pm} {
		delta := time.Date(year, month, day, h, minute, 0, 0, zone).Sub(sentAt)
		if delta >= 0 && (bestDelta < 0 || delta < bestDelta) {
			best, bestDelta = h, delta
		}
	}
	return best
}
