package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind classifies what a candidate span encodes.
type Kind int

const (
	// KindClock is a bare clock time ("3pm", "15:30", "9:00 AM EST").
	KindClock Kind = iota
	// KindDayClock is a day marker combined with a clock time
	// ("tomorrow at 5pm", "next friday 9:00").
	KindDayClock
	// KindRelativeDay is a day marker on its own ("tomorrow", "next friday").
	KindRelativeDay
)

// Fields records the time components of a candidate and which of them were
// explicitly present in the text. Downstream disambiguation treats stated
// and inferred fields differently, so the Has* flags matter as much as the
// values.
type Fields struct {
	Hour        int
	Minute      int
	HasClock    bool
	HasMinute   bool
	PM          bool
	HasMeridiem bool
	Zone        string // known zone abbreviation, empty when absent

	DayOffset    int // days relative to the anchor date (today=0)
	HasDayOffset bool
	Weekday      time.Weekday
	HasWeekday   bool
	NextWeek     bool // "next friday" as opposed to bare/"this friday"
}

// Candidate is a text span suspected of encoding a time reference.
type Candidate struct {
	Text   string // the matched substring
	Start  int    // byte offset into the scanned text
	End    int
	Kind   Kind
	Fields Fields
}

// The grammar is an ordered list of declarative matchers. Order doubles as
// tie-break priority when two candidates cover the same span: combined
// day+clock forms first, then bare clock, then weekday, then bare day marker.
type matcher struct {
	re    *regexp.Regexp
	build func(text string, m []int) (Candidate, bool)
}

const (
	// clockExpr captures hour, minutes, meridiem and zone abbreviation.
	clockExpr = `(\d{1,2})(?::([0-5][0-9]))?(?:\s*((?i:am|pm)))?`
	// dayExpr captures a next/this qualifier, a weekday name, or a
	// today/tomorrow/yesterday marker.
	dayExpr = `(?:(?i:(next|this))\s+)?((?i:monday|tuesday|wednesday|thursday|friday|saturday|sunday))|((?i:today|tomorrow|yesterday))`
)

var matchers = buildMatchers()

func buildMatchers() []matcher {
	zone := `(?:\s+(` + abbrevAlternation() + `))?`
	clock := clockExpr + zone

	dayClockRe := regexp.MustCompile(`\b(?:` + dayExpr + `)\s+(?:(?i:at)\s+)?` + clock + `\b`)
	clockDayRe := regexp.MustCompile(`\b` + clock + `\s+(?:` + dayExpr + `)\b`)
	clockRe := regexp.MustCompile(`\b` + clock + `\b`)
	weekdayRe := regexp.MustCompile(`\b(?:(?:(?i:(next|this))\s+)?((?i:monday|tuesday|wednesday|thursday|friday|saturday|sunday)))\b`)
	markerRe := regexp.MustCompile(`\b((?i:today|tomorrow|yesterday))\b`)

	return []matcher{
		{dayClockRe, buildDayClock},
		{clockDayRe, buildClockDay},
		{clockRe, buildClock},
		{weekdayRe, buildWeekday},
		{markerRe, buildMarker},
	}
}

// Extract scans text and returns non-overlapping candidates in span order.
// When two patterns compete for the same bytes the longer match wins;
// same-length collisions go to the higher-priority pattern family.
// Malformed fragments are skipped, never surfaced: false negatives are
// preferred over false positives.
func Extract(text string) []Candidate {
	type ranked struct {
		c    Candidate
		prio int
	}
	var found []ranked
	for prio, m := range matchers {
		for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
			if c, ok := m.build(text, loc); ok {
				found = append(found, ranked{c, prio})
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		li := found[i].c.End - found[i].c.Start
		lj := found[j].c.End - found[j].c.Start
		if li != lj {
			return li > lj
		}
		if found[i].prio != found[j].prio {
			return found[i].prio < found[j].prio
		}
		return found[i].c.Start < found[j].c.Start
	})

	var accepted []Candidate
	for _, f := range found {
		overlaps := false
		for _, a := range accepted {
			if f.c.Start < a.End && a.Start < f.c.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, f.c)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

// group returns submatch i of match indices m, or "" if it did not participate.
func group(text string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseClockGroups fills clock fields from four consecutive submatches
// starting at group index base. Returns false for fragments that do not
// plausibly denote a clock time (a bare number, an out-of-range hour).
func parseClockGroups(text string, m []int, base int, f *Fields) bool {
	hourStr := group(text, m, base)
	minStr := group(text, m, base+1)
	meridiem := group(text, m, base+2)
	zone := group(text, m, base+3)

	if hourStr == "" {
		return false
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return false
	}
	// A lone number is not a time: require minutes or an am/pm marker.
	if minStr == "" && meridiem == "" {
		return false
	}
	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return false
		}
	} else if hour > 23 {
		return false
	}

	f.Hour = hour
	f.HasClock = true
	if minStr != "" {
		f.Minute, _ = strconv.Atoi(minStr)
		f.HasMinute = true
	}
	if meridiem != "" {
		f.HasMeridiem = true
		f.PM = strings.EqualFold(meridiem, "pm")
	}
	if zone != "" {
		f.Zone = strings.ToUpper(zone)
	}
	return true
}

// parseDayGroups fills day fields from qualifier/weekday/marker submatches.
func parseDayGroups(qualifier, weekday, marker string, f *Fields) bool {
	switch {
	case weekday != "":
		f.Weekday = weekdayNames[strings.ToLower(weekday)]
		f.HasWeekday = true
		f.NextWeek = strings.EqualFold(qualifier, "next")
		return true
	case marker != "":
		switch strings.ToLower(marker) {
		case "today":
			f.DayOffset = 0
		case "tomorrow":
			f.DayOffset = 1
		case "yesterday":
			f.DayOffset = -1
		}
		f.HasDayOffset = true
		return true
	}
	return false
}

func buildDayClock(text string, m []int) (Candidate, bool) {
	var f Fields
	if !parseDayGroups(group(text, m, 1), group(text, m, 2), group(text, m, 3), &f) {
		return Candidate{}, false
	}
	if !parseClockGroups(text, m, 4, &f) {
		return Candidate{}, false
	}
	return Candidate{
		Text:   text[m[0]:m[1]],
		Start:  m[0],
		End:    m[1],
		Kind:   KindDayClock,
		Fields: f,
	}, true
}

func buildClockDay(text string, m []int) (Candidate, bool) {
	var f Fields
	if !parseClockGroups(text, m, 1, &f) {
		return Candidate{}, false
	}
	if !parseDayGroups(group(text, m, 5), group(text, m, 6), group(text, m, 7), &f) {
		return Candidate{}, false
	}
	return Candidate{
		Text:   text[m[0]:m[1]],
		Start:  m[0],
		End:    m[1],
		Kind:   KindDayClock,
		Fields: f,
	}, true
}

func buildClock(text string, m []int) (Candidate, bool) {
	var f Fields
	if !parseClockGroups(text, m, 1, &f) {
		return Candidate{}, false
	}
	return Candidate{
		Text:   text[m[0]:m[1]],
		Start:  m[0],
		End:    m[1],
		Kind:   KindClock,
		Fields: f,
	}, true
}

func buildWeekday(text string, m []int) (Candidate, bool) {
	var f Fields
	if !parseDayGroups(group(text, m, 1), group(text, m, 2), "", &f) {
		return Candidate{}, false
	}
	return Candidate{
		Text:   text[m[0]:m[1]],
		Start:  m[0],
		End:    m[1],
		Kind:   KindRelativeDay,
		Fields: f,
	}, true
}

func buildMarker(text string, m []int) (Candidate, bool) {
	var f Fields
	if !parseDayGroups("", "", group(text, m, 1), &f) {
		return Candidate{}, false
	}
	return Candidate{
		Text:   text[m[0]:m[1]],
		Start:  m[0],
		End:    m[1],
		Kind:   KindRelativeDay,
		Fields: f,
	}, true
}
