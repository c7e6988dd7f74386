package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidateTZ checks that tz is a valid IANA location and returns its
// canonical name.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc.String(), nil
}

// LoadZone loads an IANA location, falling back to UTC on failure.
// Zone names coming out of the registry are pre-validated, so the fallback
// only guards against a tzdata mismatch between write and read time.
func LoadZone(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// zoneAbbrevs maps common zone abbreviations to fixed UTC offsets in minutes.
// An abbreviation names a specific offset ("EST" is always -05:00), so these
// deliberately do not follow DST: a user writing "3pm EST" in July still
// means UTC-5. IANA names are the only DST-aware zone inputs.
var zoneAbbrevs = map[string]int{
	"UTC":  0,
	"GMT":  0,
	"EST":  -5 * 60,
	"EDT":  -4 * 60,
	"CST":  -6 * 60,
	"CDT":  -5 * 60,
	"MST":  -7 * 60,
	"MDT":  -6 * 60,
	"PST":  -8 * 60,
	"PDT":  -7 * 60,
	"AKST": -9 * 60,
	"AKDT": -8 * 60,
	"HST":  -10 * 60,
	"AST":  -4 * 60,
	"ADT":  -3 * 60,
	"BST":  1 * 60,
	"CET":  1 * 60,
	"CEST": 2 * 60,
	"EET":  2 * 60,
	"EEST": 3 * 60,
	"MSK":  3 * 60,
	"IST":  5*60 + 30,
	"JST":  9 * 60,
	"KST":  9 * 60,
	"AWST": 8 * 60,
	"ACST": 9*60 + 30,
	"AEST": 10 * 60,
	"AEDT": 11 * 60,
	"NZST": 12 * 60,
	"NZDT": 13 * 60,
}

// AbbrevLocation resolves a zone abbreviation to a fixed-offset location.
func AbbrevLocation(abbrev string) (*time.Location, bool) {
	name := strings.ToUpper(abbrev)
	offset, ok := zoneAbbrevs[name]
	if !ok {
		return nil, false
	}
	return time.FixedZone(name, offset*60), true
}

// abbrevAlternation returns the known abbreviations as a regexp alternation,
// longest first so e.g. "AEDT" is not half-eaten by a shorter key.
func abbrevAlternation() string {
	keys := make([]string, 0, len(zoneAbbrevs))
	for k := range zoneAbbrevs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return strings.Join(keys, "|")
}
