package domain

import "time"

// ZoneSource resolves a user id to a configured IANA zone name.
// The registry implements it; tests use a plain map wrapper.
type ZoneSource interface {
	Zone(userID string) (string, bool)
}

// Localization is a resolved instant rendered into one recipient zone.
type Localization struct {
	RecipientID string // first recipient seen with this zone
	Zone        string // IANA name
	Offset      int    // UTC offset in seconds at the resolved instant
	Text        string
}

// Convert projects a resolved instant into the zone of every configured
// recipient, one localization per distinct zone. Recipients without a
// configured timezone are excluded rather than silently defaulted: showing a
// guessed time would mislead a user who never set one.
//
// The rendering is "HH:MM <abbrev>" plus ", <weekday> <month> <day>" when
// the resolved date differs from the message's send date in that zone. The
// same-day case drops the date; a different day always shows it, even for
// the sender's own zone, so a day rollover is never ambiguous.
func Convert(r Resolved, recipientIDs []string, zones ZoneSource, sentAt time.Time) []Localization {
	seen := make(map[string]bool, len(recipientIDs))
	var out []Localization
	for _, id := range recipientIDs {
		tz, ok := zones.Zone(id)
		if !ok || seen[tz] {
			continue
		}
		seen[tz] = true

		loc := LoadZone(tz)
		lt := r.At.In(loc)
		_, offset := lt.Zone()

		text := lt.Format("15:04 MST")
		if dateOf(lt) != dateOf(sentAt.In(loc)) {
			text += lt.Format(", Monday January 2")
		}

		out = append(out, Localization{
			RecipientID: id,
			Zone:        tz,
			Offset:      offset,
			Text:        text,
		})
	}
	return out
}

func dateOf(t time.Time) string {
	return t.Format("2006-01-02")
}
