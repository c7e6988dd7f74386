package domain

import "time"

// UserPref holds a user's saved timezone preference and display settings.
// A row with an empty TZ means the user touched other settings but never
// configured a timezone ("not configured" for conversion purposes).
type UserPref struct {
	UserID    string
	TZ        string // IANA zone name, empty = unset
	Visible   bool   // whether the zone abbreviation is shown to others
	Format    string // optional Go layout override for current-time queries
	CreatedAt time.Time
}

// Configured reports whether the user has a usable timezone.
func (p UserPref) Configured() bool {
	return p.TZ != ""
}
