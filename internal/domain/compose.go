package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Compose renders the localizations for one candidate into a reply block.
// Pure formatting: lines are ordered by UTC offset ascending (west to east)
// and deduplicated upstream by Convert. Returns "" when there is nothing to
// say, which callers treat as "no reply".
func Compose(c Candidate, locs []Localization) string {
	if len(locs) == 0 {
		return ""
	}

	sorted := make([]Localization, len(locs))
	copy(sorted, locs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Offset != sorted[j].Offset {
			return sorted[i].Offset < sorted[j].Offset
		}
		return sorted[i].Zone < sorted[j].Zone
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%q is:", c.Text)
	for _, l := range sorted {
		fmt.Fprintf(&b, "\n  %s (%s)", l.Text, l.Zone)
	}
	return b.String()
}
