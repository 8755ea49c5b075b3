package schedule

import (
	"strings"
	"time"
)

// Calendar backends are inconsistent about how they report event
// timestamps: some end in a "Z" designator, some carry an explicit numeric
// offset, and some are naive local strings. Raw values must never be
// compared directly; everything goes through ParseEventTimestamp first.

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseEventTimestamp normalizes a raw event timestamp into a
// timezone-aware instant. The second return value is false when the string
// cannot be parsed; callers skip such records instead of failing the whole
// query.
func ParseEventTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if strings.HasSuffix(s, "Z") {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}

	if hasExplicitOffset(s) {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	// Naive timestamp; assume UTC.
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// hasExplicitOffset reports whether the string carries a numeric UTC
// offset. More than two hyphens means a date combined with a negative
// offset.
func hasExplicitOffset(s string) bool {
	return strings.Contains(s, "+") || strings.Count(s, "-") > 2
}
