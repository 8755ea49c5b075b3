package schedule

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})`)
	meridiemPattern = regexp.MustCompile(`^(\d{1,2})(am|pm)`)
)

// ParseTimePreference resolves a natural-language time hint to an hour of
// day. Recognized forms: "morning", "afternoon", "evening", a 24-hour
// HH:MM clock, and a 12-hour H(am|pm) clock. Anything else resolves to no
// preference.
func ParseTimePreference(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	switch {
	case strings.Contains(s, "morning"):
		return 9, true
	case strings.Contains(s, "afternoon"):
		return 14, true
	case strings.Contains(s, "evening"):
		return 18, true
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		hour, err := strconv.Atoi(m[1])
		if err == nil && hour < 24 {
			return hour, true
		}
		return 0, false
	}

	if m := meridiemPattern.FindStringSubmatch(s); m != nil {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour > 12 {
			return 0, false
		}
		if m[2] == "pm" && hour != 12 {
			hour += 12
		} else if m[2] == "am" && hour == 12 {
			hour = 0
		}
		return hour, true
	}

	return 0, false
}
