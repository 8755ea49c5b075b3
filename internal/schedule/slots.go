package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"slotwise/internal/calendar"
)

const (
	searchStartMinute = 9 * 60  // 09:00
	searchEndMinute   = 23 * 60 // 23:00
	slotStepMinutes   = 30
	maxSuggestions    = 5
)

// busyBlock is a minute-of-day interval in the business timezone, derived
// from an event falling on the queried date. Blocks may overlap each
// other; the sweep handles non-disjoint blocks without merging them.
type busyBlock struct {
	start int
	end   int
}

// SuggestSlots returns up to five HH:MM start times on the given date
// where a window of durationHours fits between existing events. A
// preferred-time hint reorders results by hour proximity. Any fault yields
// an empty list.
func (e *Engine) SuggestSlots(ctx context.Context, date string, durationHours int, preferredTime string) []string {
	if durationHours <= 0 {
		durationHours = 1
	}

	events, err := e.repo.Events(ctx, date, date)
	if err != nil {
		return []string{}
	}
	target, err := time.ParseInLocation(time.DateOnly, date, e.loc)
	if err != nil {
		return []string{}
	}

	blocks := e.busyBlocksFor(events, target)
	slots := sweepFreeSlots(blocks, durationHours*60)

	if prefHour, ok := ParseTimePreference(preferredTime); ok {
		sort.SliceStable(slots, func(i, j int) bool {
			return absInt(slotHour(slots[i])-prefHour) < absInt(slotHour(slots[j])-prefHour)
		})
	}

	if len(slots) > maxSuggestions {
		slots = slots[:maxSuggestions]
	}
	return slots
}

// busyBlocksFor converts events to minute-of-day blocks in the business
// timezone. Events whose normalized start lands on a different calendar
// date are discarded; this defends against cross-midnight UTC shifts
// pulling in neighbouring days' events.
func (e *Engine) busyBlocksFor(events []calendar.Event, target time.Time) []busyBlock {
	blocks := make([]busyBlock, 0, len(events))
	ty, tm, td := target.Date()

	for _, ev := range events {
		evStart, evEnd, ok := e.normalizedInterval(ev)
		if !ok {
			continue
		}

		localStart := evStart.In(e.loc)
		localEnd := evEnd.In(e.loc)

		y, m, d := localStart.Date()
		if y != ty || m != tm || d != td {
			continue
		}

		blocks = append(blocks, busyBlock{
			start: localStart.Hour()*60 + localStart.Minute(),
			end:   localEnd.Hour()*60 + localEnd.Minute(),
		})
	}
	return blocks
}

func slotHour(slot string) int {
	h, err := strconv.Atoi(slot[:2])
	if err != nil {
		return 0
	}
	return h
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// sweepFreeSlots walks the search window testing candidate windows against
// the busy blocks. On a conflict the cursor jumps to the blocking event's
// end so no candidate is evaluated twice and large busy regions are
// skipped in one step; on a free candidate the cursor advances by the
// fixed step.
func sweepFreeSlots(blocks []busyBlock, durationMinutes int) []string {
	slots := make([]string, 0)
	current := searchStartMinute

	for current+durationMinutes <= searchEndMinute {
		slotEnd := current + durationMinutes

		conflicted := false
		for _, b := range blocks {
			if current < b.end && slotEnd > b.start {
				conflicted = true
				current = b.end
				break
			}
		}

		if !conflicted {
			slots = append(slots, fmt.Sprintf("%02d:%02d", current/60, current%60))
			current += slotStepMinutes
		}
	}
	return slots
}
