package schedule

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotwise/internal/calendar"
)

func TestSuggestSlots_EmptyDayDiscoveryOrder(t *testing.T) {
	e := newTestEngine(t, &fakeRepo{})

	slots := e.SuggestSlots(context.Background(), "2025-06-02", 1, "")

	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00"}, slots)
}

func TestSuggestSlots_MorningPreferenceFirst(t *testing.T) {
	e := newTestEngine(t, &fakeRepo{})

	slots := e.SuggestSlots(context.Background(), "2025-06-02", 1, "morning")

	require.NotEmpty(t, slots)
	assert.Equal(t, "09:00", slots[0])
}

func TestSuggestSlots_EveningPreferenceReorders(t *testing.T) {
	e := newTestEngine(t, &fakeRepo{})

	slots := e.SuggestSlots(context.Background(), "2025-06-02", 1, "evening")

	require.NotEmpty(t, slots)
	assert.Equal(t, 18, slotHour(slots[0]))
}

func TestSuggestSlots_FullyBusyDay(t *testing.T) {
	// 03:30-17:30 UTC is 09:00-23:00 in Asia/Kolkata.
	repo := &fakeRepo{events: []calendar.Event{
		timedEvent("1", "Offsite", "2025-06-02T03:30:00Z", "2025-06-02T17:30:00Z"),
	}}
	e := newTestEngine(t, repo)

	slots := e.SuggestSlots(context.Background(), "2025-06-02", 1, "")

	assert.Empty(t, slots)
}

func TestSuggestSlots_JumpsToBlockEnd(t *testing.T) {
	// 04:30-07:00 UTC is a 10:00-12:30 busy block; the block boundary is
	// not 30-minute-aligned relative to a full hour, so the jump lands the
	// cursor at 12:30 directly.
	repo := &fakeRepo{events: []calendar.Event{
		timedEvent("1", "Workshop", "2025-06-02T04:30:00Z", "2025-06-02T07:00:00Z"),
	}}
	e := newTestEngine(t, repo)

	slots := e.SuggestSlots(context.Background(), "2025-06-02", 1, "")

	assert.Equal(t, []string{"09:00", "12:30", "13:00", "13:30", "14:00"}, slots)
}

func TestSuggestSlots_NeverOverlapsBusyBlocks(t *testing.T) {
	repo := &fakeRepo{events: []calendar.Event{
		timedEvent("1", "A", "2025-06-02T04:30:00Z", "2025-06-02T05:45:00Z"), // 10:00-11:15
		timedEvent("2", "B", "2025-06-02T05:30:00Z", "2025-06-02T06:30:00Z"), // 11:00-12:00 (overlaps A)
		timedEvent("3", "C", "2025-06-02T09:00:00Z", "2025-06-02T10:00:00Z"), // 14:30-15:30
	}}
	e := newTestEngine(t, repo)

	blocks := [][2]int{{600, 675}, {660, 720}, {870, 930}}
	slots := e.SuggestSlots(context.Background(), "2025-06-02", 1, "")

	require.NotEmpty(t, slots)
	for _, slot := range slots {
		parts := strings.SplitN(slot, ":", 2)
		h, _ := strconv.Atoi(parts[0])
		m, _ := strconv.Atoi(parts[1])
		start := h*60 + m
		end := start + 60
		for _, b := range blocks {
			assert.False(t, start < b[1] && end > b[0],
				"slot %s overlaps busy block %v", slot, b)
		}
	}
}

func TestSuggestSlots_CapsAtFive(t *testing.T) {
	e := newTestEngine(t, &fakeRepo{})

	slots := e.SuggestSlots(context.Background(), "2025-06-02", 1, "")
	assert.LessOrEqual(t, len(slots), 5)

	slots = e.SuggestSlots(context.Background(), "2025-06-02", 1, "afternoon")
	assert.LessOrEqual(t, len(slots), 5)
}

func TestSuggestSlots_DiscardsCrossMidnightEvents(t *testing.T) {
	// 19:30 UTC on June 2 is 01:00 on June 3 in Asia/Kolkata; the event
	// does not belong to the queried date.
	repo := &fakeRepo{events: []calendar.Event{
		timedEvent("1", "Late call", "2025-06-02T19:30:00Z", "2025-06-02T20:30:00Z"),
	}}
	e := newTestEngine(t, repo)

	slots := e.SuggestSlots(context.Background(), "2025-06-02", 1, "")

	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00"}, slots)
}

func TestSuggestSlots_LongerDuration(t *testing.T) {
	e := newTestEngine(t, &fakeRepo{})

	// A 14-hour request exactly fills 09:00-23:00; only one slot fits.
	slots := e.SuggestSlots(context.Background(), "2025-06-02", 14, "")
	assert.Equal(t, []string{"09:00"}, slots)

	// Fifteen hours cannot fit at all.
	slots = e.SuggestSlots(context.Background(), "2025-06-02", 15, "")
	assert.Empty(t, slots)
}

func TestSuggestSlots_FaultsYieldEmpty(t *testing.T) {
	e := newTestEngine(t, &fakeRepo{eventsErr: errors.New("backend down")})
	assert.Empty(t, e.SuggestSlots(context.Background(), "2025-06-02", 1, ""))

	e = newTestEngine(t, &fakeRepo{})
	assert.Empty(t, e.SuggestSlots(context.Background(), "someday", 1, ""))
}
