package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:meeting-1
DTSTART:20260310T043000Z
DTEND:20260310T053000Z
SUMMARY:Design review
LOCATION:Room 4
END:VEVENT
BEGIN:VEVENT
UID:outside-range
DTSTART:20261201T100000Z
DTEND:20261201T110000Z
SUMMARY:Year-end planning
END:VEVENT
END:VCALENDAR
`

const recurringFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:standup
DTSTART:20260302T043000Z
DTEND:20260302T050000Z
RRULE:FREQ=DAILY;COUNT=10
SUMMARY:Standup
END:VEVENT
END:VCALENDAR
`

func icsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	// ICS content lines are CRLF-delimited.
	body = strings.ReplaceAll(body, "\n", "\r\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestICSEventsFiltersByRange(t *testing.T) {
	srv := icsServer(t, simpleFeed)
	repo := NewICSRepository([]string{srv.URL}, nil)

	events, err := repo.Events(context.Background(), "2026-03-10", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "meeting-1", ev.ID)
	assert.Equal(t, "Design review", ev.Summary)
	assert.Equal(t, "Room 4", ev.Location)
	assert.Equal(t, "2026-03-10T04:30:00Z", ev.Start.DateTime)
	assert.Equal(t, "2026-03-10T05:30:00Z", ev.End.DateTime)
	assert.Empty(t, ev.RecurringEventID)
}

func TestICSExpandsRecurringEvents(t *testing.T) {
	srv := icsServer(t, recurringFeed)
	repo := NewICSRepository([]string{srv.URL}, nil)

	// The daily series starts March 2 and runs for 10 days; a three-day
	// window mid-series yields exactly three instances.
	events, err := repo.Events(context.Background(), "2026-03-04", "2026-03-06")
	require.NoError(t, err)
	require.Len(t, events, 3)

	for _, ev := range events {
		assert.Equal(t, "standup", ev.RecurringEventID)
		assert.NotEqual(t, "standup", ev.ID)
	}
	assert.Equal(t, "2026-03-04T04:30:00Z", events[0].Start.DateTime)
	assert.Equal(t, "2026-03-04T05:00:00Z", events[0].End.DateTime)
	assert.Equal(t, "standup_20260304T043000Z", events[0].ID)
	assert.Equal(t, "2026-03-06T04:30:00Z", events[2].Start.DateTime)
}

func TestICSEventsSortedAcrossFeeds(t *testing.T) {
	late := icsServer(t, simpleFeed)
	early := icsServer(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:breakfast
DTSTART:20260310T023000Z
DTEND:20260310T033000Z
SUMMARY:Breakfast sync
END:VEVENT
END:VCALENDAR
`)
	repo := NewICSRepository([]string{late.URL, early.URL}, nil)

	events, err := repo.Events(context.Background(), "2026-03-10", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "breakfast", events[0].ID)
	assert.Equal(t, "meeting-1", events[1].ID)
}

func TestICSInvalidDateInput(t *testing.T) {
	repo := NewICSRepository(nil, nil)

	_, err := repo.Events(context.Background(), "10-03-2026", "2026-03-10")
	assert.Error(t, err)
}

func TestICSFetchFailure(t *testing.T) {
	srv := icsServer(t, simpleFeed)
	srv.Close()
	repo := NewICSRepository([]string{srv.URL}, nil)

	_, err := repo.Events(context.Background(), "2026-03-10", "2026-03-10")
	assert.Error(t, err)
}

func TestICSServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()
	repo := NewICSRepository([]string{srv.URL}, nil)

	_, err := repo.Events(context.Background(), "2026-03-10", "2026-03-10")
	assert.Error(t, err)
}

func TestICSMutationsAreReadOnly(t *testing.T) {
	repo := NewICSRepository(nil, nil)
	ctx := context.Background()

	_, err := repo.Insert(ctx, Event{})
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = repo.Update(ctx, "id", Event{})
	assert.ErrorIs(t, err, ErrReadOnly)

	assert.ErrorIs(t, repo.Delete(ctx, "id"), ErrReadOnly)
}

func TestICSUpcomingEventsHonorsMax(t *testing.T) {
	now := time.Now().UTC()
	feed := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:soon
DTSTART:` + now.Add(time.Hour).Format("20060102T150405Z") + `
DTEND:` + now.Add(2*time.Hour).Format("20060102T150405Z") + `
SUMMARY:Soon
END:VEVENT
BEGIN:VEVENT
UID:later
DTSTART:` + now.Add(3*time.Hour).Format("20060102T150405Z") + `
DTEND:` + now.Add(4*time.Hour).Format("20060102T150405Z") + `
SUMMARY:Later
END:VEVENT
END:VCALENDAR
`
	srv := icsServer(t, feed)
	repo := NewICSRepository([]string{srv.URL}, nil)

	events, err := repo.UpcomingEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "soon", events[0].ID)
}
