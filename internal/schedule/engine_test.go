package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotwise/internal/calendar"
)

// fakeRepo is an in-memory Repository for engine tests.
type fakeRepo struct {
	events      []calendar.Event
	upcoming    []calendar.Event
	eventsErr   error
	upcomingErr error

	inserted  []calendar.Event
	insertErr error

	updated    map[string]calendar.Event
	updateErrs map[string]error

	deleted    []string
	deleteErrs map[string]error
}

var _ calendar.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) Events(ctx context.Context, startDate, endDate string) ([]calendar.Event, error) {
	return f.events, f.eventsErr
}

func (f *fakeRepo) UpcomingEvents(ctx context.Context, max int64) ([]calendar.Event, error) {
	return f.upcoming, f.upcomingErr
}

func (f *fakeRepo) Insert(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	if f.insertErr != nil {
		return calendar.Event{}, f.insertErr
	}
	f.inserted = append(f.inserted, ev)
	return ev, nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, ev calendar.Event) (calendar.Event, error) {
	if err := f.updateErrs[id]; err != nil {
		return calendar.Event{}, err
	}
	if f.updated == nil {
		f.updated = make(map[string]calendar.Event)
	}
	f.updated[id] = ev
	return ev, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	if err := f.deleteErrs[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestEngine(t *testing.T, repo calendar.Repository) *Engine {
	t.Helper()
	e, err := NewEngine(repo, DefaultBusinessTimezone)
	require.NoError(t, err)
	return e
}

// timedEvent builds an event with UTC Z timestamps.
func timedEvent(id, summary, start, end string) calendar.Event {
	return calendar.Event{
		ID:      id,
		Summary: summary,
		Start:   calendar.EventTime{DateTime: start},
		End:     calendar.EventTime{DateTime: end},
	}
}

func TestCheckAvailability_ReportsConflictWithDisplayTimes(t *testing.T) {
	// 04:30-05:30 UTC is 10:00-11:00 in Asia/Kolkata.
	repo := &fakeRepo{events: []calendar.Event{
		timedEvent("1", "Standup", "2025-06-02T04:30:00Z", "2025-06-02T05:30:00Z"),
	}}
	e := newTestEngine(t, repo)

	res := e.CheckAvailability(context.Background(), "2025-06-02", "10:30", "11:30")

	assert.False(t, res.Available)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "Standup", res.Conflicts[0].Name)
	assert.Equal(t, "10:00", res.Conflicts[0].Start)
	assert.Equal(t, "11:00", res.Conflicts[0].End)
	assert.Equal(t, "10:30 - 11:30", res.CheckedPeriod)
	assert.Empty(t, res.Error)
}

func TestCheckAvailability_HalfOpenOverlap(t *testing.T) {
	// 10:00-11:00 business time.
	repo := &fakeRepo{events: []calendar.Event{
		timedEvent("1", "Standup", "2025-06-02T04:30:00Z", "2025-06-02T05:30:00Z"),
	}}
	e := newTestEngine(t, repo)
	ctx := context.Background()

	// An identical window always conflicts.
	identical := e.CheckAvailability(ctx, "2025-06-02", "10:00", "11:00")
	assert.False(t, identical.Available)

	// Exactly abutting windows never do.
	before := e.CheckAvailability(ctx, "2025-06-02", "09:00", "10:00")
	assert.True(t, before.Available)
	assert.Empty(t, before.Conflicts)

	after := e.CheckAvailability(ctx, "2025-06-02", "11:00", "12:00")
	assert.True(t, after.Available)
}

func TestCheckAvailability_DefaultsToWorkingDay(t *testing.T) {
	e := newTestEngine(t, &fakeRepo{})

	res := e.CheckAvailability(context.Background(), "2025-06-02", "", "")

	assert.True(t, res.Available)
	assert.Equal(t, "09:00 - 17:00", res.CheckedPeriod)
}

func TestCheckAvailability_SkipsMalformedEvents(t *testing.T) {
	repo := &fakeRepo{events: []calendar.Event{
		{ID: "1", Summary: "No end", Start: calendar.EventTime{DateTime: "2025-06-02T04:30:00Z"}},
		{ID: "2", Summary: "Garbage", Start: calendar.EventTime{DateTime: "soon"}, End: calendar.EventTime{DateTime: "later"}},
		{ID: "3", Summary: "All day", Start: calendar.EventTime{Date: "2025-06-02"}, End: calendar.EventTime{Date: "2025-06-03"}},
	}}
	e := newTestEngine(t, repo)

	res := e.CheckAvailability(context.Background(), "2025-06-02", "09:00", "17:00")

	assert.True(t, res.Available)
	assert.Empty(t, res.Conflicts)
}

func TestCheckAvailability_UntitledEventDefault(t *testing.T) {
	repo := &fakeRepo{events: []calendar.Event{
		timedEvent("1", "", "2025-06-02T04:30:00Z", "2025-06-02T05:30:00Z"),
	}}
	e := newTestEngine(t, repo)

	res := e.CheckAvailability(context.Background(), "2025-06-02", "10:00", "11:00")

	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "Untitled Event", res.Conflicts[0].Name)
}

func TestCheckAvailability_RepositoryFailure(t *testing.T) {
	repo := &fakeRepo{eventsErr: errors.New("quota exceeded")}
	e := newTestEngine(t, repo)

	res := e.CheckAvailability(context.Background(), "2025-06-02", "10:00", "11:00")

	assert.False(t, res.Available)
	assert.Contains(t, res.Error, "quota exceeded")
	assert.Empty(t, res.Conflicts)
	assert.NotNil(t, res.Conflicts)
}

func TestCheckAvailability_BadDateInput(t *testing.T) {
	e := newTestEngine(t, &fakeRepo{})

	res := e.CheckAvailability(context.Background(), "June 2nd", "10:00", "11:00")

	assert.False(t, res.Available)
	assert.NotEmpty(t, res.Error)
}

func TestCheckAvailability_Idempotent(t *testing.T) {
	repo := &fakeRepo{events: []calendar.Event{
		timedEvent("1", "Standup", "2025-06-02T04:30:00Z", "2025-06-02T05:30:00Z"),
	}}
	e := newTestEngine(t, repo)
	ctx := context.Background()

	first := e.CheckAvailability(ctx, "2025-06-02", "10:00", "11:00")
	second := e.CheckAvailability(ctx, "2025-06-02", "10:00", "11:00")

	assert.Equal(t, first, second)
}
