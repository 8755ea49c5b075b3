package calendar

import (
	"context"
	"errors"
)

// EventTime carries one boundary of an event the way calendar backends
// report it: either a timestamp (with an ambiguous or explicit timezone)
// or a bare date for all-day events.
type EventTime struct {
	DateTime string
	Date     string
	TimeZone string
}

// IsZero reports whether neither representation is present.
func (t EventTime) IsZero() bool {
	return t.DateTime == "" && t.Date == ""
}

// Reminder is a notification attached to an event at creation time.
type Reminder struct {
	Method  string
	Minutes int64
}

// Event is the backend-neutral calendar entry consumed by the scheduling
// engine. IDs are opaque and unique per calendar. A non-empty
// RecurringEventID marks the entry as a single instance of a series.
type Event struct {
	ID               string
	Summary          string
	Start            EventTime
	End              EventTime
	Description      string
	Location         string
	RecurringEventID string
	Reminders        []Reminder
}

// ErrReadOnly is returned by repositories that cannot mutate events.
var ErrReadOnly = errors.New("calendar source is read-only")

// Repository is the data-access contract for a calendar backend. Dates are
// YYYY-MM-DD strings; Events treats both endpoints as whole inclusive days
// and returns entries in chronological order.
type Repository interface {
	Events(ctx context.Context, startDate, endDate string) ([]Event, error)
	UpcomingEvents(ctx context.Context, max int64) ([]Event, error)
	Insert(ctx context.Context, ev Event) (Event, error)
	Update(ctx context.Context, id string, ev Event) (Event, error)
	Delete(ctx context.Context, id string) error
}
