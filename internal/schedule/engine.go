package schedule

import (
	"context"
	"fmt"
	"time"

	"slotwise/internal/calendar"
)

const (
	// DefaultBusinessTimezone is the zone slot search, display, and
	// working hours are expressed in unless configured otherwise.
	DefaultBusinessTimezone = "Asia/Kolkata"

	defaultWorkDayStart = "09:00"
	defaultWorkDayEnd   = "17:00"

	untitledEvent = "Untitled Event"

	// upcomingWindow matches the backend's upcoming-events listing size
	// used for name-based update and delete lookups.
	upcomingWindow = 10
)

// Engine answers availability questions and drives event mutations against
// an injected Repository. It holds no cross-call state; every query
// re-fetches from the repository so external calendar changes are always
// observed.
type Engine struct {
	repo         calendar.Repository
	loc          *time.Location
	workDayStart string
	workDayEnd   string
}

// Option adjusts Engine construction.
type Option func(*Engine)

// WithWorkDay overrides the default availability window bounds (HH:MM).
func WithWorkDay(start, end string) Option {
	return func(e *Engine) {
		if start != "" {
			e.workDayStart = start
		}
		if end != "" {
			e.workDayEnd = end
		}
	}
}

// NewEngine builds an Engine for the given repository and business
// timezone. An empty timezone selects the default.
func NewEngine(repo calendar.Repository, businessTZ string, opts ...Option) (*Engine, error) {
	if businessTZ == "" {
		businessTZ = DefaultBusinessTimezone
	}
	loc, err := time.LoadLocation(businessTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid business timezone %q: %w", businessTZ, err)
	}

	e := &Engine{
		repo:         repo,
		loc:          loc,
		workDayStart: defaultWorkDayStart,
		workDayEnd:   defaultWorkDayEnd,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Location exposes the business timezone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Conflict is one event overlapping a queried window, with its bounds
// rendered as business-timezone HH:MM for display.
type Conflict struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// AvailabilityResult is the answer to a single availability query. It is
// produced fresh per call and never persisted.
type AvailabilityResult struct {
	Available     bool       `json:"available"`
	Conflicts     []Conflict `json:"conflicts"`
	CheckedPeriod string     `json:"checked_period,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// CheckAvailability reports whether the window [startTime, endTime) on the
// given date is free of conflicts. Empty bounds default to the working-day
// window. Faults never escape; they come back embedded in the result.
func (e *Engine) CheckAvailability(ctx context.Context, date, startTime, endTime string) AvailabilityResult {
	if startTime == "" {
		startTime = e.workDayStart
	}
	if endTime == "" {
		endTime = e.workDayEnd
	}

	events, err := e.repo.Events(ctx, date, date)
	if err != nil {
		return availabilityError(err)
	}

	qStart, err := time.ParseInLocation("2006-01-02 15:04", date+" "+startTime, e.loc)
	if err != nil {
		return availabilityError(err)
	}
	qEnd, err := time.ParseInLocation("2006-01-02 15:04", date+" "+endTime, e.loc)
	if err != nil {
		return availabilityError(err)
	}
	qStartUTC := qStart.UTC()
	qEndUTC := qEnd.UTC()

	conflicts := make([]Conflict, 0)
	for _, ev := range events {
		evStart, evEnd, ok := e.normalizedInterval(ev)
		if !ok {
			continue
		}

		// Half-open overlap test: touching endpoints do not conflict.
		if evStart.Before(qEndUTC) && evEnd.After(qStartUTC) {
			conflicts = append(conflicts, Conflict{
				Name:  summaryOrDefault(ev),
				Start: evStart.In(e.loc).Format("15:04"),
				End:   evEnd.In(e.loc).Format("15:04"),
			})
		}
	}

	return AvailabilityResult{
		Available:     len(conflicts) == 0,
		Conflicts:     conflicts,
		CheckedPeriod: fmt.Sprintf("%s - %s", startTime, endTime),
	}
}

// normalizedInterval parses both event boundaries. Events missing either
// boundary, or carrying unparsable timestamps, are disqualified from
// overlap and busy-block computation.
func (e *Engine) normalizedInterval(ev calendar.Event) (time.Time, time.Time, bool) {
	start, ok := ParseEventTimestamp(ev.Start.DateTime)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := ParseEventTimestamp(ev.End.DateTime)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func availabilityError(err error) AvailabilityResult {
	return AvailabilityResult{
		Available: false,
		Error:     err.Error(),
		Conflicts: []Conflict{},
	}
}

func summaryOrDefault(ev calendar.Event) string {
	if ev.Summary == "" {
		return untitledEvent
	}
	return ev.Summary
}
