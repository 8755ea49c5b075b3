package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"slotwise/internal/calendar"
)

const defaultEventName = "Appointment"

// eventTimestampLayout is how mutation operations persist event boundaries:
// a naive timestamp paired with the business timezone identifier, which the
// backend resolves to a concrete offset.
const eventTimestampLayout = "2006-01-02T15:04:05"

// combinedDateTimeLayouts are the accepted forms for user-supplied
// date+time input. The agent usually sends "YYYY-MM-DD HH:MM" but callers
// get some slack for free-form variants.
var combinedDateTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 3:04PM",
	"2006-01-02 3:04pm",
	"2006-01-02 3PM",
	"2006-01-02 3pm",
	"January 2, 2006 15:04",
	"January 2 2006 15:04",
	"Jan 2, 2006 15:04",
	"02/01/2006 15:04",
}

// parseLenientDateTime combines a date and a time string and parses the
// result in the business timezone.
func parseLenientDateTime(date, timeStr string, loc *time.Location) (time.Time, bool) {
	combined := strings.TrimSpace(strings.TrimSpace(date) + " " + strings.TrimSpace(timeStr))
	for _, layout := range combinedDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, combined, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreateEvent books a new event at date+time with the standard reminder
// policy (email a day ahead, popup ten minutes ahead). The returned string
// is the tool-visible outcome; faults are reported there, never raised.
func (e *Engine) CreateEvent(ctx context.Context, date, timeStr, name string, durationHours int, description, location string) string {
	if name == "" {
		name = defaultEventName
	}
	if durationHours <= 0 {
		durationHours = 1
	}

	start, ok := parseLenientDateTime(date, timeStr, e.loc)
	if !ok {
		return "Error: invalid date/time format. Event not created."
	}
	end := start.Add(time.Duration(durationHours) * time.Hour)

	ev := calendar.Event{
		Summary:     name,
		Description: description,
		Location:    location,
		Start:       calendar.EventTime{DateTime: start.Format(eventTimestampLayout), TimeZone: e.loc.String()},
		End:         calendar.EventTime{DateTime: end.Format(eventTimestampLayout), TimeZone: e.loc.String()},
		Reminders: []calendar.Reminder{
			{Method: "email", Minutes: 24 * 60},
			{Method: "popup", Minutes: 10},
		},
	}

	if _, err := e.repo.Insert(ctx, ev); err != nil {
		return fmt.Sprintf("Error creating event: %v", err)
	}
	return fmt.Sprintf("Event '%s' created successfully for %s at %s", name, date, timeStr)
}

// EventPatch is a partial update for UpdateEvent. Nil fields are left
// untouched; present fields overwrite the corresponding event field.
type EventPatch struct {
	Date          *string
	Time          *string
	DurationHours *int
	Name          *string
	Description   *string
	Location      *string
}

func (p EventPatch) empty() bool {
	return p.Date == nil && p.Time == nil && p.DurationHours == nil &&
		p.Name == nil && p.Description == nil && p.Location == nil
}

// UpdateEvent applies the patch to every upcoming event whose summary
// matches eventName case-insensitively. Each match is updated
// independently; a failure aborts further updates without rolling back
// those already applied.
func (e *Engine) UpdateEvent(ctx context.Context, eventName string, patch EventPatch) string {
	if patch.empty() {
		return "No changes requested."
	}

	events, err := e.repo.UpcomingEvents(ctx, upcomingWindow)
	if err != nil {
		return fmt.Sprintf("Error fetching events: %v", err)
	}

	matches := matchByName(events, eventName, false)
	if len(matches) == 0 {
		return "No matching events found"
	}

	updated := make([]string, 0, len(matches))
	for _, ev := range matches {
		msg, ok := e.applyPatch(ctx, ev, patch)
		if !ok {
			return msg
		}
		updated = append(updated, msg)
	}

	if len(updated) == 1 {
		return fmt.Sprintf("Event '%s' updated successfully", updated[0])
	}
	return fmt.Sprintf("Updated %d events named '%s'", len(updated), updated[0])
}

// applyPatch rewrites one event per the patch and pushes it through the
// repository. On success it returns the final summary and true; on failure
// a caller-visible error message and false.
func (e *Engine) applyPatch(ctx context.Context, ev calendar.Event, patch EventPatch) (string, bool) {
	evStart, evEnd, ok := e.normalizedInterval(ev)
	if !ok {
		return fmt.Sprintf("Error updating event: '%s' has no usable start/end time", summaryOrDefault(ev)), false
	}

	// Original duration survives unless explicitly overridden.
	duration := evEnd.Sub(evStart)
	if patch.DurationHours != nil {
		duration = time.Duration(*patch.DurationHours) * time.Hour
	}

	localStart := evStart.In(e.loc)
	date := localStart.Format(time.DateOnly)
	timeStr := localStart.Format("15:04")
	if patch.Date != nil {
		date = *patch.Date
	}
	if patch.Time != nil {
		timeStr = *patch.Time
	}

	newStart, parsed := parseLenientDateTime(date, timeStr, e.loc)
	if !parsed {
		return "Error: invalid date/time format. Event not updated.", false
	}
	newEnd := newStart.Add(duration)

	ev.Start = calendar.EventTime{DateTime: newStart.Format(eventTimestampLayout), TimeZone: e.loc.String()}
	ev.End = calendar.EventTime{DateTime: newEnd.Format(eventTimestampLayout), TimeZone: e.loc.String()}

	if patch.Name != nil {
		ev.Summary = *patch.Name
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Location != nil {
		ev.Location = *patch.Location
	}

	saved, err := e.repo.Update(ctx, ev.ID, ev)
	if err != nil {
		return fmt.Sprintf("Error updating event: %v", err), false
	}
	return summaryOrDefault(saved), true
}

// DeleteEvent removes every event matching eventName. With a date range it
// searches within it, otherwise the upcoming-events window. When confirm
// is false only a preview of the matches is returned. Recurring instances
// are deleted as single instances, noted in the outcome.
func (e *Engine) DeleteEvent(ctx context.Context, eventName, startDate, endDate string, confirm bool) string {
	var (
		events []calendar.Event
		err    error
	)
	if startDate != "" && endDate != "" {
		events, err = e.repo.Events(ctx, startDate, endDate)
	} else {
		events, err = e.repo.UpcomingEvents(ctx, upcomingWindow)
	}
	if err != nil {
		return fmt.Sprintf("Error fetching events: %v", err)
	}
	if len(events) == 0 {
		return "No events found in the specified range."
	}

	matches := matchByName(events, eventName, true)
	if len(matches) == 0 {
		return fmt.Sprintf("No events found with name '%s'.", eventName)
	}

	if !confirm {
		details := make([]string, 0, len(matches))
		for _, ev := range matches {
			details = append(details, fmt.Sprintf("%s - %s (ID: %s)", eventStartDisplay(ev), summaryOrDefault(ev), ev.ID))
		}
		return fmt.Sprintf("Found %d matching events:\n%s\nConfirmation required to delete.",
			len(matches), strings.Join(details, ", "))
	}

	deleted := make([]string, 0, len(matches))
	notes := make([]string, 0)
	for _, ev := range matches {
		if ev.RecurringEventID != "" {
			notes = append(notes, fmt.Sprintf("'%s' is a recurring event instance; deleted this instance only.", summaryOrDefault(ev)))
		}
		if err := e.repo.Delete(ctx, ev.ID); err != nil {
			// Earlier deletions stand; there is no rollback.
			return fmt.Sprintf("Failed to delete some events: %v", err)
		}
		deleted = append(deleted, summaryOrDefault(ev))
	}

	msg := fmt.Sprintf("Deleted %d events: %s", len(deleted), strings.Join(deleted, ", "))
	if len(notes) > 0 {
		msg += "\n" + strings.Join(notes, "\n")
	}
	return msg
}

// matchByName filters events by case-insensitive summary equality,
// optionally trimming surrounding whitespace first.
func matchByName(events []calendar.Event, name string, trim bool) []calendar.Event {
	want := strings.ToLower(name)
	if trim {
		want = strings.TrimSpace(want)
	}

	var matches []calendar.Event
	for _, ev := range events {
		got := strings.ToLower(ev.Summary)
		if trim {
			got = strings.TrimSpace(got)
		}
		if got == want {
			matches = append(matches, ev)
		}
	}
	return matches
}

func eventStartDisplay(ev calendar.Event) string {
	if ev.Start.DateTime != "" {
		return ev.Start.DateTime
	}
	return ev.Start.Date
}
