package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type contextKey string

const tokenSourceKey contextKey = "oauthTokenSource"

// WithTokenSource attaches an OAuth token source to the context so the
// Google repository can authenticate per-request instead of relying on a
// credentials file.
func WithTokenSource(ctx context.Context, ts oauth2.TokenSource) context.Context {
	return context.WithValue(ctx, tokenSourceKey, ts)
}

// GoogleRepository talks to the user's primary Google Calendar.
type GoogleRepository struct {
	credFile string
}

var _ Repository = (*GoogleRepository)(nil)

func NewGoogleRepository(credFile string) *GoogleRepository {
	return &GoogleRepository{credFile: credFile}
}

func (g *GoogleRepository) Events(ctx context.Context, startDate, endDate string) ([]Event, error) {
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(time.DateOnly, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	srv, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	// Both endpoints are whole days, so the upper bound is midnight after
	// the end date.
	listCall := srv.Events.List("primary").
		SingleEvents(true).
		ShowDeleted(false).
		TimeMin(start.UTC().Format(time.RFC3339)).
		TimeMax(end.AddDate(0, 0, 1).UTC().Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx)

	resp, err := listCall.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events: %w", err)
	}
	return fromGoogleEvents(resp.Items), nil
}

func (g *GoogleRepository) UpcomingEvents(ctx context.Context, max int64) ([]Event, error) {
	if max <= 0 {
		max = 10
	}

	srv, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	listCall := srv.Events.List("primary").
		SingleEvents(true).
		ShowDeleted(false).
		TimeMin(time.Now().UTC().Format(time.RFC3339)).
		MaxResults(max).
		OrderBy("startTime").
		Context(ctx)

	resp, err := listCall.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve upcoming events: %w", err)
	}
	return fromGoogleEvents(resp.Items), nil
}

func (g *GoogleRepository) Insert(ctx context.Context, ev Event) (Event, error) {
	srv, err := g.service(ctx)
	if err != nil {
		return Event{}, err
	}

	created, err := srv.Events.Insert("primary", toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("unable to create event: %w", err)
	}
	return fromGoogleEvent(created), nil
}

func (g *GoogleRepository) Update(ctx context.Context, id string, ev Event) (Event, error) {
	srv, err := g.service(ctx)
	if err != nil {
		return Event{}, err
	}

	saved, err := srv.Events.Update("primary", id, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("unable to update event: %w", err)
	}
	return fromGoogleEvent(saved), nil
}

func (g *GoogleRepository) Delete(ctx context.Context, id string) error {
	srv, err := g.service(ctx)
	if err != nil {
		return err
	}

	if err := srv.Events.Delete("primary", id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to delete event: %w", err)
	}
	return nil
}

func (g *GoogleRepository) service(ctx context.Context) (*gcal.Service, error) {
	cred, err := g.resolveCredential(ctx)
	if err != nil {
		return nil, err
	}
	return gcal.NewService(ctx, cred)
}

func (g *GoogleRepository) resolveCredential(ctx context.Context) (option.ClientOption, error) {
	tokenSource := ctx.Value(tokenSourceKey)
	if tokenSource == nil && g.credFile == "" {
		return nil, fmt.Errorf("google calendar authentication is not configured yet")
	}

	if tokenSource != nil {
		ts, ok := tokenSource.(oauth2.TokenSource)
		if !ok || ts == nil {
			return nil, fmt.Errorf("context token source is not valid")
		}
		return option.WithTokenSource(ts), nil
	}

	return option.WithCredentialsFile(g.credFile), nil
}

func fromGoogleEvents(items []*gcal.Event) []Event {
	events := make([]Event, 0, len(items))
	for _, item := range items {
		events = append(events, fromGoogleEvent(item))
	}
	return events
}

func fromGoogleEvent(e *gcal.Event) Event {
	if e == nil {
		return Event{}
	}
	out := Event{
		ID:               e.Id,
		Summary:          e.Summary,
		Description:      e.Description,
		Location:         e.Location,
		RecurringEventID: e.RecurringEventId,
	}
	if e.Start != nil {
		out.Start = EventTime{DateTime: e.Start.DateTime, Date: e.Start.Date, TimeZone: e.Start.TimeZone}
	}
	if e.End != nil {
		out.End = EventTime{DateTime: e.End.DateTime, Date: e.End.Date, TimeZone: e.End.TimeZone}
	}
	return out
}

func toGoogleEvent(ev Event) *gcal.Event {
	out := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       toGoogleEventTime(ev.Start),
		End:         toGoogleEventTime(ev.End),
	}
	if len(ev.Reminders) > 0 {
		overrides := make([]*gcal.EventReminder, 0, len(ev.Reminders))
		for _, r := range ev.Reminders {
			overrides = append(overrides, &gcal.EventReminder{Method: r.Method, Minutes: r.Minutes})
		}
		out.Reminders = &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		}
	}
	return out
}

func toGoogleEventTime(t EventTime) *gcal.EventDateTime {
	if t.IsZero() {
		return nil
	}
	return &gcal.EventDateTime{DateTime: t.DateTime, Date: t.Date, TimeZone: t.TimeZone}
}
