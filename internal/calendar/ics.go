package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

const (
	icsFetchTimeout  = 30 * time.Second
	icsUpcomingSpan  = 3 * 24 * time.Hour
	maxICSBodyBytes  = 8 << 20
	maxICSRecurrence = 1000
)

// ICSRepository is a read-only Repository over one or more ICS subscription
// feeds. Every query re-fetches the feeds so results stay fresh; recurring
// events are expanded into single instances within the requested range.
type ICSRepository struct {
	urls   []string
	client *http.Client
}

var _ Repository = (*ICSRepository)(nil)

func NewICSRepository(urls []string, client *http.Client) *ICSRepository {
	if client == nil {
		client = &http.Client{Timeout: icsFetchTimeout}
	}
	return &ICSRepository{urls: urls, client: client}
}

func (r *ICSRepository) Events(ctx context.Context, startDate, endDate string) ([]Event, error) {
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(time.DateOnly, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	return r.eventsBetween(ctx, start.UTC(), end.AddDate(0, 0, 1).UTC())
}

func (r *ICSRepository) UpcomingEvents(ctx context.Context, max int64) ([]Event, error) {
	now := time.Now().UTC()
	events, err := r.eventsBetween(ctx, now, now.Add(icsUpcomingSpan))
	if err != nil {
		return nil, err
	}
	if max > 0 && int64(len(events)) > max {
		events = events[:max]
	}
	return events, nil
}

func (r *ICSRepository) Insert(ctx context.Context, ev Event) (Event, error) {
	return Event{}, ErrReadOnly
}

func (r *ICSRepository) Update(ctx context.Context, id string, ev Event) (Event, error) {
	return Event{}, ErrReadOnly
}

func (r *ICSRepository) Delete(ctx context.Context, id string) error {
	return ErrReadOnly
}

func (r *ICSRepository) eventsBetween(ctx context.Context, rangeStart, rangeEnd time.Time) ([]Event, error) {
	var events []Event
	for _, url := range r.urls {
		body, err := r.fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch %q: %w", url, err)
		}
		parsed, err := parseICSFeed(body, rangeStart, rangeEnd)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %q: %w", url, err)
		}
		events = append(events, parsed...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.DateTime < events[j].Start.DateTime
	})
	return events, nil
}

func (r *ICSRepository) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxICSBodyBytes))
}

func parseICSFeed(body []byte, rangeStart, rangeEnd time.Time) ([]Event, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, ve := range cal.Events() {
		events = append(events, expandVEvent(ve, rangeStart, rangeEnd)...)
	}
	return events, nil
}

// expandVEvent converts a VEVENT into zero or more concrete instances
// within the range. RRULE-based events are expanded with the series UID
// recorded as RecurringEventID so single-instance semantics carry through.
func expandVEvent(ve *ical.VEvent, rangeStart, rangeEnd time.Time) []Event {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil
	}
	end, err := ve.GetEndAt()
	if err != nil {
		// Events without DTEND are unusable for overlap computation.
		return nil
	}
	duration := end.Sub(start)

	uid := ve.Id()
	base := Event{
		ID:      uid,
		Summary: propValue(ve, ical.ComponentPropertySummary),
	}
	base.Description = propValue(ve, ical.ComponentPropertyDescription)
	base.Location = propValue(ve, ical.ComponentPropertyLocation)

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		if !start.Before(rangeEnd) || !end.After(rangeStart) {
			return nil
		}
		base.Start = EventTime{DateTime: start.UTC().Format(time.RFC3339)}
		base.End = EventTime{DateTime: end.UTC().Format(time.RFC3339)}
		return []Event{base}
	}

	opt, err := rrule.StrToROption(rruleProp.Value)
	if err != nil {
		return nil
	}
	opt.Dtstart = start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil
	}

	occurrences := rule.Between(rangeStart.Add(-duration), rangeEnd, true)
	if len(occurrences) > maxICSRecurrence {
		occurrences = occurrences[:maxICSRecurrence]
	}

	var out []Event
	for _, occ := range occurrences {
		occEnd := occ.Add(duration)
		if !occ.Before(rangeEnd) || !occEnd.After(rangeStart) {
			continue
		}
		inst := base
		inst.ID = fmt.Sprintf("%s_%s", uid, occ.UTC().Format("20060102T150405Z"))
		inst.RecurringEventID = uid
		inst.Start = EventTime{DateTime: occ.UTC().Format(time.RFC3339)}
		inst.End = EventTime{DateTime: occEnd.UTC().Format(time.RFC3339)}
		out = append(out, inst)
	}
	return out
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}
