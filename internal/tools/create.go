package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"slotwise/internal/schedule"
)

// CreateEvent books a new event on the calendar.
type CreateEvent struct {
	engine *schedule.Engine
}

var _ tools.Tool = &CreateEvent{}

func NewCreateEvent(engine *schedule.Engine) *CreateEvent {
	return &CreateEvent{engine: engine}
}

func (c *CreateEvent) Name() string {
	return "create_event"
}

func (c *CreateEvent) Description() string {
	return `Create an event in the calendar after the user has confirmed the booking.

Input must be a stringified JSON object like:
{"date": "2025-06-02", "time": "14:00", "name": "Dentist", "duration": 1, "description": "checkup", "location": "clinic"}

Fields:
- date (string, required): start date, YYYY-MM-DD.
- time (string, required): start time, HH:MM.
- name (string, optional): event title, defaults to "Appointment".
- duration (integer, optional): length in hours, default 1.
- description (string, optional)
- location (string, optional)`
}

func (c *CreateEvent) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Start date of the event (YYYY-MM-DD).",
			},
			"time": map[string]interface{}{
				"type":        "string",
				"description": "Start time of the event (HH:MM).",
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Name or title of the event (default: Appointment).",
			},
			"duration": map[string]interface{}{
				"type":        "integer",
				"description": "Duration of the event in hours (default 1).",
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Optional event description.",
			},
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Optional event location.",
			},
		},
		"required": []string{"date", "time"},
	}
}

type createEventInput struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Name        string `json:"name"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (c *CreateEvent) Call(ctx context.Context, input string) (string, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	toolInvocations.WithLabelValues(c.Name()).Inc()

	var payload createEventInput
	if err := json.Unmarshal([]byte(strings.TrimSpace(input)), &payload); err != nil {
		return "Error: expected a JSON object with date and time fields.", nil
	}
	if strings.TrimSpace(payload.Date) == "" || strings.TrimSpace(payload.Time) == "" {
		return "Error: date and time are required to create an event.", nil
	}

	msg := c.engine.CreateEvent(ctx, payload.Date, payload.Time, payload.Name,
		payload.Duration, payload.Description, payload.Location)
	return msg, nil
}
