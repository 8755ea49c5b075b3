package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"slotwise/internal/schedule"
)

// UpdateEvent modifies upcoming events matched by name.
type UpdateEvent struct {
	engine *schedule.Engine
}

var _ tools.Tool = &UpdateEvent{}

func NewUpdateEvent(engine *schedule.Engine) *UpdateEvent {
	return &UpdateEvent{engine: engine}
}

func (u *UpdateEvent) Name() string {
	return "update_event"
}

func (u *UpdateEvent) Description() string {
	return `Update an existing calendar event found by name. Matching is case-insensitive and every match is updated.

Input must be a stringified JSON object like:
{"event_name": "Dentist", "time": "16:00"}

Fields:
- event_name (string, required): name of the event to update.
- date (string, optional): new start date, YYYY-MM-DD. The original time is kept unless time is also given.
- time (string, optional): new start time, HH:MM. The original date is kept unless date is also given.
- duration (integer, optional): new length in hours. Omitted, the original duration is preserved.
- name (string, optional): new title.
- description (string, optional)
- location (string, optional)`
}

func (u *UpdateEvent) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"event_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the event to be updated.",
			},
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Updated start date of the event (YYYY-MM-DD).",
			},
			"time": map[string]interface{}{
				"type":        "string",
				"description": "Updated start time of the event (HH:MM).",
			},
			"duration": map[string]interface{}{
				"type":        "integer",
				"description": "Updated duration in hours.",
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Updated title of the event.",
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Updated description of the event.",
			},
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Updated location of the event.",
			},
		},
		"required": []string{"event_name"},
	}
}

type updateEventInput struct {
	EventName   string  `json:"event_name"`
	Date        *string `json:"date,omitempty"`
	Time        *string `json:"time,omitempty"`
	Duration    *int    `json:"duration,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
}

func (u *UpdateEvent) Call(ctx context.Context, input string) (string, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	toolInvocations.WithLabelValues(u.Name()).Inc()

	var payload updateEventInput
	if err := json.Unmarshal([]byte(strings.TrimSpace(input)), &payload); err != nil {
		return "Error: expected a JSON object with an event_name field.", nil
	}
	if strings.TrimSpace(payload.EventName) == "" {
		return "Error: event_name is required to update an event.", nil
	}

	patch := schedule.EventPatch{
		Date:          payload.Date,
		Time:          payload.Time,
		DurationHours: payload.Duration,
		Name:          payload.Name,
		Description:   payload.Description,
		Location:      payload.Location,
	}
	return u.engine.UpdateEvent(ctx, payload.EventName, patch), nil
}
