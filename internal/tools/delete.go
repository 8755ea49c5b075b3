package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"slotwise/internal/schedule"
)

// DeleteEvent cancels events matched by name.
type DeleteEvent struct {
	engine *schedule.Engine
}

var _ tools.Tool = &DeleteEvent{}

func NewDeleteEvent(engine *schedule.Engine) *DeleteEvent {
	return &DeleteEvent{engine: engine}
}

func (d *DeleteEvent) Name() string {
	return "delete_event"
}

func (d *DeleteEvent) Description() string {
	return `Delete calendar events found by name. Matching is case-insensitive and ignores surrounding whitespace.

Input must be a stringified JSON object like:
{"event_name": "Dentist"}

Fields:
- event_name (string, required): name of the event to delete.
- start_date (string, optional): search range start, YYYY-MM-DD. Without a range, upcoming events are searched.
- end_date (string, optional): search range end, YYYY-MM-DD.
- confirm (boolean, optional): defaults to true. When false, only a preview of the matches is returned.`
}

func (d *DeleteEvent) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"event_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the event to be deleted.",
			},
			"start_date": map[string]interface{}{
				"type":        "string",
				"description": "Search range start (YYYY-MM-DD).",
			},
			"end_date": map[string]interface{}{
				"type":        "string",
				"description": "Search range end (YYYY-MM-DD).",
			},
			"confirm": map[string]interface{}{
				"type":        "boolean",
				"description": "Set false to preview matches without deleting.",
			},
		},
		"required": []string{"event_name"},
	}
}

type deleteEventInput struct {
	EventName string `json:"event_name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Confirm   *bool  `json:"confirm,omitempty"`
}

func (d *DeleteEvent) Call(ctx context.Context, input string) (string, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	toolInvocations.WithLabelValues(d.Name()).Inc()

	var payload deleteEventInput
	if err := json.Unmarshal([]byte(strings.TrimSpace(input)), &payload); err != nil {
		return "Error: expected a JSON object with an event_name field.", nil
	}
	if strings.TrimSpace(payload.EventName) == "" {
		return "Error: event_name is required to delete an event.", nil
	}

	confirm := true
	if payload.Confirm != nil {
		confirm = *payload.Confirm
	}

	return d.engine.DeleteEvent(ctx, payload.EventName, payload.StartDate, payload.EndDate, confirm), nil
}
