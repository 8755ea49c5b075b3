package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"slotwise/internal/schedule"
)

// CheckAvailability answers whether a time window on a given date is free.
type CheckAvailability struct {
	engine *schedule.Engine
}

var _ tools.Tool = &CheckAvailability{}

func NewCheckAvailability(engine *schedule.Engine) *CheckAvailability {
	return &CheckAvailability{engine: engine}
}

func (c *CheckAvailability) Name() string {
	return "check_availability"
}

func (c *CheckAvailability) Description() string {
	return `Check calendar availability for a specific date and time range.

Input must be a stringified JSON object like:
{"date": "2025-06-02", "start_time": "10:00", "end_time": "11:00"}

Fields:
- date (string, required): date to check, YYYY-MM-DD.
- start_time (string, optional): start of the window, HH:MM. Defaults to the start of the working day.
- end_time (string, optional): end of the window, HH:MM. Defaults to the end of the working day.`
}

func (c *CheckAvailability) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Date to check availability (YYYY-MM-DD).",
			},
			"start_time": map[string]interface{}{
				"type":        "string",
				"description": "Start time to check from (HH:MM).",
			},
			"end_time": map[string]interface{}{
				"type":        "string",
				"description": "End time to check until (HH:MM).",
			},
		},
		"required": []string{"date"},
	}
}

type checkAvailabilityInput struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (c *CheckAvailability) Call(ctx context.Context, input string) (string, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	toolInvocations.WithLabelValues(c.Name()).Inc()

	var payload checkAvailabilityInput
	if err := json.Unmarshal([]byte(strings.TrimSpace(input)), &payload); err != nil {
		return "Error: expected a JSON object with a date field.", nil
	}
	if strings.TrimSpace(payload.Date) == "" {
		return "Error: date is required to check availability.", nil
	}

	result := c.engine.CheckAvailability(ctx, payload.Date, payload.StartTime, payload.EndTime)

	rendered, err := json.Marshal(result)
	if err != nil {
		return "Error: could not render availability result.", nil
	}
	return string(rendered), nil
}
