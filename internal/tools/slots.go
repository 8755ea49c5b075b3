package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"slotwise/internal/schedule"
)

// SuggestTimeSlots finds free windows of a requested duration on a date.
type SuggestTimeSlots struct {
	engine *schedule.Engine
}

var _ tools.Tool = &SuggestTimeSlots{}

func NewSuggestTimeSlots(engine *schedule.Engine) *SuggestTimeSlots {
	return &SuggestTimeSlots{engine: engine}
}

func (s *SuggestTimeSlots) Name() string {
	return "suggest_time_slots"
}

func (s *SuggestTimeSlots) Description() string {
	return `Suggest available time slots for booking an appointment.

Input must be a stringified JSON object like:
{"date": "2025-06-02", "duration": 1, "preferred_time": "morning"}

Fields:
- date (string, required): preferred date, YYYY-MM-DD.
- duration (integer, optional): appointment length in hours, default 1.
- preferred_time (string, optional): morning, afternoon, evening, HH:MM, or a 12-hour time like 3pm.`
}

func (s *SuggestTimeSlots) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Preferred date for the appointment (YYYY-MM-DD).",
			},
			"duration": map[string]interface{}{
				"type":        "integer",
				"description": "Duration of the appointment in hours (default 1).",
			},
			"preferred_time": map[string]interface{}{
				"type":        "string",
				"description": "Preferred time if any (morning, afternoon, evening, or HH:MM).",
			},
		},
		"required": []string{"date"},
	}
}

type suggestTimeSlotsInput struct {
	Date          string `json:"date"`
	Duration      int    `json:"duration"`
	PreferredTime string `json:"preferred_time"`
}

func (s *SuggestTimeSlots) Call(ctx context.Context, input string) (string, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	toolInvocations.WithLabelValues(s.Name()).Inc()

	var payload suggestTimeSlotsInput
	if err := json.Unmarshal([]byte(strings.TrimSpace(input)), &payload); err != nil {
		return "Error: expected a JSON object with a date field.", nil
	}
	if strings.TrimSpace(payload.Date) == "" {
		return "Error: date is required to suggest time slots.", nil
	}

	slots := s.engine.SuggestSlots(ctx, payload.Date, payload.Duration, payload.PreferredTime)
	if len(slots) == 0 {
		return "No available time slots found for that date.", nil
	}

	rendered, err := json.Marshal(slots)
	if err != nil {
		return "Error: could not render time slots.", nil
	}
	return string(rendered), nil
}
