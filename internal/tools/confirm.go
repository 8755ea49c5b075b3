package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/tools"

	"slotwise/internal/schedule"
)

// ConfirmBooking renders a booking summary for the user to approve before
// create_event is called. It performs no calendar access.
type ConfirmBooking struct {
	engine *schedule.Engine
}

var _ tools.Tool = &ConfirmBooking{}

func NewConfirmBooking(engine *schedule.Engine) *ConfirmBooking {
	return &ConfirmBooking{engine: engine}
}

func (c *ConfirmBooking) Name() string {
	return "confirm_booking_details"
}

func (c *ConfirmBooking) Description() string {
	return `Show formatted confirmation details to the user before booking an appointment.

Input must be a stringified JSON object like:
{"date": "2025-06-02", "time": "14:00", "name": "Dentist", "duration": 1}

Fields:
- date (string, required): appointment date, YYYY-MM-DD.
- time (string, required): appointment time, HH:MM.
- name (string, optional): appointment title, defaults to "Appointment".
- duration (integer, optional): duration in hours, default 1.
- description (string, optional)
- location (string, optional)`
}

func (c *ConfirmBooking) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Date of the appointment (YYYY-MM-DD).",
			},
			"time": map[string]interface{}{
				"type":        "string",
				"description": "Time of the appointment (HH:MM).",
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Name/title of the appointment (defaults to Appointment).",
			},
			"duration": map[string]interface{}{
				"type":        "integer",
				"description": "Duration in hours (default 1).",
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Description of the appointment.",
			},
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Location of the appointment.",
			},
		},
		"required": []string{"date", "time"},
	}
}

type confirmBookingInput struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Name        string `json:"name"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (c *ConfirmBooking) Call(ctx context.Context, input string) (string, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	toolInvocations.WithLabelValues(c.Name()).Inc()

	var payload confirmBookingInput
	if err := json.Unmarshal([]byte(strings.TrimSpace(input)), &payload); err != nil {
		return "Error: expected a JSON object with date and time fields.", nil
	}

	day, err := time.Parse(time.DateOnly, payload.Date)
	if err != nil {
		return "Error: invalid date; expected YYYY-MM-DD.", nil
	}
	start, err := time.Parse("15:04", payload.Time)
	if err != nil {
		return "Error: invalid time; expected HH:MM.", nil
	}

	if payload.Name == "" {
		payload.Name = "Appointment"
	}
	if payload.Duration <= 0 {
		payload.Duration = 1
	}
	end := start.Add(time.Duration(payload.Duration) * time.Hour)

	var b strings.Builder
	b.WriteString("Appointment Confirmation\n")
	fmt.Fprintf(&b, "Title: %s\n", payload.Name)
	fmt.Fprintf(&b, "Date: %s\n", day.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Time: %s - %s\n", payload.Time, end.Format("15:04"))
	fmt.Fprintf(&b, "Duration: %d hour(s)\n", payload.Duration)
	if payload.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", payload.Description)
	}
	if payload.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", payload.Location)
	}
	b.WriteString("Status: Ready to book")

	return b.String(), nil
}
