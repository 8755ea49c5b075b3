// Package tools exposes the scheduling engine to the language-model agent
// as callable tools with structured argument schemas. Tool outcomes ride
// in the returned string, including failures, so the agent explains
// problems to the user instead of crashing the conversation.
package tools

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tmc/langchaingo/tools"

	"slotwise/internal/schedule"
)

var toolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slotwise_tool_invocations_total",
	Help: "Number of scheduling tool invocations by tool name.",
}, []string{"tool"})

// All returns the full scheduling tool set backed by the given engine.
func All(engine *schedule.Engine) []tools.Tool {
	return []tools.Tool{
		NewCheckAvailability(engine),
		NewSuggestTimeSlots(engine),
		NewConfirmBooking(engine),
		NewCreateEvent(engine),
		NewUpdateEvent(engine),
		NewDeleteEvent(engine),
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
