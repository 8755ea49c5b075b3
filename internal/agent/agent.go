package agent

import (
	"fmt"
	"time"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/prompts"
	langchainTools "github.com/tmc/langchaingo/tools"
)

const maxAgentIterations = 5

// New builds a scheduling agent executor with its own conversation
// memory. Native tool calling is used so the model invokes the calendar
// tools with structured arguments; each chat session gets its own
// executor so conversations never share state.
func New(llm llms.Model, toolSet []langchainTools.Tool, loc *time.Location) *agents.Executor {
	extraMessages := []prompts.MessageFormatter{
		// Render history as a string to avoid executor casting chat messages.
		prompts.NewGenericMessagePromptTemplate("Chat history", "{{ .history }}", []string{"history"}),
	}

	inner := agents.NewOpenAIFunctionsAgent(llm, toolSet,
		agents.NewOpenAIOption().WithSystemMessage(systemPrompt(time.Now(), loc)),
		agents.NewOpenAIOption().WithExtraMessages(extraMessages),
	)

	wrapped := &SchedulingAgent{OpenAIFunctionsAgent: inner}

	return agents.NewExecutor(wrapped,
		agents.WithMaxIterations(maxAgentIterations),
		agents.WithMemory(memory.NewConversationBuffer()),
	)
}

// systemPrompt frames the conversation flow and gives the model today's
// date so relative expressions like "tomorrow" or "next Monday" resolve
// correctly in the business timezone.
func systemPrompt(now time.Time, loc *time.Location) string {
	local := now.In(loc)
	return fmt.Sprintf(`You are a helpful and conversational scheduling assistant for booking appointments on the user's calendar.

- Do NOT say an event is booked unless the create_event tool was actually called.
- ALWAYS call the create_event tool to finalize a booking.
- Confirm with the user first, then execute the tool.

Your conversation flow:
1. Understand what the user wants to schedule.
2. Always check calendar availability with check_availability before suggesting times.
3. If the preferred time is busy, offer alternatives from suggest_time_slots.
4. Show confirm_booking_details and get the user's confirmation.
5. Only then create the calendar event.

Guidelines:
- Be conversational and friendly, not robotic.
- Handle relative dates like "today", "tomorrow", "next Monday" yourself and pass YYYY-MM-DD dates to the tools.
- Understand time preferences like "morning", "afternoon", "evening".
- Use defaults when the user skips details (title "Appointment", one hour duration).
- Ask a follow-up question when required information is missing, but keep the flow light.
- Treat any error text returned by a tool as something to explain to the user, not something to retry blindly.

Current date: %s (%s)
Timezone: %s
Current time: %s`,
		local.Format(time.DateOnly),
		local.Weekday(),
		loc.String(),
		local.Format(time.RFC3339),
	)
}
