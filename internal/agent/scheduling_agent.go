package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/tools"
)

const scratchpadKey = "agent_scratchpad"

// parameterizedTool is implemented by tools that expose a structured
// argument schema instead of the default single-string input.
type parameterizedTool interface {
	tools.Tool
	Parameters() map[string]interface{}
}

// SchedulingAgent wraps the OpenAI functions agent so calendar tools can
// advertise their real JSON argument schemas to the model and so parallel
// tool calls are parsed into discrete actions.
type SchedulingAgent struct {
	*agents.OpenAIFunctionsAgent
}

func (a *SchedulingAgent) functions() []llms.FunctionDefinition {
	defs := make([]llms.FunctionDefinition, 0, len(a.Tools))
	for _, tool := range a.Tools {
		params := defaultFunctionParameters()
		if pt, ok := tool.(parameterizedTool); ok {
			if custom := pt.Parameters(); custom != nil {
				params = custom
			}
		}
		defs = append(defs, llms.FunctionDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  params,
		})
	}
	return defs
}

// Plan formats the conversation plus scratchpad into model messages,
// requests a completion with the tool schemas attached, and parses the
// result into either tool actions or a finish.
func (a *SchedulingAgent) Plan(
	ctx context.Context,
	intermediateSteps []schema.AgentStep,
	inputs map[string]string,
	options ...chains.ChainCallOption,
) ([]schema.AgentAction, *schema.AgentFinish, error) {
	fullInputs := make(map[string]any, len(inputs)+1)
	for key, value := range inputs {
		fullInputs[key] = value
	}
	fullInputs[scratchpadKey] = a.constructScratchPad(intermediateSteps)

	var stream func(ctx context.Context, chunk []byte) error
	if a.CallbacksHandler != nil {
		stream = func(ctx context.Context, chunk []byte) error {
			a.CallbacksHandler.HandleStreamingFunc(ctx, chunk)
			return nil
		}
	}

	prompt, err := a.Prompt.FormatPrompt(fullInputs)
	if err != nil {
		return nil, nil, err
	}

	mcList := make([]llms.MessageContent, len(prompt.Messages()))
	for i, msg := range prompt.Messages() {
		mcList[i] = toMessageContent(msg)
	}

	llmOptions := []llms.CallOption{
		llms.WithFunctions(a.functions()),
		llms.WithStreamingFunc(stream),
	}
	llmOptions = append(llmOptions, chains.GetLLMCallOptions(options...)...)

	result, err := a.LLM.GenerateContent(ctx, mcList, llmOptions...)
	if err != nil {
		return nil, nil, err
	}

	return a.parseOutput(result)
}

// toMessageContent converts a formatted chat message into the content
// shape GenerateContent expects, preserving tool calls and tool results.
func toMessageContent(msg llms.ChatMessage) llms.MessageContent {
	role := msg.GetType()

	switch p := msg.(type) {
	case llms.ToolChatMessage:
		return llms.MessageContent{
			Role: role,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: p.ID,
				Content:    p.Content,
			}},
		}

	case llms.FunctionChatMessage:
		return llms.MessageContent{
			Role: role,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				Name:    p.Name,
				Content: p.Content,
			}},
		}

	case llms.AIChatMessage:
		if len(p.ToolCalls) > 0 {
			parts := make([]llms.ContentPart, 0, len(p.ToolCalls))
			for _, tc := range p.ToolCalls {
				parts = append(parts, llms.ToolCall{
					ID:           tc.ID,
					Type:         tc.Type,
					FunctionCall: tc.FunctionCall,
				})
			}
			return llms.MessageContent{Role: role, Parts: parts}
		}
	}

	return llms.MessageContent{
		Role:  role,
		Parts: []llms.ContentPart{llms.TextContent{Text: msg.GetContent()}},
	}
}

func (a *SchedulingAgent) parseOutput(contentResp *llms.ContentResponse) (
	[]schema.AgentAction, *schema.AgentFinish, error,
) {
	if contentResp == nil || len(contentResp.Choices) == 0 {
		return nil, nil, fmt.Errorf("no choices in response")
	}
	choice := contentResp.Choices[0]

	if len(choice.ToolCalls) > 0 {
		actions := make([]schema.AgentAction, 0, len(choice.ToolCalls))
		for _, toolCall := range choice.ToolCalls {
			actions = append(actions, toAgentAction(
				toolCall.FunctionCall.Name,
				toolCall.FunctionCall.Arguments,
				toolCall.ID,
				choice.Content,
			))
		}
		return actions, nil, nil
	}

	if choice.FuncCall != nil {
		action := toAgentAction(choice.FuncCall.Name, choice.FuncCall.Arguments, "", choice.Content)
		return []schema.AgentAction{action}, nil, nil
	}

	return nil, &schema.AgentFinish{
		ReturnValues: map[string]any{
			"output": choice.Content,
		},
		Log: choice.Content,
	}, nil
}

func toAgentAction(name, rawArgs, toolID, content string) schema.AgentAction {
	normalized := normalizeToolInput(rawArgs)

	contentMsg := ""
	if content != "" {
		contentMsg = fmt.Sprintf(" responded: %s", content)
	}

	return schema.AgentAction{
		Tool:      name,
		ToolInput: normalized,
		Log:       fmt.Sprintf("Invoking: %s with %s%s", name, normalized, contentMsg),
		ToolID:    toolID,
	}
}

// constructScratchPad rebuilds the intermediate tool-call exchange as
// chat messages: each burst of tool calls becomes one AI message followed
// by its tool responses.
func (a *SchedulingAgent) constructScratchPad(steps []schema.AgentStep) []llms.ChatMessage {
	if len(steps) == 0 {
		return nil
	}

	messages := make([]llms.ChatMessage, 0)

	var currentToolCalls []llms.ToolCall
	var currentLog string

	flush := func(upTo int) {
		if len(currentToolCalls) == 0 {
			return
		}
		messages = append(messages, llms.AIChatMessage{
			Content:   currentLog,
			ToolCalls: currentToolCalls,
		})
		for j := upTo - len(currentToolCalls); j < upTo; j++ {
			messages = append(messages, llms.ToolChatMessage{
				ID:      steps[j].Action.ToolID,
				Content: steps[j].Observation,
			})
		}
		currentToolCalls = nil
	}

	for i, step := range steps {
		if i == 0 || step.Action.Log != steps[i-1].Action.Log {
			flush(i)
			currentLog = step.Action.Log
		}

		currentToolCalls = append(currentToolCalls, llms.ToolCall{
			ID:   step.Action.ToolID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      step.Action.Tool,
				Arguments: step.Action.ToolInput,
			},
		})
	}
	flush(len(steps))

	return messages
}

// normalizeToolInput unwraps the single-argument shim some models emit
// and otherwise re-serializes the arguments object.
func normalizeToolInput(argStr string) string {
	trimmed := strings.TrimSpace(argStr)
	if trimmed == "" {
		return ""
	}

	var toolInputMap map[string]any
	if err := json.Unmarshal([]byte(trimmed), &toolInputMap); err != nil {
		return trimmed
	}

	if arg1, ok := toolInputMap["__arg1"]; ok {
		if argVal, ok := arg1.(string); ok {
			return argVal
		}
	}

	normalized, err := json.Marshal(toolInputMap)
	if err != nil {
		return trimmed
	}
	return string(normalized)
}

func defaultFunctionParameters() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"__arg1": map[string]string{"title": "__arg1", "type": "string"},
		},
		"required": []string{"__arg1"},
		"type":     "object",
	}
}
