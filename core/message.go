package core

// Role identifies the author of a message in the conversation transcript.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallTypeFunction is the only tool call type models currently emit.
const ToolCallTypeFunction = "function"

// FunctionCall describes the concrete function target of a tool call.
type FunctionCall struct {
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Raw JSON argument text, parsed at dispatch time
}

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // "function"
	Function FunctionCall `json:"function"`
}

// NewToolCall builds a function tool call.
func NewToolCall(id, name, arguments string) ToolCall {
	return ToolCall{
		ID:   id,
		Type: ToolCallTypeFunction,
		Function: FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}
}

// Message is a single role-tagged entry of a conversation.
//
// ToolCalls is only populated on assistant messages; ToolCallID and Name only
// on tool messages.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// HasToolCalls reports whether the message requests at least one tool invocation.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// SystemMessage creates a system message.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// UserMessage creates a user message.
func UserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// AssistantMessage creates an assistant message with optional tool calls.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolMessage creates the tool-role reply for a dispatched tool call.
func ToolMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Content,
		ToolCallID: result.ToolCallID,
		Name:       result.Name,
	}
}

// CloneMessage returns a deep copy suitable for isolation across component boundaries.
func CloneMessage(in Message) Message {
	out := in
	if len(in.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(in.ToolCalls))
		copy(out.ToolCalls, in.ToolCalls)
	}
	return out
}

// CloneMessages returns deep copies of all messages.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i := range in {
		out[i] = CloneMessage(in[i])
	}
	return out
}

// ToolResult is the outcome of one dispatched tool call. Content is JSON text:
// either the tool's payload or an object carrying an "error" key.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// NewToolResult encodes payload as the JSON content of a ToolResult.
func NewToolResult(call ToolCall, payload Value) ToolResult {
	return ToolResult{
		ToolCallID: call.ID,
		Name:       call.Function.Name,
		Content:    payload.String(),
	}
}

// IsError reports whether the result content is an object with an "error" key.
func (r ToolResult) IsError() bool {
	v, err := ParseValue(r.Content)
	if err != nil {
		return false
	}
	obj, ok := v.AsObject()
	if !ok {
		return false
	}
	_, has := obj["error"]
	return has
}
