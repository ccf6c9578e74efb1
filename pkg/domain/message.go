package domain

// Role tags the variant of a Message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// Message is a single entry of the conversation.
// Which fields are meaningful depends on Role:
//   - ai: Content (optional) and ToolCalls (zero or more).
//   - tool: ToolCallID, Name and Content (the stringified result).
//   - system/human: Content.
type Message struct {
	Role       Role       `json:"role" yaml:"role"`
	Content    string     `json:"content,omitempty" yaml:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
	IsError    bool       `json:"is_error,omitempty" yaml:"is_error,omitempty"`
}

// SystemMessage builds a system instruction.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// HumanMessage builds a user message.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AIMessage builds a model response.
func AIMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAI, Content: content, ToolCalls: calls}
}

// ToolMessage builds the result of a tool call.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Name: name, Content: content}
}

// HasToolCalls reports whether the message is a model response requesting tools.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAI && len(m.ToolCalls) > 0
}

// CloneMessages returns a deep copy of the conversation.
// Tool call arguments are copied one level deep, which is enough for the
// JSON-shaped values they hold after decoding.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m.ToolCalls != nil {
			out[i].ToolCalls = make([]ToolCall, len(m.ToolCalls))
			for j, c := range m.ToolCalls {
				out[i].ToolCalls[j] = c
				if c.Args != nil {
					args := make(map[string]any, len(c.Args))
					for k, v := range c.Args {
						args[k] = v
					}
					out[i].ToolCalls[j].Args = args
				}
			}
		}
	}
	return out
}
