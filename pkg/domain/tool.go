package domain

// ToolCall represents a request from the model to invoke a tool on its behalf.
type ToolCall struct {
	ID   string         `json:"id" yaml:"id" mapstructure:"id"`                         // Unique within the triggering AI message
	Name string         `json:"name" yaml:"name" mapstructure:"name"`                   // Tool name as chosen by the model
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"` // Arguments as decoded from the model
}

// ToolResult represents the output of a tool invocation.
type ToolResult struct {
	ID      string `json:"id"` // Must match the ToolCall.ID
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Message converts the result into a tool message for the conversation.
func (r ToolResult) Message() Message {
	m := ToolMessage(r.ID, r.Name, r.Content)
	m.IsError = r.IsError
	return m
}

// Tool defines metadata about a tool available to the model.
// This is used for binding the registry to the chat model.
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}
