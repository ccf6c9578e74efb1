// Package anthropic adapts the Anthropic Messages API to ports.ChatModel.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/voyage/internal/logging"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
)

// DefaultMaxTokens bounds a single response.
const DefaultMaxTokens = 1024

// Model is a chat model backed by the Anthropic Messages API.
type Model struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
	reqOpts   []option.RequestOption
}

// Option configures a Model.
type Option func(*Model)

// WithModel selects the model name.
func WithModel(name string) Option {
	return func(m *Model) {
		if name != "" {
			m.model = name
		}
	}
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.maxTokens = int64(n)
		}
	}
}

// WithRequestOptions forwards options to the SDK client (base URL, retries,
// HTTP client).
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(m *Model) {
		m.reqOpts = append(m.reqOpts, opts...)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a model authenticated with apiKey.
func New(apiKey string, opts ...Option) *Model {
	m := &Model{
		model:     string(anthropic.ModelClaudeSonnet4_5),
		maxTokens: DefaultMaxTokens,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, m.reqOpts...)
	m.client = anthropic.NewClient(clientOpts...)
	return m
}

var _ ports.ChatModel = (*Model)(nil)

// Chat implements ports.ChatModel.
func (m *Model) Chat(ctx context.Context, req ports.ChatRequest) (domain.Message, error) {
	params, err := m.params(req)
	if err != nil {
		return domain.Message{}, err
	}

	m.logger.Debug("Calling Anthropic", "model", m.model, "messages", len(params.Messages), "tools", len(params.Tools))
	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return domain.Message{}, fmt.Errorf("anthropic: %w", err)
	}
	return fromResponse(resp)
}

func (m *Model) params(req ports.ChatRequest) (anthropic.MessageNewParams, error) {
	system, msgs, err := toMessages(req.System, req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = toTools(req.Tools)
	}
	return params, nil
}

// toMessages converts the conversation. System messages join the system
// prompt; consecutive messages mapping to the same role share one turn, which
// keeps the results of parallel tool calls in a single user turn.
func toMessages(system string, conv []domain.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam, error) {
	var sys []anthropic.TextBlockParam
	if system != "" {
		sys = append(sys, anthropic.TextBlockParam{Text: system})
	}

	var out []anthropic.MessageParam
	push := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for i, msg := range conv {
		switch msg.Role {
		case domain.RoleSystem:
			sys = append(sys, anthropic.TextBlockParam{Text: msg.Content})
		case domain.RoleHuman:
			// The API rejects empty text blocks.
			if strings.TrimSpace(msg.Content) != "" {
				push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
			}
		case domain.RoleTool:
			push(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
		case domain.RoleAI:
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(msg.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				args := call.Args
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, args, call.Name))
			}
			push(anthropic.MessageParamRoleAssistant, blocks...)
		default:
			return nil, nil, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}
	}
	return sys, out, nil
}

func toTools(tools []domain.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := t.Parameters["properties"]; ok {
			schema.Properties = props
		}
		schema.Required = stringSlice(t.Parameters["required"])

		tool := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if t.Description != "" {
			tool.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, tool)
	}
	return out
}

func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func fromResponse(resp *anthropic.Message) (domain.Message, error) {
	var (
		text  []string
		calls []domain.ToolCall
	)
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return domain.Message{}, fmt.Errorf("failed to parse tool input for %s: %w", block.Name, err)
				}
			}
			calls = append(calls, domain.ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}
	return domain.AIMessage(strings.Join(text, ""), calls...), nil
}
