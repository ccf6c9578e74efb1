package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/aretw0/voyage/internal/logging"
	"github.com/aretw0/voyage/pkg/domain"
)

// BadToolNameContent is the result content for names that resolve to no tool.
// It asks the model to correct itself on the next model step.
const BadToolNameContent = "bad tool name, retry"

// Func is the callable behind a tool. args is the struct built by Tool.Args
// when the tool declares one, otherwise the raw model-supplied map.
type Func func(ctx context.Context, args any) (string, error)

// Tool binds a kind to its descriptor and implementation.
type Tool struct {
	Kind        Kind
	Description string
	Parameters  map[string]any
	// Args returns a pointer to the struct the call arguments decode into.
	Args   func() any
	Invoke Func
}

// Descriptor returns the metadata used to bind the tool to a chat model.
func (t Tool) Descriptor() domain.Tool {
	return domain.Tool{
		Name:        t.Kind.String(),
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Registry maps tool kinds to tools. It is immutable once built and safe for
// concurrent use.
type Registry struct {
	tools  map[Kind]Tool
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry builds a registry from the given tools.
// Unknown kinds, missing implementations and duplicates are rejected.
func NewRegistry(tools []Tool, opts ...Option) (*Registry, error) {
	r := &Registry{
		tools:  make(map[Kind]Tool, len(tools)),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, t := range tools {
		if t.Kind == KindUnknown {
			return nil, fmt.Errorf("tool kind %d is not a known tool", t.Kind)
		}
		if t.Invoke == nil {
			return nil, fmt.Errorf("tool %s has no implementation", t.Kind)
		}
		if _, exists := r.tools[t.Kind]; exists {
			return nil, fmt.Errorf("tool %s already registered", t.Kind)
		}
		r.tools[t.Kind] = t
	}
	return r, nil
}

// Default returns the registry with the built-in travel tools.
func Default(opts ...Option) *Registry {
	r, err := NewRegistry(Builtin(), opts...)
	if err != nil {
		// Builtin is a fixed list, so this is a programming error.
		panic(err)
	}
	return r
}

// Lookup resolves a model-supplied name to a registered tool.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[ParseKind(name)]
	return t, ok
}

// Descriptors lists the registered tools in kind order.
func (r *Registry) Descriptors() []domain.Tool {
	kinds := make([]Kind, 0, len(r.tools))
	for k := range r.tools {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	out := make([]domain.Tool, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, r.tools[k].Descriptor())
	}
	return out
}

// Invoke executes a single call and always returns a result for it.
// Unknown names yield BadToolNameContent; errors and panics raised by the tool
// are converted into an error result so the model can react.
func (r *Registry) Invoke(ctx context.Context, call domain.ToolCall) domain.ToolResult {
	result := domain.ToolResult{ID: call.ID, Name: call.Name}

	t, ok := r.Lookup(call.Name)
	if !ok {
		r.logger.Warn("Bad tool name from model", "tool_name", call.Name, "call_id", call.ID)
		result.Content = BadToolNameContent
		return result
	}

	out, err := r.safeInvoke(ctx, t, call)
	if err != nil {
		r.logger.Warn("Tool failed", "tool_name", call.Name, "call_id", call.ID, "err", err)
		result.Content = fmt.Sprintf("tool error: %v, retry", err)
		result.IsError = true
		return result
	}

	result.Content = out
	return result
}

func (r *Registry) safeInvoke(ctx context.Context, t Tool, call domain.ToolCall) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Tool panicked", "tool_name", call.Name, "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return t.Invoke(ctx, r.decode(t, call))
}

// decode is best effort: arguments that do not fit the tool's struct are
// logged and the tool runs with whatever did decode.
func (r *Registry) decode(t Tool, call domain.ToolCall) any {
	if t.Args == nil {
		return call.Args
	}
	args := t.Args()
	if err := DecodeArgs(call.Args, args); err != nil {
		r.logger.Warn("Invalid tool arguments", "tool_name", call.Name, "call_id", call.ID, "err", err)
	}
	r.logger.Debug("Tool arguments", "tool_name", call.Name, "call_id", call.ID, "args", args)
	return args
}
