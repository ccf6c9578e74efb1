package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/voyage/internal/logging"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
	"github.com/aretw0/voyage/pkg/tools"
)

// DefaultMaxSteps bounds the model/tool ping-pong that follows one human message.
const DefaultMaxSteps = 25

// Engine is the conversation loop. It holds no session data: every method
// takes a state and returns a new one, leaving the input untouched.
type Engine struct {
	model        ports.ChatModel
	registry     *tools.Registry
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	maxSteps     int
	maxInputSize int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxSteps sets the step limit per human message.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithMaxInputSize sets the byte limit of human messages.
func WithMaxInputSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxInputSize = n
		}
	}
}

// NewEngine creates a loop bound to a chat model and a tool registry.
func NewEngine(model ports.ChatModel, registry *tools.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		model:        model,
		registry:     registry,
		logger:       logging.NewNop(),
		maxSteps:     DefaultMaxSteps,
		maxInputSize: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the tool registry bound to the engine.
func (e *Engine) Registry() *tools.Registry {
	return e.registry
}

// Submit appends a human message and rewinds the session to the model step.
// Submitting to a session paused before the email step discards the pending
// email and lets the model reconsider with the new message.
func (e *Engine) Submit(state *domain.State, content string) (*domain.State, error) {
	if state.Phase.Terminal() {
		return nil, domain.ErrSessionComplete
	}

	clean, err := SanitizeInput(content, e.maxInputSize)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(clean) == "" {
		return nil, domain.ErrEmptyInput
	}

	next := state.Clone()
	next.Messages = append(next.Messages, cancelPendingCalls(next.Messages)...)
	next.Messages = append(next.Messages, domain.HumanMessage(clean))
	next.Phase = domain.PhaseModelStep
	next.Steps = 0
	return next, nil
}

// CancelledToolContent answers tool calls that an aborted run left unanswered.
const CancelledToolContent = "tool call cancelled, retry"

// cancelPendingCalls returns error results for the calls of the trailing AI
// message that have no result yet. A run stopped by the step limit or by a
// cancelled context after a model step leaves such calls behind; every call
// must be answered before the next human message.
func cancelPendingCalls(msgs []domain.Message) []domain.Message {
	i := len(msgs) - 1
	answered := make(map[string]bool)
	for ; i >= 0 && msgs[i].Role == domain.RoleTool; i-- {
		answered[msgs[i].ToolCallID] = true
	}
	if i < 0 || !msgs[i].HasToolCalls() {
		return nil
	}

	var results []domain.Message
	for _, call := range msgs[i].ToolCalls {
		if answered[call.ID] {
			continue
		}
		results = append(results, domain.ToolResult{
			ID:      call.ID,
			Name:    call.Name,
			Content: CancelledToolContent,
			IsError: true,
		}.Message())
	}
	return results
}

// Run executes steps until the session pauses for approval or terminates.
// On error it returns the last consistent state alongside the error, so the
// caller can persist the progress made.
func (e *Engine) Run(ctx context.Context, state *domain.State) (*domain.State, error) {
	current := state
	for !current.Phase.Paused() && !current.Phase.Terminal() {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		next, err := e.Step(ctx, current)
		if err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}

// Step executes exactly one step of the loop. It is a no-op on a paused or
// terminated session: leaving the pause requires Resume.
func (e *Engine) Step(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state.Phase.Paused() || state.Phase.Terminal() {
		return state, nil
	}
	if state.Steps >= e.maxSteps {
		return nil, fmt.Errorf("%w: %d steps", domain.ErrStepLimit, state.Steps)
	}

	start := time.Now()
	e.emitStep(ctx, e.hooks.OnStepEnter, domain.EventStepEnter, state, "", 0)

	var (
		appended []domain.Message
		nextPh   domain.Phase
		err      error
	)
	switch state.Phase {
	case domain.PhaseModelStep:
		appended, err = e.CallModel(ctx, state)
		if err == nil {
			var route domain.Route
			route, err = Decide(appended)
			nextPh = phaseFor(route)
		}
	case domain.PhaseToolStep:
		appended, err = e.InvokeTools(ctx, state)
		nextPh = domain.PhaseModelStep
	default:
		err = fmt.Errorf("unknown phase %q", state.Phase)
	}
	if err != nil {
		e.logger.Error("Step failed", "session_id", state.SessionID, "phase", state.Phase, "err", err)
		return nil, fmt.Errorf("%s: %w", state.Phase, err)
	}

	next := state.Clone()
	next.Messages = append(next.Messages, appended...)
	next.Phase = nextPh
	next.Steps++

	e.logger.Debug("Step", "session_id", state.SessionID, "from", state.Phase, "to", nextPh, "appended", len(appended))
	e.emitStep(ctx, e.hooks.OnStepLeave, domain.EventStepLeave, state, nextPh, time.Since(start))
	if nextPh.Paused() {
		e.emitStep(ctx, e.hooks.OnPause, domain.EventPause, next, "", 0)
	}
	return next, nil
}

// CallModel is the model step. It sends the tools instruction followed by the
// whole conversation, with the registry's tools bound, and returns the single
// model response to append.
func (e *Engine) CallModel(ctx context.Context, state *domain.State) ([]domain.Message, error) {
	resp, err := e.model.Chat(ctx, ports.ChatRequest{
		System:   ToolsSystemPrompt,
		Messages: domain.CloneMessages(state.Messages),
		Tools:    e.registry.Descriptors(),
	})
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}

	resp.Role = domain.RoleAI
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].ID == "" {
			resp.ToolCalls[i].ID = fmt.Sprintf("call_%d_%d", state.Steps, i)
		}
	}
	return []domain.Message{resp}, nil
}

// InvokeTools is the tool step. It returns one tool message per call of the
// latest model response, in request order.
func (e *Engine) InvokeTools(ctx context.Context, state *domain.State) ([]domain.Message, error) {
	last, ok := state.Last()
	if !ok || last.Role != domain.RoleAI {
		return nil, domain.ErrNotAIResponse
	}

	results := make([]domain.Message, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		e.logger.Info("Calling tool", "session_id", state.SessionID, "tool_name", call.Name, "call_id", call.ID)
		e.emitTool(ctx, e.hooks.OnToolCall, domain.EventToolCall, state.SessionID, call, nil, 0)

		start := time.Now()
		res := e.registry.Invoke(ctx, call)

		e.emitTool(ctx, e.hooks.OnToolReturn, domain.EventToolReturn, state.SessionID, call, &res, time.Since(start))
		results = append(results, res.Message())
	}
	return results, nil
}

// Resume releases a session paused before the email step.
// An approved decision runs the email step and terminates the session.
// A rejected one leaves the session paused and returns ErrApprovalDenied.
func (e *Engine) Resume(ctx context.Context, state *domain.State, decision domain.ApprovalDecision) (*domain.State, error) {
	switch {
	case state.Phase.Terminal():
		return nil, domain.ErrSessionComplete
	case !state.Phase.Paused():
		return nil, domain.ErrNotPaused
	}

	if !decision.Approved {
		if decision.Reason != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrApprovalDenied, decision.Reason)
		}
		return nil, domain.ErrApprovalDenied
	}

	start := time.Now()
	e.emitStep(ctx, e.hooks.OnStepEnter, domain.EventStepEnter, state, "", 0)

	email, err := e.SendEmail(ctx, state)
	if err != nil {
		e.logger.Error("Email step failed", "session_id", state.SessionID, "err", err)
		return nil, fmt.Errorf("email_sender: %w", err)
	}

	next := state.Clone()
	next.Messages = append(next.Messages, domain.AIMessage(email))
	next.Output = email
	next.Phase = domain.PhaseEmailDone
	next.Steps++

	e.logger.Info("Email drafted", "session_id", state.SessionID, "size", len(email))
	e.emitStep(ctx, e.hooks.OnStepLeave, domain.EventStepLeave, state, next.Phase, time.Since(start))
	return next, nil
}

// SendEmail is the email step. It asks the model, without tools, to turn the
// latest message of the conversation into an email.
func (e *Engine) SendEmail(ctx context.Context, state *domain.State) (string, error) {
	last, ok := state.Last()
	if !ok {
		return "", domain.ErrNotAIResponse
	}

	content := last.Content
	if strings.TrimSpace(content) == "" {
		content = NoDetailsContent
	}

	resp, err := e.model.Chat(ctx, ports.ChatRequest{
		System:   EmailSystemPrompt,
		Messages: []domain.Message{domain.HumanMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("chat model: %w", err)
	}
	return resp.Content, nil
}

func (e *Engine) emitStep(ctx context.Context, hook func(context.Context, *domain.StepEvent), typ domain.EventType, state *domain.State, next domain.Phase, d time.Duration) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, SessionID: state.SessionID},
		Phase:     state.Phase,
		Next:      next,
		Duration:  d,
	})
}

func (e *Engine) emitTool(ctx context.Context, hook func(context.Context, *domain.ToolEvent), typ domain.EventType, sessionID string, call domain.ToolCall, res *domain.ToolResult, d time.Duration) {
	if hook == nil {
		return
	}
	ev := &domain.ToolEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, SessionID: sessionID},
		CallID:    call.ID,
		ToolName:  call.Name,
		Input:     call.Args,
		Duration:  d,
	}
	if res != nil {
		ev.Output = res.Content
		ev.IsError = res.IsError
	}
	hook(ctx, ev)
}
