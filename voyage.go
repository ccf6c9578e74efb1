package voyage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/voyage/internal/logging"
	"github.com/aretw0/voyage/internal/presentation/graph"
	"github.com/aretw0/voyage/internal/runtime"
	"github.com/aretw0/voyage/pkg/adapters/memory"
	"github.com/aretw0/voyage/pkg/approval"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
	"github.com/aretw0/voyage/pkg/session"
	"github.com/aretw0/voyage/pkg/tools"
)

// DefaultSessionID is the thread used when the caller does not pick one.
const DefaultSessionID = "123"

// DefaultApprovalTimeout bounds how long Converse waits for the approval gate.
const DefaultApprovalTimeout = 10 * time.Minute

// Input rejections raised before the loop runs.
var (
	ErrInputTooLarge = runtime.ErrInputTooLarge
	ErrInvalidUTF8   = runtime.ErrInvalidUTF8
)

// IsInputError reports whether err rejected a human message before any
// state changed.
func IsInputError(err error) bool {
	return errors.Is(err, domain.ErrEmptyInput) ||
		errors.Is(err, ErrInputTooLarge) ||
		errors.Is(err, ErrInvalidUTF8)
}

// Agent is the high-level entry point of the library. It drives sessions
// through the conversation loop and persists them at every step boundary.
type Agent struct {
	engine          *runtime.Engine
	sessions        *session.Manager
	gate            ports.ApprovalGate
	approvalTimeout time.Duration
	logger          *slog.Logger

	store      ports.StateStore
	locker     ports.DistributedLocker
	registry   *tools.Registry
	hooks      domain.LifecycleHooks
	engineOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Agent.
type Option func(*Agent)

// WithStore sets the session store (default: in memory).
func WithStore(store ports.StateStore) Option {
	return func(a *Agent) {
		a.store = store
	}
}

// WithLocker enables distributed locking of sessions.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(a *Agent) {
		a.locker = locker
	}
}

// WithRegistry replaces the built-in travel tools.
func WithRegistry(r *tools.Registry) Option {
	return func(a *Agent) {
		a.registry = r
	}
}

// WithApprovalGate sets the gate Converse waits on (default: an in-process
// approval.Channel).
func WithApprovalGate(gate ports.ApprovalGate) Option {
	return func(a *Agent) {
		a.gate = gate
	}
}

// WithApprovalTimeout bounds each wait on the approval gate.
func WithApprovalTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.approvalTimeout = d
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = a.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithMaxSteps bounds the steps that follow a human message.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		a.engineOpts = append(a.engineOpts, runtime.WithMaxSteps(n))
	}
}

// WithMaxInputSize bounds the size of human messages in bytes.
func WithMaxInputSize(n int) Option {
	return func(a *Agent) {
		a.engineOpts = append(a.engineOpts, runtime.WithMaxInputSize(n))
	}
}

// New creates an agent talking to the given chat model.
func New(model ports.ChatModel, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	a := &Agent{approvalTimeout: DefaultApprovalTimeout}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}
	if a.registry == nil {
		a.registry = tools.Default(tools.WithLogger(a.logger))
	}
	if a.gate == nil {
		a.gate = approval.NewChannel()
	}

	sessOpts := []session.Option{session.WithLogger(a.logger)}
	if a.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(a.locker))
	}
	a.sessions = session.NewManager(a.store, sessOpts...)

	engineOpts := append([]runtime.EngineOption{
		runtime.WithLogger(a.logger),
		runtime.WithLifecycleHooks(a.hooks),
	}, a.engineOpts...)
	a.engine = runtime.NewEngine(model, a.registry, engineOpts...)

	return a, nil
}

// Invoke appends a human message to the session and runs the loop until it
// pauses before the email step. Unknown sessions are created. On a model
// error the progress made so far is saved and returned with the error.
func (a *Agent) Invoke(ctx context.Context, sessionID, input string) (*domain.State, error) {
	a.logger.Info("Invoke", "session_id", sessionID)
	return a.sessions.Update(ctx, sessionID, a.submit(input, false))
}

// Start is Invoke for front ends that own the thread id, such as the CLI.
// A session whose email was already sent begins a new conversation under the
// same id instead of failing with domain.ErrSessionComplete.
func (a *Agent) Start(ctx context.Context, sessionID, input string) (*domain.State, error) {
	a.logger.Info("Start", "session_id", sessionID)
	return a.sessions.Update(ctx, sessionID, a.submit(input, true))
}

func (a *Agent) submit(input string, restart bool) session.UpdateFunc {
	return func(ctx context.Context, state *domain.State) (*domain.State, error) {
		if restart && state.Phase.Terminal() {
			a.logger.Info("Starting new conversation", "session_id", state.SessionID)
			state = domain.NewState(state.SessionID)
		}
		next, err := a.engine.Submit(state, input)
		if err != nil {
			return nil, err
		}
		return a.engine.Run(ctx, next)
	}
}

// Resume applies an approval decision to a paused session. An approved
// decision drafts the email and completes the session; a rejected one leaves
// it paused and returns domain.ErrApprovalDenied.
func (a *Agent) Resume(ctx context.Context, sessionID string, decision domain.ApprovalDecision) (*domain.State, error) {
	a.logger.Info("Resume", "session_id", sessionID, "approved", decision.Approved)
	return a.sessions.UpdateExisting(ctx, sessionID, func(ctx context.Context, state *domain.State) (*domain.State, error) {
		return a.engine.Resume(ctx, state, decision)
	})
}

// Await waits on gate for a decision about a paused session, then resumes
// it. The wait holds no session lock. On timeout the session stays paused and
// domain.ErrApprovalTimeout is returned.
func (a *Agent) Await(ctx context.Context, sessionID string, gate ports.ApprovalGate) (*domain.State, error) {
	state, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !state.Phase.Paused() {
		if state.Phase.Terminal() {
			return state, domain.ErrSessionComplete
		}
		return state, domain.ErrNotPaused
	}

	decision, err := approval.WithTimeout(gate, a.approvalTimeout).AwaitApproval(ctx, sessionID)
	if err != nil {
		return state, err
	}
	next, err := a.Resume(ctx, sessionID, decision)
	if next == nil {
		next = state
	}
	return next, err
}

// Converse is Invoke followed, when the session pauses, by Await on the
// agent's approval gate.
func (a *Agent) Converse(ctx context.Context, sessionID, input string) (*domain.State, error) {
	state, err := a.Invoke(ctx, sessionID, input)
	if err != nil {
		return state, err
	}
	if !state.Phase.Paused() {
		return state, nil
	}
	return a.Await(ctx, sessionID, a.gate)
}

// Gate returns the approval gate used by Converse.
func (a *Agent) Gate() ports.ApprovalGate {
	return a.gate
}

// State loads a session.
func (a *Agent) State(ctx context.Context, sessionID string) (*domain.State, error) {
	return a.sessions.Load(ctx, sessionID)
}

// Sessions lists the stored session IDs.
func (a *Agent) Sessions(ctx context.Context) ([]string, error) {
	return a.sessions.List(ctx)
}

// Delete removes a session.
func (a *Agent) Delete(ctx context.Context, sessionID string) error {
	return a.sessions.Delete(ctx, sessionID)
}

// Tools lists the tool descriptors bound to the model.
func (a *Agent) Tools() []domain.Tool {
	return a.registry.Descriptors()
}

// Graph renders the loop as a Mermaid flowchart. With a session ID, the
// nodes the session visited and the one it sits on are highlighted.
func (a *Agent) Graph(ctx context.Context, sessionID string) (string, error) {
	nodes, edges := runtime.Topology()
	if sessionID == "" {
		return graph.GenerateMermaid(nodes, edges, nil), nil
	}

	state, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load session for overlay: %w", err)
	}
	return graph.GenerateMermaid(nodes, edges, &graph.GraphOverlay{
		VisitedNodes: runtime.Visited(state),
		CurrentNode:  runtime.NodeFor(state.Phase),
	}), nil
}
