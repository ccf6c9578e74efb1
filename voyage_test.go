package voyage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/voyage"
	"github.com/aretw0/voyage/pkg/adapters/file"
	"github.com/aretw0/voyage/pkg/adapters/scripted"
	"github.com/aretw0/voyage/pkg/approval"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgent_BookFlightEndToEnd(t *testing.T) {
	model := scripted.NewQueue(
		domain.AIMessage("", domain.ToolCall{ID: "call_1", Name: "flights_finder", Args: map[string]any{"start": "NYC", "end": "CHI"}}),
		domain.AIMessage("Your chicago flight is booked."),
		domain.AIMessage("Hello! Your chicago flight is booked. Cheers."),
	)
	agent, err := voyage.New(model)
	require.NoError(t, err)
	ctx := context.Background()

	state, err := agent.Invoke(ctx, voyage.DefaultSessionID, "book me a flight")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailPending, state.Phase)

	roles := make([]domain.Role, 0, len(state.Messages))
	for _, m := range state.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []domain.Role{domain.RoleHuman, domain.RoleAI, domain.RoleTool, domain.RoleAI}, roles)
	assert.Equal(t, "chicago flight", state.Messages[2].Content)

	// The pause is persisted.
	stored, err := agent.State(ctx, voyage.DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailPending, stored.Phase)

	done, err := agent.Resume(ctx, voyage.DefaultSessionID, domain.Approve())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailDone, done.Phase)
	assert.NotEmpty(t, done.Output)
	assert.Equal(t, 0, model.Remaining())

	// Terminal: no more model calls.
	_, err = agent.Invoke(ctx, voyage.DefaultSessionID, "and a hotel")
	assert.ErrorIs(t, err, domain.ErrSessionComplete)
	_, err = agent.Resume(ctx, voyage.DefaultSessionID, domain.Approve())
	assert.ErrorIs(t, err, domain.ErrSessionComplete)
	assert.Len(t, model.Requests(), 3)
}

func TestAgent_StartAfterCompletionBeginsNewConversation(t *testing.T) {
	agent, err := voyage.New(scripted.New(), voyage.WithStore(file.New(t.TempDir())))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := agent.Start(ctx, "123", "book me a flight")
	require.NoError(t, err)
	_, err = agent.Resume(ctx, "123", domain.Approve())
	require.NoError(t, err)

	_, err = agent.Invoke(ctx, "123", "find me a hotel")
	assert.ErrorIs(t, err, domain.ErrSessionComplete)

	second, err := agent.Start(ctx, "123", "find me a hotel")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailPending, second.Phase)
	assert.Len(t, second.Messages, len(first.Messages))
	assert.Equal(t, "find me a hotel", second.Messages[0].Content)
	assert.Empty(t, second.Output)

	// A paused thread is continued, not replaced.
	third, err := agent.Start(ctx, "123", "and a flight")
	require.NoError(t, err)
	assert.Equal(t, "find me a hotel", third.Messages[0].Content)
	assert.Greater(t, len(third.Messages), len(second.Messages))
}

func TestAgent_ResumeUnknownSession(t *testing.T) {
	agent, err := voyage.New(scripted.New())
	require.NoError(t, err)

	_, err = agent.Resume(context.Background(), "nope", domain.Approve())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err := agent.Sessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAgent_RejectKeepsSessionPaused(t *testing.T) {
	agent, err := voyage.New(scripted.New())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = agent.Invoke(ctx, "s", "find me a hotel")
	require.NoError(t, err)

	state, err := agent.Resume(ctx, "s", domain.Reject("too pricey"))
	assert.ErrorIs(t, err, domain.ErrApprovalDenied)
	assert.Equal(t, domain.PhaseEmailPending, state.Phase)

	state, err = agent.Resume(ctx, "s", domain.Approve())
	require.NoError(t, err)
	assert.Contains(t, state.Output, "radisson hotel")
}

func TestAgent_InvokeWhilePendingRestartsLoop(t *testing.T) {
	agent, err := voyage.New(scripted.New())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := agent.Invoke(ctx, "s", "book me a flight")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseEmailPending, first.Phase)

	second, err := agent.Invoke(ctx, "s", "also a hotel please")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailPending, second.Phase)
	assert.Greater(t, len(second.Messages), len(first.Messages))
	last, _ := second.Last()
	assert.Contains(t, last.Content, "radisson hotel")
}

func TestAgent_ModelErrorSavesProgress(t *testing.T) {
	boom := errors.New("503")
	model := scripted.NewQueue(
		domain.AIMessage("", domain.ToolCall{ID: "1", Name: "hotels_finder"}),
	).FailAt(1, boom)
	agent, err := voyage.New(model)
	require.NoError(t, err)
	ctx := context.Background()

	state, err := agent.Invoke(ctx, "s", "hotel")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.PhaseModelStep, state.Phase)

	stored, err := agent.State(ctx, "s")
	require.NoError(t, err)
	require.Len(t, stored.Messages, 3, "human, ai with call, tool result")
	assert.Equal(t, "radisson hotel", stored.Messages[2].Content)
}

func TestAgent_ConverseWithChannel(t *testing.T) {
	gate := approval.NewChannel()
	agent, err := voyage.New(scripted.New(), voyage.WithApprovalGate(gate))
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		state *domain.State
		cerr  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		state, cerr = agent.Converse(context.Background(), "s", "book me a flight")
	}()

	require.Eventually(t, func() bool { return gate.Waiting("s") }, 2*time.Second, time.Millisecond)

	// The session lock is free while waiting.
	paused, err := agent.State(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailPending, paused.Phase)

	require.NoError(t, gate.Approve("s"))
	wg.Wait()

	require.NoError(t, cerr)
	assert.Equal(t, domain.PhaseEmailDone, state.Phase)
	assert.Contains(t, state.Output, "chicago flight")
}

func TestAgent_ConverseTimeout(t *testing.T) {
	agent, err := voyage.New(scripted.New(),
		voyage.WithApprovalGate(approval.NewChannel()),
		voyage.WithApprovalTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)

	state, err := agent.Converse(context.Background(), "s", "book me a flight")
	assert.ErrorIs(t, err, domain.ErrApprovalTimeout)
	assert.Equal(t, domain.PhaseEmailPending, state.Phase)
}

func TestAgent_StepLimit(t *testing.T) {
	loop := make([]domain.Message, 0, 8)
	for i := 0; i < 8; i++ {
		loop = append(loop, domain.AIMessage("", domain.ToolCall{ID: "x", Name: "flights_finder"}))
	}
	agent, err := voyage.New(scripted.NewQueue(loop...), voyage.WithMaxSteps(4))
	require.NoError(t, err)

	_, err = agent.Invoke(context.Background(), "s", "loop forever")
	assert.ErrorIs(t, err, domain.ErrStepLimit)
}

func TestAgent_SessionsAreIndependent(t *testing.T) {
	agent, err := voyage.New(scripted.New(), voyage.WithStore(file.New(t.TempDir())))
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := agent.Invoke(ctx, id, "book me a flight and a hotel")
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	ids, err := agent.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	require.NoError(t, agent.Delete(ctx, "b"))
	_, err = agent.State(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAgent_GraphOverlay(t *testing.T) {
	agent, err := voyage.New(scripted.New())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = agent.Invoke(ctx, "s", "book me a flight")
	require.NoError(t, err)

	out, err := agent.Graph(ctx, "s")
	require.NoError(t, err)
	assert.Contains(t, out, "class tools visited;")
	assert.Contains(t, out, "class email_sender current;")

	_, err = agent.Graph(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := voyage.New(nil)
	assert.Error(t, err)
}
