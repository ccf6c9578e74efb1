package voyage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/voyage/pkg/approval"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
)

// Runner handles one interactive exchange with the agent using provided IO.
// This allows for easy testing and integration with different frontends.
type Runner struct {
	Input  approval.LineReader
	Output io.Writer

	// Headless stops at the approval pause instead of asking.
	Headless bool
	// Gate overrides the terminal prompt (e.g. approval.AutoApprove()).
	Gate ports.ApprovalGate

	Renderer ContentRenderer
	// Trace, when set, receives every message appended to the conversation.
	Trace func(domain.Message)
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// Run asks for a query, runs it on the session and, once approved, prints
// the drafted email.
func (r *Runner) Run(ctx context.Context, agent *Agent, sessionID string) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set")
	}

	fmt.Fprint(r.Output, "enter your query: ")
	query, err := r.Input.Readline()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("input error: %w", err)
	}

	before, _ := agent.State(ctx, sessionID)
	if before != nil && before.Phase.Terminal() {
		// The thread starts over, so every message is new.
		before = nil
	}
	state, err := agent.Start(ctx, sessionID, strings.TrimSpace(query))
	r.trace(before, state)
	if err != nil {
		return err
	}

	return r.finish(ctx, agent, state)
}

// Resume continues a session paused before the email step.
func (r *Runner) Resume(ctx context.Context, agent *Agent, sessionID string) error {
	if r.Output == nil {
		return fmt.Errorf("output writer must be set")
	}
	state, err := agent.State(ctx, sessionID)
	if err != nil {
		return err
	}
	if state.Phase.Terminal() {
		return r.print(state.Output)
	}
	return r.finish(ctx, agent, state)
}

func (r *Runner) finish(ctx context.Context, agent *Agent, state *domain.State) error {
	if !state.Phase.Paused() {
		return r.print(state.Output)
	}

	if last, ok := state.Last(); ok {
		if err := r.print(last.Content); err != nil {
			return err
		}
	}
	if r.Headless {
		fmt.Fprintf(r.Output, "awaiting approval to send the email (session %s)\n", state.SessionID)
		return nil
	}

	gate := r.Gate
	if gate == nil {
		gate = approval.NewPrompt(r.Input, r.Output)
	}

	done, err := agent.Await(ctx, state.SessionID, gate)
	if errors.Is(err, domain.ErrApprovalDenied) {
		fmt.Fprintln(r.Output, "email not sent")
		return nil
	}
	r.trace(state, done)
	if err != nil {
		return err
	}
	return r.print(done.Output)
}

func (r *Runner) trace(before, after *domain.State) {
	if r.Trace == nil || after == nil {
		return
	}
	for _, m := range domain.Diff(before, after).Appended {
		r.Trace(m)
	}
}

func (r *Runner) print(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	output := content
	if r.Renderer != nil {
		if rendered, err := r.Renderer(content); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(r.Output, strings.TrimSpace(output))
	return err
}
