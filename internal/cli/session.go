package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/voyage/pkg/domain"
)

// ListSessions prints one row per stored session.
func ListSessions(ctx context.Context, app *App, w io.Writer) error {
	ids, err := app.Agent.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tPHASE\tMESSAGES\tUPDATED")
	for _, id := range ids {
		state, err := app.Agent.State(ctx, id)
		if err != nil {
			fmt.Fprintf(tw, "%s\t?\t?\t%v\n", id, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", id, state.Phase, len(state.Messages), state.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// InspectSession prints a session as indented JSON.
func InspectSession(ctx context.Context, app *App, w io.Writer, sessionID string) error {
	state, err := app.Agent.State(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %q: %w", sessionID, err)
	}
	return writeState(w, state)
}

// RemoveSession deletes a session.
func RemoveSession(ctx context.Context, app *App, w io.Writer, sessionID string) error {
	if _, err := app.Agent.State(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to load session %q: %w", sessionID, err)
	}
	if err := app.Agent.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %q: %w", sessionID, err)
	}
	fmt.Fprintf(w, "Session '%s' removed.\n", sessionID)
	return nil
}

func writeState(w io.Writer, state *domain.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
