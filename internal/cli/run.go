package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/voyage"
	"github.com/aretw0/voyage/internal/presentation/tui"
	"github.com/aretw0/voyage/pkg/approval"
)

// RunOptions contains all the configuration for the run and resume commands.
type RunOptions struct {
	SessionID string
	// Headless stops at the approval pause.
	Headless bool
	// AutoApprove sends the email without asking.
	AutoApprove bool
	// HistoryFile keeps readline history between runs.
	HistoryFile string

	// Stdin and Stdout default to the process streams. When both are the
	// process terminal, input goes through readline and output is colored.
	Stdin  io.Reader
	Stdout io.Writer
}

// Run executes one query against a session and handles the approval pause.
func Run(app *App, opts RunOptions) error {
	return execute(app, opts, func(ctx context.Context, r *voyage.Runner) error {
		return r.Run(ctx, app.Agent, opts.SessionID)
	})
}

// Resume asks for approval on a paused session and prints the email.
func Resume(app *App, opts RunOptions) error {
	return execute(app, opts, func(ctx context.Context, r *voyage.Runner) error {
		return r.Resume(ctx, app.Agent, opts.SessionID)
	})
}

func execute(app *App, opts RunOptions, fn func(context.Context, *voyage.Runner) error) error {
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	r, closeIO, err := newRunner(opts)
	if err != nil {
		return err
	}
	defer closeIO()

	if app.Offline && !opts.Headless {
		printSystemMessage(r.Output, "offline mode: answers come from the scripted model")
	}
	app.Logger.Info("Session active", "session_id", opts.SessionID)

	runErr := fn(sigCtx, r)
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}
	logCompletion(r.Output, opts.SessionID, runErr, sigCtx.Signal())
	return handleExecutionError(runErr)
}

func newRunner(opts RunOptions) (*voyage.Runner, func(), error) {
	interactive := opts.Stdin == nil && opts.Stdout == nil && IsInteractive()

	r := &voyage.Runner{Headless: opts.Headless}
	closeIO := func() {}

	if interactive {
		t, err := NewTerminal(opts.HistoryFile)
		if err != nil {
			return nil, nil, err
		}
		closeIO = func() { _ = t.Close() }
		r.Input = t
		r.Output = t
		r.Renderer = tui.NewRenderer()
		if !opts.Headless {
			tui.PrintBanner(os.Stdout)
		}
	} else {
		in, out := opts.Stdin, opts.Stdout
		if in == nil {
			in = os.Stdin
		}
		if out == nil {
			out = os.Stdout
		}
		r.Input = approval.NewScannerReader(in)
		r.Output = out
	}

	r.Trace = NewTracer(r.Output, interactive).Message
	if opts.AutoApprove {
		r.Gate = approval.AutoApprove()
	}
	return r, closeIO, nil
}
