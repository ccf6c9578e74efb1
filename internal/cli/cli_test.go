package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/voyage/internal/config"
	"github.com/aretw0/voyage/internal/logging"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Offline = true
	cfg.SessionDir = t.TempDir()
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	app, err := NewApp(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRun_ApprovedEmail(t *testing.T) {
	app := newTestApp(t, offlineConfig(t))
	var out bytes.Buffer

	err := Run(app, RunOptions{
		SessionID: "123",
		Stdin:     strings.NewReader("book a flight to chicago\ny\n"),
		Stdout:    &out,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "enter your query: ")
	assert.Contains(t, text, "-> flights_finder(")
	assert.Contains(t, text, "<- flights_finder: chicago flight")
	assert.Contains(t, text, "send the email? [y/N]: ")
	assert.Contains(t, text, "Subject: Your travel plans")
	assert.NotContains(t, text, "\x1b[", "no colors outside a terminal")

	state, err := app.Agent.State(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailDone, state.Phase)
}

func TestRun_SecondRunOnSameThreadStartsOver(t *testing.T) {
	cfg := offlineConfig(t)
	var out bytes.Buffer

	err := Run(newTestApp(t, cfg), RunOptions{
		SessionID: "123",
		Stdin:     strings.NewReader("book a flight to chicago\ny\n"),
		Stdout:    &out,
	})
	require.NoError(t, err)

	// A later invocation reuses the default thread checkpointed on disk.
	app := newTestApp(t, cfg)
	out.Reset()
	err = Run(app, RunOptions{
		SessionID: "123",
		Stdin:     strings.NewReader("now a hotel\ny\n"),
		Stdout:    &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "<- hotels_finder: radisson hotel")
	assert.Contains(t, out.String(), "Subject: Your travel plans")
	assert.NotContains(t, out.String(), "chicago flight")

	state, err := app.Agent.State(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailDone, state.Phase)
	assert.Equal(t, "now a hotel", state.Messages[0].Content)
}

func TestRun_HeadlessThenResume(t *testing.T) {
	cfg := offlineConfig(t)
	app := newTestApp(t, cfg)
	var out bytes.Buffer

	err := Run(app, RunOptions{
		SessionID: "h1",
		Headless:  true,
		Stdin:     strings.NewReader("a hotel please\n"),
		Stdout:    &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "awaiting approval to send the email (session h1)")
	assert.NotContains(t, out.String(), "offline mode")

	// A second process picks the session up from disk.
	app2 := newTestApp(t, cfg)
	out.Reset()
	err = Resume(app2, RunOptions{SessionID: "h1", AutoApprove: true, Stdout: &out, Stdin: strings.NewReader("")})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "radisson hotel")
}

func TestRun_EOFIsNotAnError(t *testing.T) {
	app := newTestApp(t, offlineConfig(t))
	var out bytes.Buffer

	err := Run(app, RunOptions{SessionID: "e", Stdin: strings.NewReader(""), Stdout: &out})
	assert.NoError(t, err)
}

func TestRun_RejectedEmail(t *testing.T) {
	app := newTestApp(t, offlineConfig(t))
	var out bytes.Buffer

	err := Run(app, RunOptions{
		SessionID: "r",
		Stdin:     strings.NewReader("flight\nn\n"),
		Stdout:    &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "email not sent")

	state, err := app.Agent.State(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailPending, state.Phase)
}

func TestNewApp_RedisWithEncryption(t *testing.T) {
	mr := miniredis.RunT(t)
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	cfg := offlineConfig(t)
	cfg.Store = config.StoreRedis
	cfg.RedisAddr = mr.Addr()
	cfg.EncryptionKey = key
	app := newTestApp(t, cfg)

	ctx := context.Background()
	_, err := app.Agent.Invoke(ctx, "enc", "flight to chicago")
	require.NoError(t, err)

	// Stored bytes are sealed.
	var raw string
	for _, k := range mr.Keys() {
		if strings.HasSuffix(k, "enc") {
			raw, err = mr.Get(k)
			require.NoError(t, err)
		}
	}
	require.NotEmpty(t, raw)
	assert.NotContains(t, raw, "chicago flight")
	assert.Contains(t, raw, "enc:v1:")

	// The agent still reads it back.
	state, err := app.Agent.State(ctx, "enc")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEmailPending, state.Phase)
}

func TestNewApp_MaskPII(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Store = config.StoreMemory
	cfg.MaskPII = true
	app := newTestApp(t, cfg)

	ctx := context.Background()
	_, err := app.Agent.Invoke(ctx, "p", "flight for jane@example.com")
	require.NoError(t, err)

	state, err := app.Agent.State(ctx, "p")
	require.NoError(t, err)
	assert.NotContains(t, state.Messages[0].Content, "jane@example.com")
	assert.Contains(t, state.Messages[0].Content, "***")
}

func TestNewApp_MetricsRegistry(t *testing.T) {
	app := newTestApp(t, offlineConfig(t))
	_, err := app.Agent.Invoke(context.Background(), "m", "hotel")
	require.NoError(t, err)

	families, err := app.Metrics.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["voyage_tool_calls_total"])
	assert.True(t, names["go_goroutines"])
}

func TestNewApp_InvalidKey(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.EncryptionKey = "bm90LWEta2V5"
	_, err := NewApp(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestSessionCommands(t *testing.T) {
	app := newTestApp(t, offlineConfig(t))
	ctx := context.Background()
	_, err := app.Agent.Invoke(ctx, "s1", "flight")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, ListSessions(ctx, app, &out))
	assert.Contains(t, out.String(), "SESSION")
	assert.Contains(t, out.String(), "email_pending")

	out.Reset()
	require.NoError(t, InspectSession(ctx, app, &out, "s1"))
	assert.Contains(t, out.String(), `"phase": "email_pending"`)

	out.Reset()
	require.NoError(t, RemoveSession(ctx, app, &out, "s1"))
	assert.Contains(t, out.String(), "Session 's1' removed.")

	assert.ErrorIs(t, RemoveSession(ctx, app, &out, "s1"), domain.ErrSessionNotFound)

	out.Reset()
	require.NoError(t, ListSessions(ctx, app, &out))
	assert.Contains(t, out.String(), "No active sessions found.")
}

func TestTracer(t *testing.T) {
	var out bytes.Buffer
	tr := NewTracer(&out, false)

	tr.Message(domain.AIMessage("", domain.ToolCall{ID: "1", Name: "hotels_finder", Args: map[string]any{"query": "chicago", "adults": 2}}))
	tr.Message(domain.ToolMessage("1", "hotels_finder", "radisson hotel"))
	failed := domain.ToolMessage("2", "nope", "tool error: unknown tool, retry")
	failed.IsError = true
	tr.Message(failed)
	tr.Message(domain.HumanMessage("ignored"))

	assert.Equal(t, "-> hotels_finder(adults=2, query=chicago)\n"+
		"<- hotels_finder: radisson hotel\n"+
		"<- nope failed: tool error: unknown tool, retry\n", out.String())

	out.Reset()
	NewTracer(&out, true).Message(domain.ToolMessage("1", "flights_finder", "chicago flight"))
	assert.Contains(t, out.String(), "\x1b[")
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(context.Canceled))
	assert.NoError(t, handleExecutionError(nil))
	assert.ErrorIs(t, handleExecutionError(domain.ErrStepLimit), domain.ErrStepLimit)
}
