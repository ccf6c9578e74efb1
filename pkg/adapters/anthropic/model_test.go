package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
	"github.com/aretw0/voyage/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessages_GroupsToolResults(t *testing.T) {
	conv := []domain.Message{
		domain.HumanMessage("book me a flight and a hotel"),
		domain.AIMessage("on it",
			domain.ToolCall{ID: "a", Name: "flights_finder", Args: map[string]any{"start": "NYC"}},
			domain.ToolCall{ID: "b", Name: "hotels_finder"},
		),
		domain.ToolMessage("a", "flights_finder", "chicago flight"),
		domain.ToolMessage("b", "hotels_finder", "radisson hotel"),
	}

	sys, msgs, err := toMessages("be nice", conv)
	require.NoError(t, err)
	require.Len(t, sys, 1)
	assert.Equal(t, "be nice", sys[0].Text)

	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Len(t, msgs[1].Content, 3, "text plus two tool uses")
	assert.Equal(t, "user", string(msgs[2].Role))
	assert.Len(t, msgs[2].Content, 2, "both results in a single turn")

	raw, err := json.Marshal(msgs[2])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tool_use_id":"a"`)
	assert.Contains(t, string(raw), `"tool_use_id":"b"`)
}

func TestToMessages_SkipsEmptyText(t *testing.T) {
	conv := []domain.Message{
		domain.HumanMessage(""),
		domain.HumanMessage("a hotel please"),
		domain.AIMessage(" ", domain.ToolCall{ID: "h", Name: "hotels_finder"}),
	}

	_, msgs, err := toMessages("", conv)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].Content, 1)
	assert.Equal(t, "a hotel please", msgs[0].Content[0].OfText.Text)
	require.Len(t, msgs[1].Content, 1, "tool use only")
	assert.NotNil(t, msgs[1].Content[0].OfToolUse)
}

func TestToMessages_RejectsUnknownRole(t *testing.T) {
	_, _, err := toMessages("", []domain.Message{{Role: "robot"}})
	assert.Error(t, err)
}

func TestToTools(t *testing.T) {
	out := toTools(tools.Default().Descriptors())
	require.Len(t, out, 2)

	raw, err := json.Marshal(out[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"flights_finder"`)
	assert.Contains(t, string(raw), `"required":["start","end"]`)
	assert.Contains(t, string(raw), `"type":"object"`)
}

func TestChat_RoundTrip(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_1", "name": "flights_finder", "input": {"start": "NYC", "end": "CHI"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	m := New("test-key",
		WithModel("claude-sonnet-4-5"),
		WithMaxTokens(256),
		WithRequestOptions(option.WithBaseURL(srv.URL), option.WithMaxRetries(0)),
	)

	resp, err := m.Chat(context.Background(), ports.ChatRequest{
		System:   "You are a smart travel agency.",
		Messages: []domain.Message{domain.HumanMessage("book me a flight")},
		Tools:    tools.Default().Descriptors(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleAI, resp.Role)
	assert.Equal(t, "Let me check.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "flights_finder", resp.ToolCalls[0].Name)
	assert.Equal(t, "NYC", resp.ToolCalls[0].Args["start"])

	assert.Equal(t, "claude-sonnet-4-5", body["model"])
	assert.EqualValues(t, 256, body["max_tokens"])
	assert.Len(t, body["tools"], 2)
}

func TestChat_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"nope"}}`)
	}))
	defer srv.Close()

	m := New("k", WithRequestOptions(option.WithBaseURL(srv.URL), option.WithMaxRetries(0)))
	_, err := m.Chat(context.Background(), ports.ChatRequest{Messages: []domain.Message{domain.HumanMessage("hi")}})
	assert.ErrorContains(t, err, "anthropic")
}
