// Package scripted provides deterministic chat models that need no network.
// Model is the offline travel agent used by demos and end-to-end tests; Queue
// replays a fixed list of responses and records every request.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
)

// ErrExhausted is returned by Queue once every response was consumed.
var ErrExhausted = errors.New("scripted responses exhausted")

// Model is a rule-based travel agent. On the first model step after a human
// message it requests flights_finder and/or hotels_finder depending on the
// words of the message; once the results are in, it answers with them. When
// called without tools it drafts an email from the given message.
type Model struct{}

// New creates the offline model.
func New() *Model {
	return &Model{}
}

// Chat implements ports.ChatModel.
func (m *Model) Chat(ctx context.Context, req ports.ChatRequest) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if len(req.Tools) == 0 {
		return domain.AIMessage(draftEmail(req.Messages)), nil
	}

	query, results := turn(req.Messages)
	if len(results) > 0 {
		return domain.AIMessage("Here is what I found: " + strings.Join(results, ", ") + "."), nil
	}

	calls := plan(query, req.Tools)
	if len(calls) == 0 {
		return domain.AIMessage("I can look up flights and hotels for you. Where are you headed?"), nil
	}
	return domain.AIMessage("", calls...), nil
}

// turn returns the latest human message and the tool results that followed it.
func turn(msgs []domain.Message) (string, []string) {
	var results []string
	for i := len(msgs) - 1; i >= 0; i-- {
		switch msgs[i].Role {
		case domain.RoleTool:
			results = append([]string{msgs[i].Content}, results...)
		case domain.RoleHuman:
			return msgs[i].Content, results
		}
	}
	return "", results
}

func plan(query string, available []domain.Tool) []domain.ToolCall {
	q := strings.ToLower(query)
	bound := make(map[string]bool, len(available))
	for _, t := range available {
		bound[t.Name] = true
	}

	var calls []domain.ToolCall
	if strings.Contains(q, "flight") && bound["flights_finder"] {
		calls = append(calls, domain.ToolCall{
			Name: "flights_finder",
			Args: map[string]any{"start": "", "end": ""},
		})
	}
	if strings.Contains(q, "hotel") && bound["hotels_finder"] {
		calls = append(calls, domain.ToolCall{Name: "hotels_finder", Args: map[string]any{}})
	}
	for i := range calls {
		calls[i].ID = fmt.Sprintf("toolu_%02d", i+1)
	}
	return calls
}

func draftEmail(msgs []domain.Message) string {
	body := ""
	if len(msgs) > 0 {
		body = msgs[len(msgs)-1].Content
	}
	if strings.TrimSpace(body) == "" {
		body = "We have no travel details to share yet."
	}
	return "Subject: Your travel plans\n\nHello,\n\n" + body + "\n\nBest regards,\nYour travel agency"
}

// Queue replays responses in order. It is safe for concurrent use.
type Queue struct {
	mu        sync.Mutex
	responses []domain.Message
	errs      map[int]error
	requests  []ports.ChatRequest
}

// NewQueue creates a model answering with the given responses in order.
func NewQueue(responses ...domain.Message) *Queue {
	return &Queue{responses: responses, errs: make(map[int]error)}
}

// FailAt makes the n-th call (zero based) return err instead of a response.
// The response queued for that position is not consumed.
func (q *Queue) FailAt(n int, err error) *Queue {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs[n] = err
	return q
}

// Chat implements ports.ChatModel.
func (q *Queue) Chat(ctx context.Context, req ports.ChatRequest) (domain.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.requests)
	q.requests = append(q.requests, ports.ChatRequest{
		System:   req.System,
		Messages: domain.CloneMessages(req.Messages),
		Tools:    req.Tools,
	})
	if err, ok := q.errs[n]; ok {
		return domain.Message{}, err
	}
	if len(q.responses) == 0 {
		return domain.Message{}, ErrExhausted
	}
	resp := q.responses[0]
	q.responses = q.responses[1:]
	return resp, nil
}

// Requests returns a copy of the requests received so far.
func (q *Queue) Requests() []ports.ChatRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ports.ChatRequest, len(q.requests))
	copy(out, q.requests)
	return out
}

// Remaining returns how many responses are left.
func (q *Queue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.responses)
}
