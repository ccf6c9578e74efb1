package ports

import (
	"context"

	"github.com/aretw0/voyage/pkg/domain"
)

// ChatRequest is what the loop sends to a language model.
type ChatRequest struct {
	// System is the instruction placed before the conversation.
	System string

	// Messages is the ordered conversation (without the system instruction).
	Messages []domain.Message

	// Tools are the descriptors the model may call. Empty means plain chat.
	Tools []domain.Tool
}

// ChatModel is the external language model collaborator.
// The wire protocol is owned by the implementation; the loop only defines the
// message shapes it sends and expects.
type ChatModel interface {
	// Chat returns the model's response, which may be text, tool calls or both.
	Chat(ctx context.Context, req ChatRequest) (domain.Message, error)
}

// ChatModelFunc adapts a function to the ChatModel interface.
type ChatModelFunc func(ctx context.Context, req ChatRequest) (domain.Message, error)

// Chat calls f(ctx, req).
func (f ChatModelFunc) Chat(ctx context.Context, req ChatRequest) (domain.Message, error) {
	return f(ctx, req)
}
