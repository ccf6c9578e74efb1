package domain

import "time"

// Phase is the position of a session in the conversation loop.
type Phase string

const (
	PhaseModelStep    Phase = "model_step"    // The model is about to be called
	PhaseToolStep     Phase = "tool_step"     // The latest model response requested tools
	PhaseEmailPending Phase = "email_pending" // Paused before the email step, waiting for approval
	PhaseEmailDone    Phase = "email_done"    // Sink state, the email was drafted
)

// Paused reports whether the phase is the approval pause.
func (p Phase) Paused() bool {
	return p == PhaseEmailPending
}

// Terminal reports whether the phase is the sink state.
func (p Phase) Terminal() bool {
	return p == PhaseEmailDone
}

// State represents the current snapshot of a session.
type State struct {
	// SessionID is the thread identifier the state belongs to.
	SessionID string `json:"session_id"`

	// Phase is the current position in the loop.
	Phase Phase `json:"phase"`

	// Messages is the append-only conversation. Its order is the model's context window.
	Messages []Message `json:"messages"`

	// Output holds the drafted email once Phase is PhaseEmailDone.
	Output string `json:"output,omitempty"`

	// Steps counts the steps executed since the last human message.
	Steps int `json:"steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a clean state at the entry phase.
func NewState(sessionID string) *State {
	now := time.Now().UTC()
	return &State{
		SessionID: sessionID,
		Phase:     PhaseModelStep,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Last returns the latest message of the conversation.
func (s *State) Last() (Message, bool) {
	if s == nil || len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone returns a deep copy of the state, so stores can isolate their data
// from callers.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = CloneMessages(s.Messages)
	return &c
}
