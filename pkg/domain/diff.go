package domain

// StateDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Phase is set when the session moved.
	Phase *Phase `json:"phase,omitempty"`

	// Appended contains the messages added since the old snapshot.
	// The conversation is append-only, so a suffix is enough.
	Appended []Message `json:"appended,omitempty"`

	// Output is set when the email was drafted.
	Output *string `json:"output,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{SessionID: newState.SessionID}

	if oldState == nil || oldState.Phase != newState.Phase {
		phase := newState.Phase
		diff.Phase = &phase
	}

	oldLen := 0
	if oldState != nil {
		oldLen = len(oldState.Messages)
	}
	if len(newState.Messages) > oldLen {
		diff.Appended = newState.Messages[oldLen:]
	}

	if newState.Output != "" && (oldState == nil || oldState.Output != newState.Output) {
		out := newState.Output
		diff.Output = &out
	}

	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Phase == nil && len(d.Appended) == 0 && d.Output == nil
}
