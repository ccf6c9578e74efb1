package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

var (
	// ErrNotAIResponse is returned when the decision point is asked to route a
	// conversation whose latest message is not a model response.
	ErrNotAIResponse = errors.New("latest message is not an ai response")

	// ErrSessionComplete is returned when a session already produced its email.
	ErrSessionComplete = errors.New("session already complete")

	// ErrNotPaused is returned when resuming a session that is not waiting for approval.
	ErrNotPaused = errors.New("session is not waiting for approval")

	// ErrApprovalDenied is returned when the approval gate rejects the email step.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrApprovalTimeout is returned when no approval arrives in time.
	ErrApprovalTimeout = errors.New("approval timed out")

	// ErrStepLimit is returned when a session exceeds the configured number of steps.
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrEmptyInput is returned when a human message has no content.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidSessionID is returned by stores that cannot key a session by the given id.
	ErrInvalidSessionID = errors.New("invalid session id")
)
