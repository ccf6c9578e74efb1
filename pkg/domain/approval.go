package domain

// ApprovalDecision is the answer of an external actor to the approval gate.
type ApprovalDecision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// Approve is the decision that releases the email step.
func Approve() ApprovalDecision {
	return ApprovalDecision{Approved: true}
}

// Reject keeps the session paused.
func Reject(reason string) ApprovalDecision {
	return ApprovalDecision{Approved: false, Reason: reason}
}
