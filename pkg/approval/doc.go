// Package approval provides implementations of ports.ApprovalGate, the
// capability that releases a session paused before the email step.
package approval
