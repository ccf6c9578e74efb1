package ports

import (
	"context"

	"github.com/aretw0/voyage/pkg/domain"
)

// ApprovalGate is the external capability that releases the email step.
// AwaitApproval blocks until a decision is made for the session or the
// context is done.
type ApprovalGate interface {
	AwaitApproval(ctx context.Context, sessionID string) (domain.ApprovalDecision, error)
}
