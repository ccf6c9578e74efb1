package approval

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/voyage/pkg/domain"
)

// ErrAlreadyDecided is returned when a decision is posted twice for a session
// before anyone consumed the first one.
var ErrAlreadyDecided = errors.New("approval already decided")

// Channel is an in-process gate released by Approve, Reject or Decide.
// A decision posted before anyone waits is kept until AwaitApproval consumes it.
type Channel struct {
	mu      sync.Mutex
	pending map[string]chan domain.ApprovalDecision
}

// NewChannel creates an empty in-process gate.
func NewChannel() *Channel {
	return &Channel{pending: make(map[string]chan domain.ApprovalDecision)}
}

func (c *Channel) slot(sessionID string) chan domain.ApprovalDecision {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[sessionID]
	if !ok {
		ch = make(chan domain.ApprovalDecision, 1)
		c.pending[sessionID] = ch
	}
	return ch
}

func (c *Channel) release(sessionID string, ch chan domain.ApprovalDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.pending[sessionID]; ok && cur == ch && len(ch) == 0 {
		delete(c.pending, sessionID)
	}
}

// AwaitApproval implements ports.ApprovalGate.
func (c *Channel) AwaitApproval(ctx context.Context, sessionID string) (domain.ApprovalDecision, error) {
	ch := c.slot(sessionID)
	defer c.release(sessionID, ch)

	select {
	case d := <-ch:
		return d, nil
	case <-ctx.Done():
		return domain.ApprovalDecision{}, ctx.Err()
	}
}

// Decide posts a decision for the session. The lookup and the send happen
// under the lock so a waiter giving up concurrently cannot orphan the slot.
func (c *Channel) Decide(sessionID string, d domain.ApprovalDecision) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[sessionID]
	if !ok {
		ch = make(chan domain.ApprovalDecision, 1)
		c.pending[sessionID] = ch
	}
	select {
	case ch <- d:
		return nil
	default:
		return ErrAlreadyDecided
	}
}

// Approve posts an approval for the session.
func (c *Channel) Approve(sessionID string) error {
	return c.Decide(sessionID, domain.Approve())
}

// Reject posts a rejection for the session.
func (c *Channel) Reject(sessionID, reason string) error {
	return c.Decide(sessionID, domain.Reject(reason))
}

// Waiting reports whether a slot exists for the session, either because
// someone is waiting or because a decision is queued.
func (c *Channel) Waiting(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[sessionID]
	return ok
}
