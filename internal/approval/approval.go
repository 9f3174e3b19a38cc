// Package approval models a pending human confirmation as a
// single-consumer completion handle: resolved exactly once, awaited with a
// caller-supplied context so no approval waits forever by accident. The
// queue and UI that resolve approvals live outside this module.
package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/execguard/execguard/internal/audit"
)

// Pending is one outstanding approval request. Construct with NewPending;
// the zero value is not usable.
type Pending struct {
	ID            string
	AgentID       string
	Kind          audit.Kind
	Command       string
	Code          string
	Language      string
	Reason        string
	ActionLabel   string
	ActionDetails string
	CreatedAt     time.Time

	once     sync.Once
	done     chan struct{}
	approved bool
}

// Request carries the fields describing what is awaiting approval.
type Request struct {
	AgentID       string
	Kind          audit.Kind
	Command       string
	Code          string
	Language      string
	Reason        string
	ActionLabel   string
	ActionDetails string
}

// NewPending creates an unresolved approval with a fresh id.
func NewPending(req Request) *Pending {
	return &Pending{
		ID:            uuid.New().String(),
		AgentID:       req.AgentID,
		Kind:          req.Kind,
		Command:       req.Command,
		Code:          req.Code,
		Language:      req.Language,
		Reason:        req.Reason,
		ActionLabel:   req.ActionLabel,
		ActionDetails: req.ActionDetails,
		CreatedAt:     time.Now().UTC(),
		done:          make(chan struct{}),
	}
}

// Resolve records the human decision. Only the first call counts; it
// returns true if this call resolved the approval and false if it was
// already resolved.
func (p *Pending) Resolve(approved bool) bool {
	resolved := false
	p.once.Do(func() {
		p.approved = approved
		resolved = true
		close(p.done)
	})
	return resolved
}

// Wait blocks until the approval is resolved or ctx ends. Context
// expiration returns ctx.Err with approved=false; the timeout policy
// belongs to the caller.
func (p *Pending) Wait(ctx context.Context) (bool, error) {
	select {
	case <-p.done:
		return p.approved, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Resolved reports whether a decision has been recorded, without blocking.
func (p *Pending) Resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
