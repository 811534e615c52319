package workflow

import "github.com/dshills/reflectgraph/workflow/model"

// Status is the state-machine position of one correlation. Transitions are
// applied only by the runtime's dispatch loop, so no locking is needed on
// the record itself beyond the arena map.
type Status int

const (
	// StatusPendingGeneration means the Primary executor owns the next hop.
	StatusPendingGeneration Status = iota
	// StatusPendingReview means the Reviewer executor owns the next hop.
	StatusPendingReview
	// StatusApproved is terminal: the reviewer accepted a candidate.
	StatusApproved
	// StatusFailed is terminal: a capability failure ended the correlation.
	StatusFailed
	// StatusBoundExceeded is terminal: the refinement bound was reached and
	// the most recent candidate was delivered with a degraded marker.
	StatusBoundExceeded
	// StatusCancelled is terminal: the caller cancelled before delivery.
	StatusCancelled
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusPendingGeneration:
		return "pending_generation"
	case StatusPendingReview:
		return "pending_review"
	case StatusApproved:
		return "approved"
	case StatusFailed:
		return "failed"
	case StatusBoundExceeded:
		return "bound_exceeded"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusFailed, StatusBoundExceeded, StatusCancelled:
		return true
	}
	return false
}

// correlation is the runtime-owned record for one in-flight request. It is
// created when a RequestEnvelope is accepted and destroyed at termination.
// Only the correlation's own dispatch goroutine touches it.
type correlation struct {
	id        string
	sessionID string
	status    Status

	// refinements counts rejection cycles for the bound check.
	refinements int

	// lastCandidate is the most recent candidate, kept so a bound-exceeded
	// terminal can still deliver something.
	lastCandidate []model.Message
	lastFeedback  string

	turn Turn
}
