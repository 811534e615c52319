// Package session provides persistence for per-session conversation history.
package session

import (
	"context"

	"github.com/dshills/reflectgraph/workflow/model"
)

// Store persists conversation history per caller session.
//
// The workflow runtime is the only writer: it loads history when a request
// is submitted and appends the user/assistant pair at terminal delivery.
// Executors never touch the store directly.
//
// Implementations:
//   - MemStore: in-process map, for tests and single-process use
//   - SQLiteStore: single-file database, zero-setup persistence
//   - MySQLStore: shared database for multi-process deployments
type Store interface {
	// Get returns the session's history in insertion order. An unknown
	// session is not an error; it returns an empty history.
	Get(ctx context.Context, sessionID string) ([]model.Message, error)

	// Append adds messages to the end of the session's history.
	Append(ctx context.Context, sessionID string, msgs ...model.Message) error

	// Clear removes all history for the session.
	Clear(ctx context.Context, sessionID string) error
}
