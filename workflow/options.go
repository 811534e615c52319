package workflow

import (
	"time"

	"github.com/dshills/reflectgraph/workflow/emit"
	"github.com/dshills/reflectgraph/workflow/session"
)

// DefaultMaxRefinements bounds the rejection loop. After this many rejected
// cycles the most recent candidate is delivered with a degraded marker
// instead of looping again.
const DefaultMaxRefinements = 3

// Option configures a Workflow.
type Option func(*Workflow)

// WithMaxRefinements sets the rejection-cycle bound. Non-positive values
// keep the default; there is no unbounded mode.
func WithMaxRefinements(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.maxRefinements = n
		}
	}
}

// WithEmitter sets the event sink for progress events. The default discards
// them.
func WithEmitter(e emit.Emitter) Option {
	return func(w *Workflow) {
		if e != nil {
			w.emitter = e
		}
	}
}

// WithBroadcaster attaches a session fan-out so external observers can
// subscribe to progress events. Dropped-event counts feed the workflow
// metrics when both are configured.
func WithBroadcaster(b *emit.Broadcaster) Option {
	return func(w *Workflow) {
		w.broadcaster = b
	}
}

// WithSessionStore sets the conversation-history store. Without one the
// workflow still runs, but every turn starts with empty history and
// approved responses are not persisted.
func WithSessionStore(s session.Store) Option {
	return func(w *Workflow) {
		w.store = s
	}
}

// WithMetrics attaches Prometheus metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(w *Workflow) {
		w.metrics = m
	}
}

// WithGenerationTimeout bounds each executor hop. Zero means hops run under
// the caller's context alone.
func WithGenerationTimeout(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.hopTimeout = d
		}
	}
}
