package emit

// Emitter receives observability events from workflow execution.
//
// Implementations must be:
//   - Non-blocking: a slow backend must not stall the workflow
//   - Thread-safe: events arrive concurrently from many correlations
//   - Resilient: failures are absorbed, never panicked back into the runtime
type Emitter interface {
	// Emit delivers one event. Implementations should buffer, drop, or
	// forward asynchronously rather than block the caller.
	Emit(event Event)
}

// NullEmitter discards all events. It is the default sink when no observer
// is configured.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}
