package emit

import "sync"

// BufferedEmitter stores events in memory, keyed by correlation ID.
//
// It exists for tests, debugging, and post-hoc analysis of a request's path
// through the workflow. Events accumulate until cleared; do not use it as a
// long-lived production sink.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit stores the event under its correlation ID.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.CorrelationID] = append(b.events[event.CorrelationID], event)
}

// ByCorrelation returns all events recorded for a correlation, in emission
// order. The returned slice is a copy.
func (b *BufferedEmitter) ByCorrelation(correlationID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[correlationID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// ByType returns all events of the given type for a correlation, in
// emission order.
func (b *BufferedEmitter) ByType(correlationID, eventType string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, event := range b.events[correlationID] {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// All returns every recorded event across correlations.
func (b *BufferedEmitter) All() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, events := range b.events {
		result = append(result, events...)
	}
	return result
}

// Clear removes events for one correlation, or all events when
// correlationID is empty.
func (b *BufferedEmitter) Clear(correlationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if correlationID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, correlationID)
}
