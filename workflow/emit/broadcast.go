package emit

import "sync"

// DefaultObserverQueue is the per-observer buffer size used when a
// Broadcaster is created with a non-positive queue size.
const DefaultObserverQueue = 64

// Broadcaster fans events out to per-session observers.
//
// Each observer owns a bounded queue; when an observer falls behind, the
// oldest queued event is dropped so that publishing never blocks the
// runtime or other observers. Zero observers is the default state and makes
// Publish a no-op.
//
//	b := emit.NewBroadcaster(0)
//	events, cancel := b.Subscribe("session-1")
//	defer cancel()
//	for ev := range events { ... }
type Broadcaster struct {
	mu        sync.Mutex
	sessions  map[string]map[int]*observer
	nextID    int
	queueSize int

	// onDrop, when set, is invoked once per dropped event.
	onDrop func(sessionID string)
}

type observer struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewBroadcaster creates a Broadcaster whose observers buffer up to
// queueSize events each (DefaultObserverQueue when <= 0).
func NewBroadcaster(queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = DefaultObserverQueue
	}
	return &Broadcaster{
		sessions:  make(map[string]map[int]*observer),
		queueSize: queueSize,
	}
}

// OnDrop registers a callback invoked whenever an observer's queue overflow
// forces an event drop. Intended for metrics; the callback must not block.
func (b *Broadcaster) OnDrop(fn func(sessionID string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDrop = fn
}

// Subscribe registers an observer for a session and returns its event
// channel plus a cancel function. The channel is closed on cancel.
func (b *Broadcaster) Subscribe(sessionID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	obs := &observer{ch: make(chan Event, b.queueSize)}
	id := b.nextID
	b.nextID++

	if b.sessions[sessionID] == nil {
		b.sessions[sessionID] = make(map[int]*observer)
	}
	b.sessions[sessionID][id] = obs

	cancel := func() {
		b.mu.Lock()
		if subs, ok := b.sessions[sessionID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.sessions, sessionID)
			}
		}
		b.mu.Unlock()

		obs.mu.Lock()
		if !obs.closed {
			obs.closed = true
			close(obs.ch)
		}
		obs.mu.Unlock()
	}

	return obs.ch, cancel
}

// Publish delivers the event to every observer of the session. Publishing
// to a session with no observers does nothing.
func (b *Broadcaster) Publish(sessionID string, event Event) {
	b.mu.Lock()
	subs := make([]*observer, 0, len(b.sessions[sessionID]))
	for _, obs := range b.sessions[sessionID] {
		subs = append(subs, obs)
	}
	onDrop := b.onDrop
	b.mu.Unlock()

	for _, obs := range subs {
		if !obs.push(event) && onDrop != nil {
			onDrop(sessionID)
		}
	}
}

// Emit implements Emitter, routing by the event's SessionID.
func (b *Broadcaster) Emit(event Event) {
	b.Publish(event.SessionID, event)
}

// ObserverCount returns the number of observers for a session.
func (b *Broadcaster) ObserverCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions[sessionID])
}

// push enqueues without blocking. When the queue is full the oldest event
// is discarded to make room. Returns false if a drop occurred.
func (o *observer) push(event Event) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return true
	}

	select {
	case o.ch <- event:
		return true
	default:
	}

	// Queue full: shed the oldest entry, then retry once.
	select {
	case <-o.ch:
	default:
	}
	select {
	case o.ch <- event:
	default:
	}
	return false
}
