package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/reflectgraph/workflow/emit"
	"github.com/dshills/reflectgraph/workflow/model"
	"github.com/dshills/reflectgraph/workflow/session"
)

// Workflow is the reflection runtime. It owns the edge set between the
// Primary and Reviewer executors, the per-correlation state arena, and the
// conversation history; executors own nothing between invocations.
//
// Within one correlation, dispatch is strictly sequential: the loop only
// advances after the current hop's outbound messages are accepted, so
// Primary and Reviewer never run concurrently for the same request. Across
// correlations there is no shared lock beyond the arena map, so distinct
// requests run fully in parallel.
type Workflow struct {
	primary  Executor
	reviewer Executor

	emitter     emit.Emitter
	broadcaster *emit.Broadcaster
	store       session.Store
	metrics     *Metrics

	maxRefinements int
	hopTimeout     time.Duration

	mu    sync.Mutex
	arena map[string]*correlation
}

// Result is the terminal outcome of one submitted turn.
type Result struct {
	// CorrelationID identifies the request across events and logs.
	CorrelationID string

	// Text is the delivered response.
	Text string

	// Degraded is true when Text is the most recent unapproved candidate,
	// delivered because the refinement bound was exhausted.
	Degraded bool

	// Feedback is the reviewer's last guidance. On approval it is the
	// acknowledgment; on a degraded result it is the outstanding criticism.
	Feedback string

	// Attempts counts generation rounds, including the first.
	Attempts int
}

// New wires the reflection graph: primary → reviewer on ReviewRequest,
// reviewer → primary on rejected ReviewDecision. Approvals terminate at the
// runtime; neither executor reaches the caller directly.
func New(primary, reviewer Executor, opts ...Option) (*Workflow, error) {
	if primary == nil || reviewer == nil {
		return nil, fmt.Errorf("workflow requires both a primary and a reviewer executor")
	}
	if primary.ID() == reviewer.ID() {
		return nil, fmt.Errorf("executors must have distinct IDs, both are %q", primary.ID())
	}

	w := &Workflow{
		primary:        primary,
		reviewer:       reviewer,
		emitter:        emit.NewNullEmitter(),
		maxRefinements: DefaultMaxRefinements,
		arena:          make(map[string]*correlation),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.broadcaster != nil && w.metrics != nil {
		w.broadcaster.OnDrop(func(string) { w.metrics.RecordEventDropped() })
	}
	return w, nil
}

// Submit runs one user turn to its terminal outcome: an approved response,
// a degraded response after the refinement bound, or an error. Exactly one
// of those happens per call; Submit never hangs on rejection loops.
//
// Cancelling ctx abandons the turn at the next suspension point. An
// in-flight model call may still complete, but its result is discarded and
// history is untouched.
func (w *Workflow) Submit(ctx context.Context, sessionID, userText string) (Result, error) {
	rec, err := w.admit(ctx, sessionID, userText)
	if err != nil {
		return Result{}, err
	}
	return w.run(ctx, rec, w.fanout())
}

// SubmitStream is Submit with intermediate events. The returned channel
// yields progress events for the turn and closes after the terminal event
// (final_result or error). Failures are reported as error events rather
// than a second return path; callers needing the Result should use Submit.
// Events arrive at executor-hop granularity; token-level agent_token events
// appear only when a custom executor streams its own output.
func (w *Workflow) SubmitStream(ctx context.Context, sessionID, userText string) (<-chan emit.Event, error) {
	rec, err := w.admit(ctx, sessionID, userText)
	if err != nil {
		return nil, err
	}

	ch := make(chan emit.Event, 128)
	sink := multiEmitter{w.fanout(), chanEmitter(ch)}

	go func() {
		defer close(ch)
		_, _ = w.run(ctx, rec, sink)
	}()
	return ch, nil
}

// Inflight returns the number of live correlations.
func (w *Workflow) Inflight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.arena)
}

// admit loads session history and creates the correlation record. The
// correlation ID is fresh per turn and never reused.
func (w *Workflow) admit(ctx context.Context, sessionID, userText string) (*correlation, error) {
	if userText == "" {
		return nil, fmt.Errorf("user text must not be empty")
	}

	var history []model.Message
	if w.store != nil {
		var err error
		history, err = w.store.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session history: %w", err)
		}
	}

	rec := &correlation{
		id:        uuid.NewString(),
		sessionID: sessionID,
		status:    StatusPendingGeneration,
		turn:      Turn{History: history, UserText: userText},
	}

	w.mu.Lock()
	w.arena[rec.id] = rec
	w.mu.Unlock()

	w.metrics.CorrelationStarted()
	return rec, nil
}

// run is the dispatch loop for one correlation. It processes the queue in
// strict arrival order; messages arriving after a terminal transition are
// drained and dropped, never re-dispatched.
func (w *Workflow) run(ctx context.Context, rec *correlation, sink emit.Emitter) (result Result, err error) {
	defer w.release(rec)

	queue := []Message{RequestEnvelope{CorrelationID: rec.id, Turn: rec.turn}}
	attempts := 0

	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]

		if rec.status.Terminal() {
			w.dropLate(rec, msg, sink)
			continue
		}

		if cerr := ctx.Err(); cerr != nil {
			return Result{}, w.fail(ctx, rec, fmt.Errorf("turn cancelled (correlation %s): %w", rec.id, cerr), sink)
		}

		switch m := msg.(type) {
		case RequestEnvelope:
			if verr := w.requireStatus(ctx, rec, StatusPendingGeneration, m, sink); verr != nil {
				return Result{}, verr
			}
			attempts++
			out, herr := w.invoke(ctx, w.primary, m, rec, sink)
			if herr != nil {
				return Result{}, w.fail(ctx, rec, herr, sink)
			}
			queue = append(queue, w.acceptPrimaryOutbox(rec, out)...)

		case ReviewRequest:
			if verr := w.requireStatus(ctx, rec, StatusPendingReview, m, sink); verr != nil {
				return Result{}, verr
			}
			out, herr := w.invoke(ctx, w.reviewer, m, rec, sink)
			if herr != nil {
				return Result{}, w.fail(ctx, rec, herr, sink)
			}
			queue = append(queue, out...)

		case ReviewDecision:
			switch rec.status {
			case StatusPendingReview:
				// Fresh verdict from the reviewer.
				w.metrics.RecordDecision(m.Approved)
				rec.lastFeedback = m.Feedback

				if m.Approved {
					result, err = w.deliver(ctx, rec, StatusApproved, attempts, sink)
					continue // drain any stragglers before returning
				}

				rec.refinements++
				if rec.refinements > w.maxRefinements {
					result, err = w.deliver(ctx, rec, StatusBoundExceeded, attempts, sink)
					continue
				}

				rec.status = StatusPendingGeneration
				queue = append(queue, m) // feedback hop back to primary

			case StatusPendingGeneration:
				// Feedback hop: the rejected decision drives regeneration.
				attempts++
				out, herr := w.invoke(ctx, w.primary, m, rec, sink)
				if herr != nil {
					return Result{}, w.fail(ctx, rec, herr, sink)
				}
				queue = append(queue, w.acceptPrimaryOutbox(rec, out)...)

			default:
				if verr := w.requireStatus(ctx, rec, StatusPendingReview, m, sink); verr != nil {
					return Result{}, verr
				}
			}

		default:
			return Result{}, w.fail(ctx, rec, &ProtocolViolationError{
				ExecutorID:    "runtime",
				CorrelationID: rec.id,
				State:         rec.status.String(),
				Msg:           fmt.Sprintf("unknown message type %T", msg),
			}, sink)
		}
	}

	if !rec.status.Terminal() {
		// The queue drained without a terminal transition: an executor
		// produced no outbound message.
		return Result{}, w.fail(ctx, rec, &ProtocolViolationError{
			ExecutorID:    "runtime",
			CorrelationID: rec.id,
			State:         rec.status.String(),
			Msg:           "workflow stalled without a terminal outcome",
		}, sink)
	}
	return result, err
}

// invoke runs one executor hop and returns its staged outbound messages.
func (w *Workflow) invoke(ctx context.Context, ex Executor, msg Message, rec *correlation, sink emit.Emitter) ([]Message, error) {
	hopCtx := ctx
	if w.hopTimeout > 0 {
		var cancel context.CancelFunc
		hopCtx, cancel = context.WithTimeout(ctx, w.hopTimeout)
		defer cancel()
	}

	ec := newExecContext(ex.ID(), rec.id, rec.sessionID, rec.turn, sink)

	start := time.Now()
	err := ex.Handle(hopCtx, msg, ec)
	status := "success"
	if err != nil {
		status = "error"
	}
	w.metrics.RecordHop(ex.ID(), time.Since(start), status)

	if err != nil {
		return nil, err
	}
	return ec.drain(), nil
}

// acceptPrimaryOutbox applies the generation-hop transition: a staged
// ReviewRequest moves the correlation to pending_review and its candidate
// is retained for a possible degraded delivery.
func (w *Workflow) acceptPrimaryOutbox(rec *correlation, out []Message) []Message {
	for _, m := range out {
		if req, ok := m.(ReviewRequest); ok {
			rec.lastCandidate = req.Candidate
			rec.status = StatusPendingReview
		}
	}
	return out
}

// deliver performs the terminal transition for an approved or degraded
// outcome: history is appended, the final event is emitted, and the result
// is built. This is the only place conversation history grows.
func (w *Workflow) deliver(ctx context.Context, rec *correlation, terminal Status, attempts int, sink emit.Emitter) (Result, error) {
	degraded := terminal == StatusBoundExceeded

	text := CandidateText(rec.lastCandidate)

	// The terminal transition waits on the history write: a failed append
	// must route through fail so observers still see a terminal event.
	if w.store != nil {
		err := w.store.Append(ctx, rec.sessionID,
			model.Message{Role: model.RoleUser, Content: rec.turn.UserText},
			model.Message{Role: model.RoleAssistant, Content: text},
		)
		if err != nil {
			return Result{}, w.fail(ctx, rec, fmt.Errorf("failed to persist history (correlation %s): %w", rec.id, err), sink)
		}
	}
	rec.status = terminal

	sink.Emit(emit.Event{
		Type:          emit.TypeFinalResult,
		SessionID:     rec.sessionID,
		CorrelationID: rec.id,
		Text:          text,
		Degraded:      degraded,
		Feedback:      rec.lastFeedback,
	})

	kind := "approved"
	if degraded {
		kind = "degraded"
	}
	w.metrics.RecordTerminal(kind)

	return Result{
		CorrelationID: rec.id,
		Text:          text,
		Degraded:      degraded,
		Feedback:      rec.lastFeedback,
		Attempts:      attempts,
	}, nil
}

// fail marks the correlation failed and emits the error event. Failures are
// surfaced to the caller exactly once, never silently retried. An error
// carrying the caller's own cancellation is classified as cancelled, even
// when it surfaced mid-hop wrapped in a GenerationError.
func (w *Workflow) fail(ctx context.Context, rec *correlation, err error, sink emit.Emitter) error {
	if rec.status.Terminal() {
		return err
	}
	rec.status = StatusFailed

	kind := "internal"
	var pv *ProtocolViolationError
	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		kind = "cancelled"
		rec.status = StatusCancelled
	case IsGenerationError(err):
		kind = "generation"
	case errors.As(err, &pv):
		kind = "protocol"
	}

	sink.Emit(emit.Event{
		Type:          emit.TypeError,
		SessionID:     rec.sessionID,
		CorrelationID: rec.id,
		ErrKind:       kind,
		Text:          err.Error(),
	})
	if kind == "cancelled" {
		w.metrics.RecordTerminal("cancelled")
	} else {
		w.metrics.RecordTerminal("failed")
	}
	return err
}

// requireStatus enforces the state machine: a message arriving in the wrong
// state is a protocol violation and fails the correlation fast.
func (w *Workflow) requireStatus(ctx context.Context, rec *correlation, want Status, msg Message, sink emit.Emitter) error {
	if rec.status == want {
		return nil
	}
	return w.fail(ctx, rec, &ProtocolViolationError{
		ExecutorID:    "runtime",
		CorrelationID: rec.id,
		State:         rec.status.String(),
		Msg:           fmt.Sprintf("%T not valid in state %s", msg, rec.status),
	}, sink)
}

// dropLate discards a message that arrived after the terminal transition.
// Duplicate decisions are announced so the idempotent drop is observable;
// no state changes, no history append, no second terminal event.
func (w *Workflow) dropLate(rec *correlation, msg Message, sink emit.Emitter) {
	if _, ok := msg.(ReviewDecision); ok {
		sink.Emit(emit.Event{
			Type:          emit.TypeDecisionDropped,
			SessionID:     rec.sessionID,
			CorrelationID: rec.id,
		})
	}
}

// release destroys the correlation record and settles metrics.
func (w *Workflow) release(rec *correlation) {
	w.mu.Lock()
	delete(w.arena, rec.id)
	w.mu.Unlock()
	w.metrics.CorrelationEnded(rec.refinements)
}

// fanout builds the event sink for a run: the configured emitter plus the
// broadcaster when one is attached.
func (w *Workflow) fanout() emit.Emitter {
	if w.broadcaster == nil {
		return w.emitter
	}
	return multiEmitter{w.emitter, w.broadcaster}
}

// multiEmitter fans one event to several sinks.
type multiEmitter []emit.Emitter

func (m multiEmitter) Emit(event emit.Event) {
	for _, e := range m {
		e.Emit(event)
	}
}

// chanEmitter delivers events to a channel without ever blocking the
// runtime; events beyond the buffer are dropped.
type chanEmitter chan emit.Event

func (c chanEmitter) Emit(event emit.Event) {
	select {
	case c <- event:
	default:
	}
}
