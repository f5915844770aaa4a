// Package events implements the internal event bus: durable persistence of
// domain events, a synchronous best-effort processing attempt, and the
// handlers that turn billing events into workflow and notification
// side-effects. Events that fail processing stay in the log for the sweeper.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"agencydesk/internal/types"
)

// EventStore is the subset of db.EventRepo the emitter needs.
type EventStore interface {
	Insert(ctx context.Context, spec types.EventSpec) (*types.InternalEvent, error)
	MarkProcessed(ctx context.Context, eventID string) error
	MarkError(ctx context.Context, eventID string, message string) error
}

// EventProcessor consumes a persisted internal event. Implemented by
// Processor in this package.
type EventProcessor interface {
	Process(ctx context.Context, ev *types.InternalEvent) error
}

// Emitter persists internal events and attempts to process them in-line.
// The two concerns are split into Persist and TryProcessNow so callers (and
// the sweeper) can drive them independently: persistence must succeed for an
// event to exist, while a failed processing attempt only marks the row and
// never propagates to the producer.
type Emitter struct {
	store     EventStore
	processor EventProcessor
	logger    *slog.Logger
}

// NewEmitter creates an Emitter over the given store and processor.
func NewEmitter(store EventStore, processor EventProcessor, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		store:     store,
		processor: processor,
		logger:    logger,
	}
}

// Persist durably records the event in status 'pending'.
func (e *Emitter) Persist(ctx context.Context, spec types.EventSpec) (*types.InternalEvent, error) {
	ev, err := e.store.Insert(ctx, spec)
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "internal event persisted",
		"event_id", ev.ID,
		"event_type", ev.EventType,
		"entity_type", ev.EntityType,
		"entity_id", ev.EntityID,
	)
	return ev, nil
}

// TryProcessNow runs the processor against a persisted event and records the
// terminal status. A handler failure (or panic) marks the row 'error' and is
// returned for logging; it is an expected outcome, the sweeper retries it.
// A failure to record the outcome itself is also returned: the event then
// stays 'pending' and is likewise retried.
func (e *Emitter) TryProcessNow(ctx context.Context, ev *types.InternalEvent) error {
	procErr := e.runProcessor(ctx, ev)
	if procErr != nil {
		if markErr := e.store.MarkError(ctx, ev.ID, procErr.Error()); markErr != nil {
			e.logger.ErrorContext(ctx, "failed to record event processing error",
				"event_id", ev.ID,
				"error", markErr,
			)
		}
		ev.Status = types.EventStatusError
		ev.ErrorMessage = procErr.Error()
		return procErr
	}

	if markErr := e.store.MarkProcessed(ctx, ev.ID); markErr != nil {
		return markErr
	}
	ev.Status = types.EventStatusProcessed
	return nil
}

// Emit is the producer convenience: Persist then TryProcessNow. The returned
// processed flag reports whether the synchronous attempt succeeded; the
// error is only non-nil when persistence itself failed.
func (e *Emitter) Emit(ctx context.Context, spec types.EventSpec) (ev *types.InternalEvent, processed bool, err error) {
	ev, err = e.Persist(ctx, spec)
	if err != nil {
		return nil, false, err
	}

	if procErr := e.TryProcessNow(ctx, ev); procErr != nil {
		e.logger.WarnContext(ctx, "synchronous event processing failed; left for sweeper",
			"event_id", ev.ID,
			"event_type", ev.EventType,
			"error", procErr,
		)
		return ev, false, nil
	}
	return ev, true, nil
}

// runProcessor invokes the processor with panic containment. A panicking
// handler must not take down the producing request.
func (e *Emitter) runProcessor(ctx context.Context, ev *types.InternalEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return e.processor.Process(ctx, ev)
}
