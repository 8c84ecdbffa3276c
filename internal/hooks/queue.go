package hooks

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// Handler processes a single event. Returning an error aborts the
// dispatch cycle and surfaces the error to the caller; transient
// conditions are expressed with Result.Defer instead.
type Handler func(ctx context.Context, ev Event) (Result, error)

// Queue is a single-threaded event dispatcher with defer-for-redelivery
// semantics. One event is handled to completion before the next is
// dispatched. Deferred events keep their relative order but always sort
// after events that were already queued when the cycle started.
type Queue struct {
	logger  logr.Logger
	handler Handler

	pending  []Event
	deferred []Event
}

func NewQueue(logger logr.Logger, handler Handler) *Queue {
	return &Queue{
		logger:  logger.WithName("hooks"),
		handler: handler,
	}
}

// Submit enqueues a fresh event for the next cycle.
func (q *Queue) Submit(ev Event) {
	if ev.Attempt == 0 {
		ev.Attempt = 1
	}
	q.pending = append(q.pending, ev)
}

// Len reports how many events are waiting, including deferred ones.
func (q *Queue) Len() int {
	return len(q.pending) + len(q.deferred)
}

// Cycle dispatches every event that is currently pending, then moves
// deferred events back onto the queue after any events submitted while
// the cycle ran.
func (q *Queue) Cycle(ctx context.Context) error {
	batch := q.pending
	q.pending = nil

	for _, ev := range batch {
		if err := ctx.Err(); err != nil {
			q.pending = append(q.pending, ev)
			continue
		}

		res, err := q.handler(ctx, ev)
		if err != nil {
			return errors.Wrapf(err, "dispatching %s", ev)
		}
		if res.Defer {
			q.logger.V(1).Info("event deferred", "event", ev.String(), "attempt", ev.Attempt)
			ev.Attempt++
			q.deferred = append(q.deferred, ev)
		}
	}

	q.pending = append(q.pending, q.deferred...)
	q.deferred = nil
	return nil
}

// Settle runs cycles until the queue is empty or no event made progress
// during a full cycle (everything re-deferred), whichever comes first.
func (q *Queue) Settle(ctx context.Context) error {
	for len(q.pending) > 0 {
		before := snapshot(q.pending)
		if err := q.Cycle(ctx); err != nil {
			return err
		}
		if sameEvents(before, q.pending) {
			q.logger.V(1).Info("queue did not settle, leaving remaining events for redelivery",
				"remaining", len(q.pending))
			return nil
		}
	}
	return nil
}

// Drain removes and returns every event still waiting, typically to
// persist them for a later process invocation.
func (q *Queue) Drain() []Event {
	out := append(q.pending, q.deferred...)
	q.pending, q.deferred = nil, nil
	return out
}

func snapshot(evs []Event) []Event {
	out := make([]Event, len(evs))
	copy(out, evs)
	return out
}

func sameEvents(a, b []Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Relation != b[i].Relation || a[i].App != b[i].App {
			return false
		}
	}
	return true
}
