package event

import "context"

// Handler processes a single delivered event. The dispatcher retries a
// handler error according to its own policy; a nil return acknowledges
// the event.
type Handler func(ctx context.Context, e Event) error

// Source delivers events to a subscription. Implementations guarantee
// per-stream ordering and at-least-once delivery; duplicates and
// redeliveries are expected and must be tolerated by the handler.
type Source interface {
	// Subscribe registers a handler for the given subscription and
	// begins delivery. Delivery stops when the context is cancelled.
	Subscribe(ctx context.Context, subscriptionID string, h Handler) error
}

// Reader provides bounded access to recent events for window evaluation.
type Reader interface {
	// Recent returns up to limit events for the stream, newest last.
	Recent(ctx context.Context, streamID string, limit int) ([]Event, error)
}
