package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/reactor-go/domain/event"
)

// EventStream is an in-memory event log with subscription delivery. It
// assigns global positions on append and fans events out to all
// subscribers synchronously, which makes it deterministic for tests.
type EventStream struct {
	mu       sync.RWMutex
	events   []event.Event
	handlers map[string][]event.Handler
	next     int64
}

// NewEventStream creates an in-memory event stream.
func NewEventStream() *EventStream {
	return &EventStream{
		handlers: make(map[string][]event.Handler),
	}
}

// Append assigns the next global position and delivers the event to
// every registered handler. The last handler error is returned; all
// handlers are invoked regardless.
func (s *EventStream) Append(ctx context.Context, e event.Event) (event.Event, error) {
	s.mu.Lock()
	e.GlobalPosition = s.next
	s.next++
	s.events = append(s.events, e)
	var hs []event.Handler
	for _, subs := range s.handlers {
		hs = append(hs, subs...)
	}
	s.mu.Unlock()

	var lastErr error
	for _, h := range hs {
		if err := h(ctx, e); err != nil {
			lastErr = err
		}
	}
	return e, lastErr
}

// Subscribe registers a handler for the subscription. Delivery is
// synchronous from Append; the context bounds nothing here.
func (s *EventStream) Subscribe(ctx context.Context, subscriptionID string, h event.Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[subscriptionID] = append(s.handlers[subscriptionID], h)
	return nil
}

// Recent returns up to limit events for the stream, newest last.
func (s *EventStream) Recent(ctx context.Context, streamID string, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if streamID == "" || e.StreamID == streamID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Ensure EventStream implements the event source and reader surfaces.
var (
	_ event.Source = (*EventStream)(nil)
	_ event.Reader = (*EventStream)(nil)
)
