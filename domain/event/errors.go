package event

import "errors"

// Domain errors for event delivery.
var (
	// ErrInvalidEvent indicates an event is missing required fields.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrStreamNotFound indicates the requested stream does not exist.
	ErrStreamNotFound = errors.New("stream not found")
)
