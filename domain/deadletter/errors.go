package deadletter

import "errors"

// Domain errors for dead-letter handling.
var (
	// ErrDeadLetterNotFound indicates no record for the (agent, event) pair.
	ErrDeadLetterNotFound = errors.New("dead letter not found")

	// ErrInvalidStatusTransition indicates a disposition change from a
	// terminal state, or to pending.
	ErrInvalidStatusTransition = errors.New("invalid dead letter status transition")
)
