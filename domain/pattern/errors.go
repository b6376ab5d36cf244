package pattern

import "errors"

// Domain errors for pattern configuration and evaluation.
var (
	// ErrUnnamedPattern indicates a definition without a name.
	ErrUnnamedPattern = errors.New("pattern has no name")

	// ErrNilTrigger indicates a definition without a trigger predicate.
	ErrNilTrigger = errors.New("pattern has no trigger")

	// ErrNoCommandType indicates a definition without an emitted command type.
	ErrNoCommandType = errors.New("pattern has no command type")

	// ErrAnalysisFailed indicates the deep analysis call failed; the
	// caller falls back to rule-based confidence.
	ErrAnalysisFailed = errors.New("pattern analysis failed")
)
