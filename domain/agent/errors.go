package agent

import "errors"

// Domain errors for the agent lifecycle and configuration.
var (
	// ErrInvalidStatus indicates an unrecognized lifecycle state.
	ErrInvalidStatus = errors.New("invalid lifecycle status")

	// ErrInvalidTransition indicates a lifecycle event not valid in the
	// current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrMissingAgentID indicates a config without an agent ID.
	ErrMissingAgentID = errors.New("agent id is required")

	// ErrMissingSubscriptionID indicates a config without a subscription ID.
	ErrMissingSubscriptionID = errors.New("subscription id is required")

	// ErrHandlerVariant indicates the handler union is malformed: the
	// agent declares neither an onEvent handler nor patterns, or both.
	ErrHandlerVariant = errors.New("config must declare exactly one of onEvent handler or patterns")

	// ErrInvalidThreshold indicates a confidence threshold outside [0,1].
	ErrInvalidThreshold = errors.New("confidence threshold must be in [0,1]")

	// ErrCheckpointNotFound indicates no checkpoint exists for the
	// (agent, subscription) pair.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)
