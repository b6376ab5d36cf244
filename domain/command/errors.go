package command

import "errors"

// Domain errors for command recording and routing.
var (
	// ErrCommandNotFound indicates no recorded command with the given key.
	ErrCommandNotFound = errors.New("recorded command not found")

	// ErrNoRoute indicates the router has no entry for the command type.
	ErrNoRoute = errors.New("no route registered for command type")

	// ErrDuplicateRoute indicates a second registration for a command type.
	ErrDuplicateRoute = errors.New("route already registered for command type")

	// ErrTargetNotRegistered indicates the route target is missing from
	// the host command registry.
	ErrTargetNotRegistered = errors.New("target command not registered in host registry")
)
