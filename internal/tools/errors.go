package tools

import "errors"

// Sentinel errors for tool registration and dispatch.
var (
	// ErrToolNotFound indicates the requested tool doesn't exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolAlreadyRegistered indicates a duplicate registration.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrInvalidArgs indicates the model supplied malformed arguments.
	ErrInvalidArgs = errors.New("invalid tool arguments")

	// ErrNotConfirmed indicates a confirmation-gated tool was invoked
	// without its confirm flag.
	ErrNotConfirmed = errors.New("confirmation required")

	// ErrMissingPrerequisite indicates a tool was invoked before the
	// project state it reads was produced.
	ErrMissingPrerequisite = errors.New("missing prerequisite")
)
