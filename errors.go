package dbmock

import "errors"

var (
	// ErrUnsupportedOperation is returned when a setup names an operation the
	// mapper does not offer, or one whose result type cannot be produced.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrMalformedCall is returned when SetupCall is not given a mapper
	// function itself (nil, not a function, or a function literal wrapping it).
	ErrMalformedCall = errors.New("malformed call")

	// ErrNotConfigured is returned when a command is issued before any setup.
	ErrNotConfigured = errors.New("connection has no setup")

	// ErrOperationMismatch is returned when a command kind does not match the
	// configured operation, e.g. Exec on a connection set up for Query.
	ErrOperationMismatch = errors.New("operation mismatch")

	// ErrResultAlreadySet is returned when a setup's result is configured twice.
	ErrResultAlreadySet = errors.New("result already configured")

	// ErrNoResult is returned when a command runs before its setup has a result.
	ErrNoResult = errors.New("setup has no result configured")

	// ErrInvalidResult is returned when a result does not fit the operation.
	ErrInvalidResult = errors.New("invalid result")

	// ErrTypeMismatch is returned when a projected value cannot be scanned
	// into the destination.
	ErrTypeMismatch = errors.New("type mismatch")
)
