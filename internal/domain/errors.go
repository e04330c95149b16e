package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrBusinessNotFound signals a missing business record.
	ErrBusinessNotFound = errors.New("business not found")
	// ErrInvalidRequest signals a malformed request, rejected before any
	// dependency is touched.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCircuitOpen signals a short-circuited dependency call.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrDeadlineExceeded signals a guarded call that missed its budget.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	// ErrGeneratorUnavailable signals an answer-generation failure; the
	// pipeline degrades rather than surfacing it.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)
