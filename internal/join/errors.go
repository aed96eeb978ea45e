package join

import "errors"

// Sentinel errors returned by Driver, per spec §7/§12.
var (
	// ErrFatalIO signals that a mesh could not be decoded at all — the
	// whole NearestNeighbor/Intersect call stops and returns it.
	ErrFatalIO = errors.New("join: fatal I/O error retrieving mesh")
	// ErrInvariantViolation is raised when an internal invariant the
	// driver depends on (walk-order alignment between pack and scatter,
	// a Range narrowing the wrong direction) is violated.
	// Driver.NearestNeighbor and Driver.Intersect recover panics into
	// this sentinel rather than crashing the caller.
	ErrInvariantViolation = errors.New("join: invariant violation")
	// ErrResourceExhausted is returned when the context is canceled
	// while waiting on the CPU gate; accelerator requests never wait.
	ErrResourceExhausted = errors.New("join: resource exhausted")
)
