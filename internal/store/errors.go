// Package store holds the in-memory event store shared by every session
// worker. These sentinel values let callers such as the session workers
// and the ops handlers distinguish failure kinds with errors.Is. On the
// pipe protocol every one of them collapses into a nonzero status code,
// so the reason only survives in the server log.
package store

import "errors"

// ErrNotInitialized is returned when an operation is invoked on a nil
// store.
var ErrNotInitialized = errors.New("event store not initialized")

// ErrAlreadyExists is returned by Create when the event id is taken.
var ErrAlreadyExists = errors.New("event already exists")

// ErrNotFound is returned when no event has the requested id.
var ErrNotFound = errors.New("event not found")

// ErrOutOfBounds is returned by Reserve when a seat coordinate falls
// outside the event's grid. The grid is left untouched.
var ErrOutOfBounds = errors.New("seat out of bounds")

// ErrSeatTaken is returned by Reserve when a requested seat already holds
// a reservation id. The grid is left untouched.
var ErrSeatTaken = errors.New("seat already reserved")

// ErrAllocationFailed is returned by Create when the grid cannot be
// allocated: rows*cols overflows or exceeds MaxSeats.
var ErrAllocationFailed = errors.New("failed to allocate seat grid")

// ErrInvalidDimensions is returned by Create for a zero row or column
// count.
var ErrInvalidDimensions = errors.New("event must have at least one row and one column")

// ErrNoSeats is returned by Reserve for an empty seat list.
var ErrNoSeats = errors.New("no seats requested")
