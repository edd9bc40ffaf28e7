// Package repository keeps operator-facing records outside the server
// process. The event store itself is in memory and never persisted; the
// repositories here only mirror state for dashboards and tooling.
package repository

import "errors"

// ErrNotFound is returned when a record does not exist. The ops
// directory endpoint answers it with 404.
var ErrNotFound = errors.New("not found")
