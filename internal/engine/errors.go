package engine

import "errors"

// ErrInvariantViolation means the engine observed state that the lifecycle
// rules make impossible, such as two non-resolved alerts for one brand. It
// indicates a concurrency-control failure upstream and must never be
// reconciled silently.
var ErrInvariantViolation = errors.New("alert invariant violation")
