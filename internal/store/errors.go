package store

import "errors"

// ErrNotFound is returned by any repository Get when no row matches.
var ErrNotFound = errors.New("store: not found")

// ErrForbidden is returned when an operation targets a resource the caller
// does not own (route not owned by operator, etc).
var ErrForbidden = errors.New("store: forbidden")

// ErrConflict is returned when a write cannot proceed because of existing
// dependent state (duplicate unique key, stale version, ...).
var ErrConflict = errors.New("store: conflict")
