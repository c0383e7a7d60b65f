package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional write affects no rows because
// the record is already in the requested state.
var ErrConflict = errors.New("conflict")
