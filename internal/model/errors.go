package model

import "errors"

var (
	// ErrNotFound is returned when a session, record or rule does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStateConflict is returned when a mutation expected an UNLINKED
	// record and found something else.
	ErrStateConflict = errors.New("record is no longer unlinked")
	// ErrInvalidInput marks caller mistakes (bad filter, bad rule).
	ErrInvalidInput = errors.New("invalid input")
)
