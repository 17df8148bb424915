package storage

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches an ID or prefix.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAmbiguousID is returned when an ID prefix matches several sessions.
	ErrAmbiguousID = errors.New("session id prefix is ambiguous")
)
