package server

import "errors"

// Common errors in the server package
var (
	// ErrMissingSessionID is returned when a request does not name a session
	ErrMissingSessionID = errors.New("missing session_id")

	// ErrSessionClosed is returned when attempting to use a closed session
	ErrSessionClosed = errors.New("session is closed")
)
