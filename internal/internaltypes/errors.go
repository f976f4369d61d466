package internaltypes

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConfiguration marks a missing or malformed widget configuration at init.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport marks a failed scheduling-service call.
	ErrTransport = errors.New("transport error")

	// ErrGuardRejected is returned for a submit while the submit control is loading or succeeded.
	ErrGuardRejected = errors.New("submission rejected by guard")
)
