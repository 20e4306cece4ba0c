package domain

import "errors"

// Call errors. Operations wrap a collaborator cause with one of these so that
// callers classify with errors.Is.
var (
	// ErrAuth indicates no signed-in identity is available.
	ErrAuth = errors.New("no identity available")

	// ErrConcurrentCall indicates a call was attempted while one is active.
	ErrConcurrentCall = errors.New("another call is already active")

	// ErrMediaFailure indicates local media could not be acquired.
	ErrMediaFailure = errors.New("media failure")

	// ErrSignalingFailure indicates a signaling event could not be sent.
	ErrSignalingFailure = errors.New("signaling failure")

	// ErrNotFound indicates an unknown or stale call id.
	ErrNotFound = errors.New("call not found")

	// ErrTransportFailure indicates a peer connection or ICE failure.
	ErrTransportFailure = errors.New("transport failure")

	// ErrTimeout indicates an invite or ICE deadline passed.
	ErrTimeout = errors.New("call timed out")
)
