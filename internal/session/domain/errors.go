package domain

import "errors"

var (
	// ErrMissingSession means the payment step was reached without a stored
	// checkout session. Unexpected and not recoverable by retrying.
	ErrMissingSession = errors.New("missing checkout session")
	// ErrSessionCreation means the provider refused to start a session.
	ErrSessionCreation = errors.New("checkout session creation failed")
)
