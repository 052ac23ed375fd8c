// Package utils holds small helpers shared across the service: identifier
// generation and retry with backoff.
package utils

import (
	"github.com/google/uuid"
	"github.com/lucsky/cuid"
)

// NewCredentialID returns a collision-resistant id for a stored credential.
func NewCredentialID() string {
	return cuid.New()
}

// NewConferenceRequestID returns the idempotency key for a Meet conference
// request.
func NewConferenceRequestID() string {
	return "crm-" + cuid.New()
}

// NewNonce returns a random single-use value for OAuth state.
func NewNonce() string {
	return uuid.NewString()
}

// NewRequestID returns an id for request correlation.
func NewRequestID() string {
	return "req-" + uuid.NewString()
}
