package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewCredentialID(t *testing.T) {
	a, b := NewCredentialID(), NewCredentialID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "c"))
}

func TestNewNonce(t *testing.T) {
	nonce := NewNonce()
	_, err := uuid.Parse(nonce)
	assert.NoError(t, err)
	assert.NotEqual(t, nonce, NewNonce())
}

func TestNewRequestID(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewRequestID(), "req-"))
}

func TestNewConferenceRequestID(t *testing.T) {
	id := NewConferenceRequestID()
	assert.True(t, strings.HasPrefix(id, "crm-"))
	assert.NotEqual(t, id, NewConferenceRequestID())
}
