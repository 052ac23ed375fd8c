package oauth2

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"crm-connect/internal/circuitbreaker"
	"crm-connect/internal/common/errors"
)

// SafetyMargin is how long before its recorded expiry an access token is
// already treated as expired
const SafetyMargin = 5 * time.Minute

// TokenError is an error response from a token endpoint (RFC 6749 5.2)
type TokenError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token endpoint returned %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("token endpoint returned %d %s", e.StatusCode, e.Code)
}

// Revoked reports whether the grant itself is no longer usable. Rate
// limiting and request timeouts are 4xx but say nothing about the grant.
func (e *TokenError) Revoked() bool {
	if e.Code == "invalid_grant" {
		return true
	}
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// classifyRefreshError maps anything a refresh can fail with onto
// reauth_required or transient
func classifyRefreshError(provider string, err error) error {
	if err == nil {
		return nil
	}
	switch errors.GetType(err) {
	case errors.ErrTypeReauthRequired, errors.ErrTypeTransient, errors.ErrTypeNotConnected:
		return err
	}

	var tokenErr *TokenError
	if stderrors.As(err, &tokenErr) {
		if tokenErr.Revoked() {
			return errors.ReauthRequiredError(provider, err).WithContext("reason", tokenErr.Code)
		}
		return errors.TransientRefreshError(provider, err).WithContext("status", tokenErr.StatusCode)
	}

	if circuitbreaker.IsRejection(err) {
		return errors.TransientRefreshError(provider, err).WithContext("reason", "circuit_open")
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TransientRefreshError(provider, err).WithContext("reason", "timeout")
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.TransientRefreshError(provider, err).WithContext("reason", "network")
	}
	return errors.TransientRefreshError(provider, err)
}

// classifyExchangeError maps a failed authorization code exchange. A rejected
// code is the caller's problem (400); anything else is a provider outage.
func classifyExchangeError(provider string, err error) error {
	var tokenErr *TokenError
	if stderrors.As(err, &tokenErr) && tokenErr.StatusCode >= 400 && tokenErr.StatusCode < 500 {
		return errors.ProviderAPIError(provider, http.StatusBadRequest, err).
			WithCode("CODE_EXCHANGE_REJECTED").
			WithContext("reason", tokenErr.Code)
	}
	if errors.GetType(err) == errors.ErrTypeProvider {
		return err
	}
	return errors.ConnectionError(provider+" code exchange failed", err)
}
