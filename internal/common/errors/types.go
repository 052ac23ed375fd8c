package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeConnection represents connection-related errors
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeAuth represents authentication errors against this service
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeRateLimit represents rate limit errors
	ErrTypeRateLimit ErrorType = "rate_limit"
	// ErrTypeStorage represents credential store failures
	ErrTypeStorage ErrorType = "storage"

	// ErrTypeNotConnected means the owner never linked the provider
	ErrTypeNotConnected ErrorType = "not_connected"
	// ErrTypeReauthRequired means the stored grant is unusable and the user must consent again
	ErrTypeReauthRequired ErrorType = "reauth_required"
	// ErrTypeTransient means a refresh failed for reasons that may succeed on retry
	ErrTypeTransient ErrorType = "transient"
	// ErrTypeAuthExpired means the provider rejected a freshly refreshed token
	ErrTypeAuthExpired ErrorType = "auth_expired"
	// ErrTypeInvalidState means an OAuth callback carried a missing, forged, expired or replayed state
	ErrTypeInvalidState ErrorType = "invalid_state"
	// ErrTypeProviderDenied means the user or provider refused consent
	ErrTypeProviderDenied ErrorType = "provider_denied"
	// ErrTypeProvider wraps a non-auth provider API failure that is passed through to the caller
	ErrTypeProvider ErrorType = "provider"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// AuthError creates a new authentication error
func AuthError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
	}
}

// StorageError creates a new credential store error
func StorageError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeStorage,
		Message: msg,
		Cause:   cause,
	}
}

// NotConnectedError reports that no credential exists for the provider
func NotConnectedError(provider string) *AppError {
	return &AppError{
		Type:    ErrTypeNotConnected,
		Message: fmt.Sprintf("%s account is not connected", provider),
	}
}

// ReauthRequiredError reports that the user must go through consent again
func ReauthRequiredError(provider string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeReauthRequired,
		Message: fmt.Sprintf("%s authorization must be renewed", provider),
		Cause:   cause,
	}
}

// TransientRefreshError reports a refresh failure that may succeed later
func TransientRefreshError(provider string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeTransient,
		Message: fmt.Sprintf("%s token refresh temporarily unavailable", provider),
		Cause:   cause,
	}
}

// AuthExpiredError reports that a provider rejected the token even after a forced refresh
func AuthExpiredError(provider string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeAuthExpired,
		Message: fmt.Sprintf("%s rejected the refreshed credentials", provider),
		Cause:   cause,
	}
}

// InvalidStateError reports a rejected OAuth callback state
func InvalidStateError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeInvalidState,
		Message: msg,
	}
}

// ProviderDeniedError reports that consent was refused at the provider
func ProviderDeniedError(provider, reason string) *AppError {
	return &AppError{
		Type:    ErrTypeProviderDenied,
		Message: fmt.Sprintf("%s authorization denied: %s", provider, reason),
	}
}

// ProviderAPIError wraps a provider API failure and keeps its HTTP status
func ProviderAPIError(provider string, status int, cause error) *AppError {
	return (&AppError{
		Type:    ErrTypeProvider,
		Message: fmt.Sprintf("%s API request failed", provider),
		Cause:   cause,
	}).WithContext("status", status)
}

// As returns the outermost AppError in the chain, if any
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil || !stderrors.As(err, &appErr) {
		return nil, false
	}
	return appErr, true
}

// IsType checks if an error, or anything it wraps, is of a specific type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}
