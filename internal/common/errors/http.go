package errors

import "net/http"

// HTTPStatus maps an error to the status code the API responds with.
// Provider pass-through errors keep the status the provider returned.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Type {
	case ErrTypeValidation, ErrTypeInvalidState:
		return http.StatusBadRequest
	case ErrTypeAuth, ErrTypeAuthExpired:
		return http.StatusUnauthorized
	case ErrTypeProviderDenied:
		return http.StatusForbidden
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeNotConnected, ErrTypeReauthRequired:
		return http.StatusConflict
	case ErrTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrTypeTransient, ErrTypeConnection:
		return http.StatusServiceUnavailable
	case ErrTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrTypeProvider:
		if status, ok := appErr.Context["status"].(int); ok && status >= 400 {
			return status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NeedsReconnect reports whether the user has to run the consent flow again
func NeedsReconnect(err error) bool {
	return IsType(err, ErrTypeNotConnected) ||
		IsType(err, ErrTypeReauthRequired) ||
		IsType(err, ErrTypeAuthExpired)
}
