package handlers

import (
	"encoding/json"
	"net/http"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	Code      string `json:"code,omitempty"`
	Reconnect bool   `json:"reconnect,omitempty"`
}

func sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// sendError renders err with the status HTTPStatus assigns to it. Internal
// failures are logged and reported without their cause.
func (h *Handlers) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	resp := ErrorResponse{Error: "internal server error"}

	if appErr, ok := errors.As(err); ok {
		resp.Type = string(appErr.Type)
		resp.Code = appErr.Code
		if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable || appErr.Type == errors.ErrTypeProvider {
			resp.Error = appErr.Message
		}
	}
	resp.Reconnect = errors.NeedsReconnect(err)

	logger := h.logger.WithContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, logging.Field{"path", r.URL.Path}, logging.Field{"status", status})
	} else {
		logger.Debug("Request rejected", logging.Field{"path", r.URL.Path}, logging.Field{"status", status}, logging.Err(err))
	}

	sendJSON(w, status, resp)
}
