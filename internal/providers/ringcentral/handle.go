package ringcentral

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"

	"crm-connect/internal/common/errors"
	commonhttp "crm-connect/internal/common/http"
	"crm-connect/internal/models"
)

// Handle calls the RingCentral REST API with one access token
type Handle struct {
	baseURL string
	token   string
	client  *http.Client
}

func (h *Handle) Provider() models.Provider { return models.ProviderRingCentral }

// AccessToken is exposed for tests and diagnostics
func (h *Handle) AccessToken() string { return h.token }

// APIError is the platform's error document
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("ringcentral API returned %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("ringcentral API returned %d", e.StatusCode)
}

// Get requests path (relative to the server URL) and decodes the JSON answer
func (h *Handle) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := h.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return h.do(ctx, commonhttp.RequestOptions{Method: http.MethodGet, URL: target}, out)
}

// Post sends body as JSON
func (h *Handle) Post(ctx context.Context, path string, body, out interface{}) error {
	return h.do(ctx, commonhttp.RequestOptions{Method: http.MethodPost, URL: h.baseURL + path, Body: body}, out)
}

// Delete removes the resource at path
func (h *Handle) Delete(ctx context.Context, path string) error {
	return h.do(ctx, commonhttp.RequestOptions{Method: http.MethodDelete, URL: h.baseURL + path}, nil)
}

func (h *Handle) do(ctx context.Context, opts commonhttp.RequestOptions, out interface{}) error {
	_, err := commonhttp.DoJSON(ctx, h.client, opts, out)
	if err == nil {
		return nil
	}
	var statusErr *commonhttp.StatusError
	if !stderrors.As(err, &statusErr) {
		return err
	}
	apiErr := &APIError{StatusCode: statusErr.StatusCode}
	_ = json.Unmarshal(statusErr.Body, apiErr)
	return errors.ProviderAPIError(string(models.ProviderRingCentral), statusErr.StatusCode, apiErr).
		WithCode(apiErr.ErrorCode)
}
