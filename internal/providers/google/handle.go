package google

import (
	"context"
	"net/http"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
)

// Handle is bound to one access token. Services built from it are cheap and
// must not outlive the operation they were built for.
type Handle struct {
	token   string
	options []option.ClientOption
	client  *http.Client
}

func (h *Handle) Provider() models.Provider { return models.ProviderGoogle }

// AccessToken is exposed for tests and diagnostics
func (h *Handle) AccessToken() string { return h.token }

// HTTPClient sends the bearer token on every request
func (h *Handle) HTTPClient() *http.Client { return h.client }

func (h *Handle) Calendar(ctx context.Context) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, h.options...)
	if err != nil {
		return nil, errors.InternalError("failed to create calendar client", err)
	}
	return svc, nil
}

func (h *Handle) Gmail(ctx context.Context) (*gmail.Service, error) {
	svc, err := gmail.NewService(ctx, h.options...)
	if err != nil {
		return nil, errors.InternalError("failed to create gmail client", err)
	}
	return svc, nil
}

// APIError maps a Calendar or Gmail failure onto the provider error type
// while keeping the googleapi.Error reachable for IsAuthFailure
func APIError(err error) error {
	if err == nil {
		return nil
	}
	return apiError(err)
}
