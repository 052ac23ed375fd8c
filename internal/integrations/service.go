// Package integrations holds the CRM's provider API calls. Every call goes
// through the OAuth executor, so a handle is built per call from a credential
// that is valid at that moment and a rejected token is refreshed and retried
// once.
package integrations

import (
	"context"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/common/validation"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
	"crm-connect/internal/providers/google"
	"crm-connect/internal/providers/ringcentral"
)

// Service exposes Calendar, Gmail and RingCentral operations for an owner
type Service struct {
	executor *oauth.Executor
	validate *validation.Validator
	logger   logging.Logger
}

func NewService(executor *oauth.Executor, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Service{
		executor: executor,
		validate: validation.New(),
		logger:   logger.WithFields(logging.Field{"component", "integrations"}),
	}
}

func googleHandle(handle oauth.Handle) (*google.Handle, error) {
	h, ok := handle.(*google.Handle)
	if !ok {
		return nil, errors.InternalError("google operation received a foreign handle", nil)
	}
	return h, nil
}

func ringCentralHandle(handle oauth.Handle) (*ringcentral.Handle, error) {
	h, ok := handle.(*ringcentral.Handle)
	if !ok {
		return nil, errors.InternalError("ringcentral operation received a foreign handle", nil)
	}
	return h, nil
}

func withGoogle[T any](ctx context.Context, s *Service, owner models.Owner, fn func(context.Context, *google.Handle) (T, error)) (T, error) {
	return oauth.Call(ctx, s.executor, owner, models.ProviderGoogle, func(ctx context.Context, handle oauth.Handle) (T, error) {
		var zero T
		h, err := googleHandle(handle)
		if err != nil {
			return zero, err
		}
		return fn(ctx, h)
	})
}

func withRingCentral[T any](ctx context.Context, s *Service, owner models.Owner, fn func(context.Context, *ringcentral.Handle) (T, error)) (T, error) {
	return oauth.Call(ctx, s.executor, owner, models.ProviderRingCentral, func(ctx context.Context, handle oauth.Handle) (T, error) {
		var zero T
		h, err := ringCentralHandle(handle)
		if err != nil {
			return zero, err
		}
		return fn(ctx, h)
	})
}
