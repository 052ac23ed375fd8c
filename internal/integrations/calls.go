package integrations

import (
	"context"

	"crm-connect/internal/models"
	"crm-connect/internal/providers/ringcentral"
)

const callOutPath = "/restapi/v1.0/account/~/telephony/call-out"

type rcCallOutRequest struct {
	From rcNumber   `json:"from"`
	To   []rcNumber `json:"to"`
}

type rcCallOutResponse struct {
	Session struct {
		ID      string `json:"id"`
		Parties []struct {
			Status struct {
				Code string `json:"code"`
			} `json:"status"`
		} `json:"parties"`
	} `json:"session"`
}

// MakeCall rings the From number first and connects it to To once answered
func (s *Service) MakeCall(ctx context.Context, owner models.Owner, req models.CallRequest) (*models.CallSession, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	body := rcCallOutRequest{
		From: rcNumber{PhoneNumber: req.From},
		To:   []rcNumber{{PhoneNumber: req.To}},
	}

	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (*models.CallSession, error) {
		var res rcCallOutResponse
		if err := h.Post(ctx, callOutPath, body, &res); err != nil {
			return nil, err
		}
		status := ""
		if len(res.Session.Parties) > 0 {
			status = res.Session.Parties[0].Status.Code
		}
		if status == "" {
			status = "Initiated"
		}
		return &models.CallSession{ID: res.Session.ID, Status: status}, nil
	})
}
