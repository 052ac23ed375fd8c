package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/events"
	"crm-connect/internal/models"
	"crm-connect/internal/signature"
)

// ringCentralNotification is the envelope of a push notification
type ringCentralNotification struct {
	UUID           string          `json:"uuid"`
	Event          string          `json:"event"`
	Timestamp      string          `json:"timestamp"`
	SubscriptionID string          `json:"subscriptionId"`
	OwnerID        string          `json:"ownerId"`
	Body           json.RawMessage `json:"body"`
}

// candidates returns the ids that may identify the credential, most specific
// first: the extension in the event filter, the subscription owner, then the
// account
func (n ringCentralNotification) candidates() []string {
	var ids []string
	add := func(id string) {
		if id == "" || id == "~" {
			return
		}
		for _, seen := range ids {
			if seen == id {
				return
			}
		}
		ids = append(ids, id)
	}

	segments := strings.Split(strings.Trim(strings.SplitN(n.Event, "?", 2)[0], "/"), "/")
	var account string
	for i := 0; i+1 < len(segments); i++ {
		switch segments[i] {
		case "extension":
			add(segments[i+1])
		case "account":
			account = segments[i+1]
		}
	}
	add(n.OwnerID)
	add(account)
	return ids
}

// RingCentralWebhook accepts push notifications for connected accounts
// @Summary RingCentral webhook
// @Description Echoes Validation-Token during subscription setup. Other requests must carry a valid X-RingCentral-Signature and are published as webhook.ringcentral events for the owning credential.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Validation-Token header string false "Subscription handshake token"
// @Param X-RingCentral-Signature header string false "HMAC-SHA256 of the body"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /webhooks/ringcentral [post]
func (h *Handlers) RingCentralWebhook(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithContext(r.Context()).WithFields(logging.Field{"provider", string(models.ProviderRingCentral)})

	if token := signature.ValidationToken(r); token != "" {
		logger.Info("Confirmed webhook subscription")
		w.Header().Set(signature.ValidationTokenHeader, token)
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := signature.PreserveRequestBody(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	if err := h.verifier.Verify(r, body); err != nil {
		logger.Warn("Rejected webhook signature", logging.Field{"remote", r.RemoteAddr})
		h.sendError(w, r, err)
		return
	}

	var notification ringCentralNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		h.sendError(w, r, errors.ValidationError("invalid notification body"))
		return
	}

	cred, err := h.ownerOf(r, notification)
	if err != nil {
		if !errors.IsType(err, errors.ErrTypeNotFound) {
			h.sendError(w, r, err)
			return
		}
		// Unknown owners are acknowledged so the platform stops redelivering
		logger.Warn("Webhook for an account with no stored credential",
			logging.Field{"event", notification.Event},
			logging.Field{"owner_id", notification.OwnerID},
		)
		sendJSON(w, http.StatusOK, map[string]interface{}{"received": true, "matched": false})
		return
	}

	ev := events.ForCredential(events.RingCentralWebhook, cred).
		With("event", notification.Event).
		With("subscription_id", notification.SubscriptionID).
		With("notification_id", notification.UUID)
	if len(notification.Body) > 0 {
		ev = ev.With("body", notification.Body)
	}
	h.emitter.Emit(r.Context(), ev)

	logger.Debug("Webhook accepted",
		logging.Field{"event", notification.Event},
		logging.Field{"owner", cred.Owner.Key()},
	)
	sendJSON(w, http.StatusOK, map[string]interface{}{"received": true, "matched": true})
}

func (h *Handlers) ownerOf(r *http.Request, n ringCentralNotification) (*models.Credential, error) {
	ids := n.candidates()
	if len(ids) == 0 {
		return nil, errors.NotFoundError("credential")
	}
	var lastErr error
	for _, id := range ids {
		cred, err := h.store.FindByProviderAccount(r.Context(), models.ProviderRingCentral, id)
		if err == nil {
			return cred, nil
		}
		if !errors.IsType(err, errors.ErrTypeNotFound) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
