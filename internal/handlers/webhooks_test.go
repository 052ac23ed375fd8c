package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-connect/internal/events"
	"crm-connect/internal/models"
	"crm-connect/internal/signature"
)

const smsNotification = `{
	"uuid": "8f3a-11",
	"event": "/restapi/v1.0/account/~/extension/101/message-store/instant?type=SMS",
	"timestamp": "2026-10-16T09:00:00.000Z",
	"subscriptionId": "sub-1",
	"ownerId": "101",
	"body": {"id": "555", "direction": "Inbound", "subject": "hello"}
}`

func webhookRequest(t *testing.T, body string, sign bool) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/ringcentral", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		sig, err := signature.Sign([]byte(body), signature.RingCentral(testWebhookSecret).Verifications[0])
		require.NoError(t, err)
		req.Header.Set(signature.RingCentralHeader, sig)
	}
	return req
}

func TestWebhook_ValidationTokenEcho(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/ringcentral", nil)
	req.Header.Set(signature.ValidationTokenHeader, "vt-123")

	rec := h.anonymous(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "vt-123", rec.Header().Get(signature.ValidationTokenHeader))
	assert.Empty(t, h.recorder.Events())
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderRingCentral, "live-token", time.Now().Add(time.Hour))

	rec := h.anonymous(webhookRequest(t, smsNotification, false))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := webhookRequest(t, smsNotification, false)
	req.Header.Set(signature.RingCentralHeader, strings.Repeat("ab", 32))
	rec = h.anonymous(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.recorder.Events())
}

func TestWebhook_PublishesForOwner(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderRingCentral, "live-token", time.Now().Add(time.Hour))

	rec := h.anonymous(webhookRequest(t, smsNotification, true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"matched":true`)

	published := h.recorder.Events()
	require.Len(t, published, 1)
	ev := published[0]
	assert.Equal(t, events.RingCentralWebhook, ev.Type)
	assert.Equal(t, rep.Key(), ev.Owner)
	assert.Equal(t, "37439510", ev.AccountID)
	assert.Equal(t, "sub-1", ev.Data["subscription_id"])
}

func TestWebhook_UnknownOwnerIsAcknowledged(t *testing.T) {
	h := newHarness(t)

	rec := h.anonymous(webhookRequest(t, smsNotification, true))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"matched":false`)
	assert.Empty(t, h.recorder.Events())
}

func TestWebhook_MalformedBody(t *testing.T) {
	h := newHarness(t)

	rec := h.anonymous(webhookRequest(t, `{"event":`, true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationCandidates(t *testing.T) {
	n := ringCentralNotification{
		Event:   "/restapi/v1.0/account/37439510/extension/202/presence",
		OwnerID: "202",
	}
	assert.Equal(t, []string{"202", "37439510"}, n.candidates())

	n = ringCentralNotification{Event: "/restapi/v1.0/account/~/extension/~/message-store"}
	assert.Empty(t, n.candidates())
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t)

	rec := h.anonymous(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	decode(t, rec, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "healthy", health["storage_status"])
	assert.ElementsMatch(t, []interface{}{"google", "ringcentral"}, health["providers"])
}
