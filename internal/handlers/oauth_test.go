package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-connect/internal/events"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
)

func TestConnect_RedirectsToConsent(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/auth/google", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	consent, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", consent.Path)
	assert.Equal(t, "g-id", consent.Query().Get("client_id"))
	assert.Equal(t, "offline", consent.Query().Get("access_type"))
	assert.NotEmpty(t, consent.Query().Get("state"))
}

func TestConnect_JSONMode(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/auth/ringcentral?mode=json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConnectResponse
	decode(t, rec, &resp)
	consent, err := url.Parse(resp.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, "/restapi/oauth/authorize", consent.Path)
	assert.Equal(t, "rc-id", consent.Query().Get("client_id"))
}

func TestConnect_Rejections(t *testing.T) {
	h := newHarness(t)

	rec := h.anonymous(httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/auth/outlook", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "UNKNOWN_PROVIDER", resp.Code)
}

// consentState runs Connect and returns the state the provider would echo
func consentState(t *testing.T, h *harness, provider string) string {
	t.Helper()
	rec := h.do(http.MethodGet, "/auth/"+provider+"?mode=json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ConnectResponse
	decode(t, rec, &resp)
	consent, err := url.Parse(resp.AuthURL)
	require.NoError(t, err)
	return consent.Query().Get("state")
}

func callback(h *harness, provider string, q url.Values) *httptest.ResponseRecorder {
	return h.anonymous(httptest.NewRequest(http.MethodGet, "/auth/"+provider+"/callback?"+q.Encode(), nil))
}

func TestHandshake_EndToEnd(t *testing.T) {
	h := newHarness(t)
	state := consentState(t, h, "google")

	rec := callback(h, "google", url.Values{"code": {"4/abc"}, "state": {state}})
	require.Equal(t, http.StatusFound, rec.Code)

	landing, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "crm.example.com", landing.Host)
	assert.Equal(t, "/calendar", landing.Path)
	assert.Equal(t, "connected", landing.Query().Get("google"))

	cred, err := h.store.Get(context.Background(), rep, models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "rep@example.com", cred.AccountEmail)
	assert.Equal(t, "refresh-4/abc", cred.RefreshToken)
	assert.True(t, cred.AccessExpiry.After(time.Now()))
	assert.Equal(t, []events.Type{events.CredentialConnected}, h.recorder.Types())

	rec = h.do(http.MethodGet, "/auth/google/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status oauth.Status
	decode(t, rec, &status)
	assert.True(t, status.Connected)
	assert.Equal(t, "rep@example.com", status.Email)
	require.NotNil(t, status.ConnectedAt)
}

func TestHandshake_RingCentralLanding(t *testing.T) {
	h := newHarness(t)
	state := consentState(t, h, "ringcentral")

	rec := callback(h, "ringcentral", url.Values{"code": {"rc-code"}, "state": {state}})
	require.Equal(t, http.StatusFound, rec.Code)
	landing, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/dashboard/ringcentral", landing.Path)
	assert.Equal(t, "connected", landing.Query().Get("ringcentral"))

	rec = h.do(http.MethodGet, "/auth/ringcentral/status", nil)
	var status oauth.Status
	decode(t, rec, &status)
	assert.True(t, status.Connected)
	require.NotNil(t, status.AccountInfo)
	assert.Equal(t, "37439510", status.AccountInfo.AccountID)
	assert.Equal(t, "101", status.AccountInfo.ExtensionID)
}

func TestCallback_Failures(t *testing.T) {
	tests := []struct {
		name   string
		query  func(state string) url.Values
		reason string
	}{
		{
			name:   "user denied consent",
			query:  func(state string) url.Values { return url.Values{"error": {"access_denied"}, "state": {state}} },
			reason: "provider_denied",
		},
		{
			name:   "forged state",
			query:  func(string) url.Values { return url.Values{"code": {"c"}, "state": {"not-a-jwt"}} },
			reason: "invalid_state",
		},
		{
			name:   "missing state",
			query:  func(string) url.Values { return url.Values{"code": {"c"}} },
			reason: "invalid_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			state := consentState(t, h, "google")

			rec := callback(h, "google", tt.query(state))
			require.Equal(t, http.StatusFound, rec.Code)

			landing, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "error", landing.Query().Get("google"))
			assert.Equal(t, tt.reason, landing.Query().Get("reason"))
			assert.NotEmpty(t, landing.Query().Get("message"))

			_, err = h.store.Get(context.Background(), rep, models.ProviderGoogle)
			assert.Error(t, err, "nothing is stored for a failed callback")
			assert.Zero(t, h.api.tokenCalls.Load(), "the code is never exchanged")
		})
	}
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	h := newHarness(t)
	state := consentState(t, h, "google")

	first := callback(h, "google", url.Values{"code": {"one"}, "state": {state}})
	require.Equal(t, http.StatusFound, first.Code)

	replay := callback(h, "google", url.Values{"code": {"two"}, "state": {state}})
	landing, err := url.Parse(replay.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "invalid_state", landing.Query().Get("reason"))
	assert.Equal(t, int32(1), h.api.tokenCalls.Load())
}

func TestStatus_NotConnected(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/auth/ringcentral/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status oauth.Status
	decode(t, rec, &status)
	assert.False(t, status.Connected)
	assert.Nil(t, status.ConnectedAt)
}

func TestDisconnect_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderGoogle, "live-token", time.Now().Add(time.Hour))

	rec := h.do(http.MethodDelete, "/auth/google/disconnect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp DisconnectResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Disconnected)

	rec = h.do(http.MethodPost, "/auth/google/disconnect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.False(t, resp.Disconnected)

	assert.Equal(t, []events.Type{events.CredentialDisconnected}, h.recorder.Types())
	assert.Equal(t, int32(1), h.api.revokeCalls.Load())
}
