package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"crm-connect/internal/auth"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/config"
	"crm-connect/internal/events"
	"crm-connect/internal/integrations"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
	"crm-connect/internal/providers/google"
	"crm-connect/internal/providers/ringcentral"
	"crm-connect/internal/signature"
	"crm-connect/internal/storage"
)

const (
	testFrontend      = "https://crm.example.com"
	testWebhookSecret = "whsec-test-secret"
)

var rep = models.UserOwner("42")

// fakeProviders plays both Google and RingCentral. Only the most recently
// issued access token is accepted by the API routes.
type fakeProviders struct {
	*httptest.Server
	mux         *http.ServeMux
	validToken  atomic.Value
	tokenCalls  atomic.Int32
	revokeCalls atomic.Int32
}

func newFakeProviders(t *testing.T) *fakeProviders {
	t.Helper()
	f := &fakeProviders{mux: http.NewServeMux()}
	f.validToken.Store("live-token")

	f.mux.HandleFunc("/token", f.issueToken)
	f.mux.HandleFunc("/restapi/oauth/token", f.issueToken)
	f.mux.HandleFunc("/revoke", f.revoke)
	f.mux.HandleFunc("/restapi/oauth/revoke", f.revoke)
	f.handle("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"id":"1100","email":"rep@example.com","name":"Sales Rep"}`)
	})
	f.handle("/restapi/v1.0/account/~/extension/~", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"id":101,"extensionNumber":"101","name":"Front Desk","contact":{"email":"desk@example.com"},"account":{"id":37439510}}`)
	})
	f.Server = httptest.NewServer(f.mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeProviders) issueToken(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	n := f.tokenCalls.Add(1)
	token := fmt.Sprintf("issued-token-%d", n)
	f.validToken.Store(token)

	reply := map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   3600,
	}
	if r.PostForm.Get("grant_type") == "authorization_code" {
		reply["refresh_token"] = "refresh-" + r.PostForm.Get("code")
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}

func (f *fakeProviders) revoke(w http.ResponseWriter, r *http.Request) {
	f.revokeCalls.Add(1)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeProviders) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("Authorization")
		want := f.validToken.Load().(string)
		if got != "Bearer "+want && got != "bearer "+want {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"},"errorCode":"TokenInvalid"}`))
			return
		}
		h(w, r)
	})
}

type harness struct {
	api      *fakeProviders
	store    *storage.MemoryStore
	recorder *events.Recorder
	auth     *auth.Auth
	router   *mux.Router
	token    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeProviders(t)
	logger := logging.NewNopLogger()
	store := storage.NewMemoryStore()
	recorder := &events.Recorder{}
	emitter := events.NewEmitter(recorder, logger)

	registry := oauth.NewRegistry(
		google.New(google.Config{
			ClientID:     "g-id",
			ClientSecret: "g-secret",
			RedirectURL:  "http://localhost:8080/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
			Endpoint: &oauth2.Endpoint{
				AuthURL:   api.URL + "/auth",
				TokenURL:  api.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			APIEndpoint: api.URL + "/",
			RevokeURL:   api.URL + "/revoke",
			Timeout:     5 * time.Second,
		}),
		ringcentral.New(ringcentral.Config{
			ClientID:     "rc-id",
			ClientSecret: "rc-secret",
			RedirectURL:  "http://localhost:8080/auth/ringcentral/callback",
			ServerURL:    api.URL,
			Timeout:      5 * time.Second,
		}),
	)

	cfg := &config.Config{
		FrontendURL: testFrontend,
		JWTSecret:   strings.Repeat("j", 32),
	}
	authn := auth.New(cfg, nil, logger)
	states, err := oauth.NewStateCodec(strings.Repeat("s", 32), 10*time.Minute, oauth.NewMemoryNonceStore())
	require.NoError(t, err)

	refresher := oauth.NewRefresher(store, registry, oauth.WithLogger(logger), oauth.WithEmitter(emitter))
	clients := oauth.NewClientFactory(store, registry, refresher, logger)
	executor := oauth.NewExecutor(clients, refresher, logger)

	h := New(Deps{
		Config:       cfg,
		Auth:         authn,
		Store:        store,
		Handshake:    oauth.NewHandshake(store, registry, states, emitter, logger, 5*time.Second),
		Connections:  oauth.NewConnections(store, registry, emitter, logger),
		Providers:    registry,
		Integrations: integrations.NewService(executor, logger),
		Verifier:     signature.NewVerifier(signature.RingCentral(testWebhookSecret), logger),
		Emitter:      emitter,
		Logger:       logger,
	})

	token, err := authn.GenerateJWT("42", "rep", false)
	require.NoError(t, err)

	return &harness{
		api:      api,
		store:    store,
		recorder: recorder,
		auth:     authn,
		router:   testRouter(h, authn),
		token:    token,
	}
}

// testRouter mounts the handlers the way the application does
func testRouter(h *Handlers, authn *auth.Auth) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/auth/{provider}/callback", h.Callback).Methods(http.MethodGet)
	r.HandleFunc("/webhooks/ringcentral", h.RingCentralWebhook).Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(authn.RequireAuth)
	protected.HandleFunc("/auth/{provider}", h.Connect).Methods(http.MethodGet)
	protected.HandleFunc("/auth/{provider}/status", h.Status).Methods(http.MethodGet)
	protected.HandleFunc("/auth/{provider}/disconnect", h.Disconnect).Methods(http.MethodPost, http.MethodDelete)
	protected.HandleFunc("/api/google/calendar/events", h.CalendarEvents).Methods(http.MethodGet)
	protected.HandleFunc("/api/google/calendar/events.ics", h.CalendarICS).Methods(http.MethodGet)
	protected.HandleFunc("/api/google/calendar/events/{id}", h.CalendarEvent).Methods(http.MethodGet)
	protected.HandleFunc("/api/google/calendar/events/{id}", h.DeleteCalendarEvent).Methods(http.MethodDelete)
	protected.HandleFunc("/api/google/calendar/meetings", h.CreateCalendarMeeting).Methods(http.MethodPost)
	protected.HandleFunc("/api/google/gmail/messages", h.GmailMessages).Methods(http.MethodGet)
	protected.HandleFunc("/api/google/gmail/messages/{id}", h.GmailMessage).Methods(http.MethodGet)
	protected.HandleFunc("/api/google/gmail/labels", h.GmailLabels).Methods(http.MethodGet)
	protected.HandleFunc("/api/ringcentral/account", h.RingCentralAccount).Methods(http.MethodGet)
	protected.HandleFunc("/api/ringcentral/call-log", h.CallLog).Methods(http.MethodGet)
	protected.HandleFunc("/api/ringcentral/sms", h.SendSMS).Methods(http.MethodPost)
	protected.HandleFunc("/api/ringcentral/contacts.vcf", h.ContactsVCF).Methods(http.MethodGet)
	protected.HandleFunc("/api/ringcentral/calls", h.MakeCall).Methods(http.MethodPost)
	protected.HandleFunc("/api/ringcentral/teams", h.Teams).Methods(http.MethodGet)
	protected.HandleFunc("/api/ringcentral/teams/{teamId}/messages", h.TeamMessages).Methods(http.MethodGet)
	protected.HandleFunc("/api/ringcentral/teams/{teamId}/messages", h.SendTeamMessage).Methods(http.MethodPost)
	protected.HandleFunc("/api/ringcentral/meetings", h.Meetings).Methods(http.MethodGet)
	protected.HandleFunc("/api/ringcentral/meetings", h.CreateMeeting).Methods(http.MethodPost)
	protected.HandleFunc("/api/ringcentral/meetings/{id}", h.Meeting).Methods(http.MethodGet)
	protected.HandleFunc("/api/ringcentral/meetings/{id}", h.DeleteMeeting).Methods(http.MethodDelete)
	return r
}

// do sends an authenticated request through the router
func (h *harness) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+h.token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// anonymous sends a request without credentials
func (h *harness) anonymous(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// connect stores a credential for rep
func (h *harness) connect(t *testing.T, provider models.Provider, accessToken string, expiry time.Time) {
	t.Helper()
	_, err := h.store.Upsert(context.Background(), &models.Credential{
		Owner:        rep,
		Provider:     provider,
		AccountEmail: "rep@example.com",
		AccountID:    "37439510",
		ExtensionID:  "101",
		AccessToken:  accessToken,
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		AccessExpiry: expiry,
	})
	require.NoError(t, err)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}
