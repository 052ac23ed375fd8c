package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"crm-connect/internal/common/logging"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
	"crm-connect/internal/providers/google"
	"crm-connect/internal/providers/ringcentral"
	"crm-connect/internal/storage"
)

var rep = models.UserOwner("42")

// fakeAPI serves both providers' token endpoints and a handful of API routes.
// Requests carrying an access token other than validToken get a 401.
type fakeAPI struct {
	*httptest.Server
	mux        *http.ServeMux
	validToken atomic.Value
	tokenCalls atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux()}
	f.validToken.Store("live-token")

	f.mux.HandleFunc("/token", f.issueToken)
	f.mux.HandleFunc("/restapi/oauth/token", f.issueToken)
	f.Server = httptest.NewServer(f.mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) issueToken(w http.ResponseWriter, r *http.Request) {
	n := f.tokenCalls.Add(1)
	token := fmt.Sprintf("refreshed-token-%d", n)
	f.validToken.Store(token)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   3600,
	})
}

// authorized wraps h with the bearer check
func (f *fakeAPI) authorized(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want := f.validToken.Load().(string)
		got := r.Header.Get("Authorization")
		if got != "Bearer "+want && got != "bearer "+want {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"},"errorCode":"TokenInvalid"}`))
			return
		}
		h(w, r)
	}
}

func (f *fakeAPI) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, f.authorized(h))
}

type harness struct {
	api   *fakeAPI
	store *storage.MemoryStore
	svc   *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeAPI(t)
	store := storage.NewMemoryStore()

	registry := oauth.NewRegistry(
		google.New(google.Config{
			ClientID:     "g-id",
			ClientSecret: "g-secret",
			RedirectURL:  "http://localhost/auth/google/callback",
			Endpoint:     &oauth2.Endpoint{TokenURL: api.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
			APIEndpoint:  api.URL + "/",
			Timeout:      5 * time.Second,
		}),
		ringcentral.New(ringcentral.Config{
			ClientID:     "rc-id",
			ClientSecret: "rc-secret",
			RedirectURL:  "http://localhost/auth/ringcentral/callback",
			ServerURL:    api.URL,
			Timeout:      5 * time.Second,
		}),
	)

	logger := logging.NewNopLogger()
	refresher := oauth.NewRefresher(store, registry, oauth.WithLogger(logger))
	clients := oauth.NewClientFactory(store, registry, refresher, logger)
	executor := oauth.NewExecutor(clients, refresher, logger)

	return &harness{api: api, store: store, svc: NewService(executor, logger)}
}

// connect stores a credential whose access token is valid for an hour
func (h *harness) connect(t *testing.T, provider models.Provider, accessToken string) {
	t.Helper()
	_, err := h.store.Upsert(context.Background(), &models.Credential{
		Owner:        rep,
		Provider:     provider,
		AccessToken:  accessToken,
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		AccessExpiry: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}
