package ringcentral

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
)

type fakePlatform struct {
	*httptest.Server
	tokenCalls atomic.Int32
	lastForm   atomic.Value
	tokenReply func(w http.ResponseWriter)
	revoked    atomic.Value
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	fp := &fakePlatform{}
	fp.tokenReply = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "U0pDMTFQMDFQQVMwMHxBQUJ",
			"token_type": "bearer",
			"expires_in": 3600,
			"refresh_token": "U0pDMTFQMDFQQVMwMHxBQUJfMlJ",
			"refresh_token_expires_in": 604800,
			"scope": "ReadAccounts ReadCallLog SMS",
			"owner_id": "101",
			"endpoint_id": "ep-1"
		}`))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		fp.tokenCalls.Add(1)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("rc-id:rc-secret"))
		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err == nil {
			fp.lastForm.Store(r.PostForm)
		}
		fp.tokenReply(w)
	})
	mux.HandleFunc(revokePath, func(w http.ResponseWriter, r *http.Request) {
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("rc-id:rc-secret"))
		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, r.ParseForm())
		fp.revoked.Store(r.PostForm.Get("token"))
	})
	mux.HandleFunc(identityPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "bearer U0pDMTFQMDFQQVMwMHxBQUJ" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errorCode":"TokenInvalid","message":"Access token corrupted"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 101,
			"extensionNumber": "101",
			"name": "Front Desk",
			"contact": {"email": "desk@example.com"},
			"account": {"id": 37439510}
		}`))
	})
	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakePlatform) provider() *Provider {
	return New(Config{
		ClientID:     "rc-id",
		ClientSecret: "rc-secret",
		RedirectURL:  "http://localhost:8080/auth/ringcentral/callback",
		ServerURL:    fp.URL + "/",
		Timeout:      5 * time.Second,
	})
}

func TestProvider_AuthCodeURL(t *testing.T) {
	fp := newFakePlatform(t)

	u, err := url.Parse(fp.provider().AuthCodeURL("signed"))
	require.NoError(t, err)
	assert.Equal(t, authorizePath, u.Path)
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "rc-id", u.Query().Get("client_id"))
	assert.Equal(t, "signed", u.Query().Get("state"))
}

func TestProvider_ExchangeCode(t *testing.T) {
	fp := newFakePlatform(t)
	p := fp.provider()
	now := time.Now()
	p.now = func() time.Time { return now }

	ts, err := p.ExchangeCode(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "U0pDMTFQMDFQQVMwMHxBQUJ", ts.AccessToken)
	assert.Equal(t, "U0pDMTFQMDFQQVMwMHxBQUJfMlJ", ts.RefreshToken)
	assert.Equal(t, now.Add(time.Hour), ts.AccessExpiry)
	assert.Equal(t, now.Add(7*24*time.Hour), ts.RefreshExpiry)
	assert.Equal(t, "101", ts.OwnerID)

	form := fp.lastForm.Load().(url.Values)
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "auth-code", form.Get("code"))
	assert.Equal(t, "http://localhost:8080/auth/ringcentral/callback", form.Get("redirect_uri"))
}

func TestProvider_Refresh(t *testing.T) {
	fp := newFakePlatform(t)

	ts, err := fp.provider().Refresh(context.Background(), &models.Credential{RefreshToken: "old-refresh"})
	require.NoError(t, err)
	assert.NotEmpty(t, ts.AccessToken)
	assert.False(t, ts.RefreshExpiry.IsZero(), "RingCentral rotates the refresh token")

	form := fp.lastForm.Load().(url.Values)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "old-refresh", form.Get("refresh_token"))
}

func TestProvider_RefreshErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		revoked bool
	}{
		{"invalid grant", 400, `{"error":"invalid_grant","errorCode":"OAU-211","error_description":"Token is revoked"}`, "invalid_grant", true},
		{"code only", 400, `{"errorCode":"OAU-210","message":"Invalid token"}`, "OAU-210", true},
		{"rate limited", 429, `{"errorCode":"CMN-301","message":"Request rate exceeded"}`, "CMN-301", false},
		{"unavailable", 503, `<html>down</html>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := newFakePlatform(t)
			fp.tokenReply = func(w http.ResponseWriter) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}

			_, err := fp.provider().Refresh(context.Background(), &models.Credential{RefreshToken: "r"})
			var te *oauth.TokenError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.status, te.StatusCode)
			assert.Equal(t, tt.code, te.Code)
			assert.Equal(t, tt.revoked, te.Revoked())
		})
	}
}

func TestProvider_RefreshNetworkFailure(t *testing.T) {
	fp := newFakePlatform(t)
	p := fp.provider()
	fp.Close()

	_, err := p.Refresh(context.Background(), &models.Credential{RefreshToken: "r"})
	require.Error(t, err)
	var te *oauth.TokenError
	assert.False(t, errors.IsType(err, errors.ErrTypeProvider))
	assert.NotErrorAs(t, err, &te)
}

func TestProvider_FetchIdentity(t *testing.T) {
	fp := newFakePlatform(t)
	p := fp.provider()

	id, err := p.FetchIdentity(context.Background(), &models.TokenSet{AccessToken: "U0pDMTFQMDFQQVMwMHxBQUJ", TokenType: "bearer"})
	require.NoError(t, err)
	assert.Equal(t, "37439510", id.AccountID)
	assert.Equal(t, "101", id.ExtensionID)
	assert.Equal(t, "desk@example.com", id.Email)
	assert.Equal(t, "Front Desk", id.Name)
}

func TestProvider_IsAuthFailure(t *testing.T) {
	fp := newFakePlatform(t)
	p := fp.provider()

	h := p.NewHandle(&models.Credential{AccessToken: "expired", TokenType: "bearer"}).(*Handle)
	err := h.Get(context.Background(), identityPath, nil, nil)
	require.Error(t, err)
	assert.True(t, p.IsAuthFailure(err))
	assert.Equal(t, http.StatusUnauthorized, errors.HTTPStatus(err))

	assert.True(t, p.IsAuthFailure(&APIError{StatusCode: 400, ErrorCode: "TokenExpired"}))
	assert.False(t, p.IsAuthFailure(&APIError{StatusCode: 403, ErrorCode: "InsufficientPermissions"}))
	assert.False(t, p.IsAuthFailure(&APIError{StatusCode: 404}))
	assert.False(t, p.IsAuthFailure(assert.AnError))
}

func TestHandle_Isolation(t *testing.T) {
	fp := newFakePlatform(t)
	p := fp.provider()

	a := p.NewHandle(&models.Credential{AccessToken: "a"}).(*Handle)
	b := p.NewHandle(&models.Credential{AccessToken: "b"}).(*Handle)
	assert.Equal(t, "a", a.AccessToken())
	assert.Equal(t, "b", b.AccessToken())
	assert.NotSame(t, a.client, b.client)
	assert.Equal(t, models.ProviderRingCentral, a.Provider())
}

func TestProvider_Revoke(t *testing.T) {
	fp := newFakePlatform(t)

	err := fp.provider().Revoke(context.Background(), &models.Credential{AccessToken: "access", RefreshToken: "refresh"})
	require.NoError(t, err)
	assert.Equal(t, "access", fp.revoked.Load())

	p := New(Config{ClientID: "rc-id", ClientSecret: "wrong", ServerURL: fp.URL, Timeout: time.Second})
	assert.Error(t, p.Revoke(context.Background(), &models.Credential{AccessToken: "access"}))
}
