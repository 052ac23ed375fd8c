// Package google implements the Google OAuth provider: consent, code
// exchange and refresh through golang.org/x/oauth2, identity through the
// OAuth2 userinfo API, and handles that build Calendar and Gmail services.
package google

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleendpoint "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"crm-connect/internal/common/errors"
	commonhttp "crm-connect/internal/common/http"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
)

// Config holds the Google OAuth client settings
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration

	// Endpoint, APIEndpoint and RevokeURL replace Google's URLs, for tests
	Endpoint    *oauth2.Endpoint
	APIEndpoint string
	RevokeURL   string
}

const defaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// Provider is the Google implementation of oauth2.Provider
type Provider struct {
	oauth       *oauth2.Config
	client      *http.Client
	apiEndpoint string
	revokeURL   string
}

func New(cfg Config) *Provider {
	endpoint := googleendpoint.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	revokeURL := cfg.RevokeURL
	if revokeURL == "" {
		revokeURL = defaultRevokeURL
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		client:      commonhttp.NewHTTPClientWithTimeout(timeout),
		apiEndpoint: cfg.APIEndpoint,
		revokeURL:   revokeURL,
	}
}

func (p *Provider) Name() models.Provider { return models.ProviderGoogle }

func (p *Provider) Scopes() []string { return p.oauth.Scopes }

// AuthCodeURL asks for offline access and forces the consent screen, which
// is the only way Google reissues a refresh token to a returning user
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (p *Provider) ExchangeCode(ctx context.Context, code string) (*models.TokenSet, error) {
	tok, err := p.oauth.Exchange(p.withClient(ctx), code)
	if err != nil {
		return nil, tokenError(err)
	}
	return tokenSet(tok), nil
}

func (p *Provider) Refresh(ctx context.Context, cred *models.Credential) (*models.TokenSet, error) {
	source := p.oauth.TokenSource(p.withClient(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := source.Token()
	if err != nil {
		return nil, tokenError(err)
	}
	ts := tokenSet(tok)
	// x/oauth2 echoes the old refresh token back when Google did not rotate it
	if ts.RefreshToken == cred.RefreshToken {
		ts.RefreshToken = ""
	}
	return ts, nil
}

func (p *Provider) FetchIdentity(ctx context.Context, tokens *models.TokenSet) (*models.Identity, error) {
	svc, err := oauth2api.NewService(ctx, p.apiOptions(tokens.AccessToken, tokens.TokenType)...)
	if err != nil {
		return nil, errors.InternalError("failed to create userinfo client", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, apiError(err)
	}
	return &models.Identity{
		Email:     info.Email,
		AccountID: info.Id,
		Name:      info.Name,
	}, nil
}

func (p *Provider) NewHandle(cred *models.Credential) oauth.Handle {
	return &Handle{
		token:   cred.AccessToken,
		options: p.apiOptions(cred.AccessToken, cred.TokenType),
		client:  commonhttp.WithBearer(p.client, cred.AccessToken, cred.TokenType),
	}
}

// Revoke drops the whole grant. Revoking the refresh token also kills every
// access token minted from it.
func (p *Provider) Revoke(ctx context.Context, cred *models.Credential) error {
	token := cred.RefreshToken
	if token == "" {
		token = cred.AccessToken
	}
	form := url.Values{}
	form.Set("token", token)
	_, err := commonhttp.DoJSON(ctx, p.client, commonhttp.RequestOptions{
		Method:  http.MethodPost,
		URL:     p.revokeURL,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte(form.Encode()),
	}, nil)
	if err != nil {
		var statusErr *commonhttp.StatusError
		if stderrors.As(err, &statusErr) {
			return errors.ProviderAPIError(string(models.ProviderGoogle), statusErr.StatusCode, err)
		}
		return errors.ConnectionError("google revoke request failed", err)
	}
	return nil
}

// IsAuthFailure recognises Google's 401 answer for an expired or revoked token
func (p *Provider) IsAuthFailure(err error) bool {
	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	var statusErr *commonhttp.StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusUnauthorized
	}
	if appErr, ok := errors.As(err); ok && appErr.Type == errors.ErrTypeProvider {
		status, _ := appErr.Context["status"].(int)
		return status == http.StatusUnauthorized
	}
	return false
}

func (p *Provider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

func (p *Provider) apiOptions(token, tokenType string) []option.ClientOption {
	opts := []option.ClientOption{
		option.WithHTTPClient(commonhttp.WithBearer(p.client, token, tokenType)),
	}
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}
	return opts
}

func tokenSet(tok *oauth2.Token) *models.TokenSet {
	ts := &models.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		AccessExpiry: tok.Expiry,
	}
	if strings.EqualFold(ts.TokenType, "bearer") {
		ts.TokenType = "Bearer"
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		ts.Scope = scope
	}
	return ts
}

// tokenError turns x/oauth2's RetrieveError into the provider neutral
// TokenError; transport failures are returned unchanged
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if !stderrors.As(err, &re) {
		return err
	}
	te := &oauth.TokenError{
		Code:        re.ErrorCode,
		Description: re.ErrorDescription,
	}
	if re.Response != nil {
		te.StatusCode = re.Response.StatusCode
	}
	return te
}

// apiError keeps the status of a googleapi.Error so handlers can pass it on
func apiError(err error) error {
	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) {
		return errors.ProviderAPIError(string(models.ProviderGoogle), gerr.Code, err)
	}
	return errors.ConnectionError("google API request failed", err)
}
