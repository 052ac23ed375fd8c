// Package ringcentral implements the RingCentral OAuth provider against the
// platform REST API. Every Handle is an isolated value holding one access
// token; nothing is shared between owners.
package ringcentral

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	commonhttp "crm-connect/internal/common/http"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
)

const (
	tokenPath     = "/restapi/oauth/token"
	revokePath    = "/restapi/oauth/revoke"
	authorizePath = "/restapi/oauth/authorize"
	identityPath  = "/restapi/v1.0/account/~/extension/~"
)

// Config holds the RingCentral app credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// ServerURL is the platform URL, sandbox or production
	ServerURL string
	Scopes    []string
	Timeout   time.Duration
}

// Provider is the RingCentral implementation of oauth2.Provider
type Provider struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func New(cfg Config) *Provider {
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: commonhttp.NewHTTPClientWithTimeout(cfg.Timeout),
		now:    time.Now,
	}
}

func (p *Provider) Name() models.Provider { return models.ProviderRingCentral }

// Scopes are granted per app in the RingCentral console; the list is what
// the app is expected to hold
func (p *Provider) Scopes() []string { return p.cfg.Scopes }

func (p *Provider) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURL)
	q.Set("state", state)
	return p.cfg.ServerURL + authorizePath + "?" + q.Encode()
}

func (p *Provider) ExchangeCode(ctx context.Context, code string) (*models.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", p.cfg.RedirectURL)
	return p.token(ctx, form)
}

func (p *Provider) Refresh(ctx context.Context, cred *models.Credential) (*models.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)
	return p.token(ctx, form)
}

// tokenResponse is the platform's token document
type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Scope                 string `json:"scope"`
	OwnerID               string `json:"owner_id"`
	EndpointID            string `json:"endpoint_id"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

func (p *Provider) token(ctx context.Context, form url.Values) (*models.TokenSet, error) {
	var tr tokenResponse
	issued := p.now()
	_, err := commonhttp.DoJSON(ctx, p.client, commonhttp.RequestOptions{
		Method: http.MethodPost,
		URL:    p.cfg.ServerURL + tokenPath,
		Headers: map[string]string{
			"Content-Type":  "application/x-www-form-urlencoded",
			"Authorization": "Basic " + basicAuth(p.cfg.ClientID, p.cfg.ClientSecret),
		},
		Body: []byte(form.Encode()),
	}, &tr)
	if err != nil {
		return nil, tokenError(err)
	}

	ts := &models.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
		OwnerID:      tr.OwnerID,
		EndpointID:   tr.EndpointID,
	}
	if tr.ExpiresIn > 0 {
		ts.AccessExpiry = issued.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	if tr.RefreshToken != "" && tr.RefreshTokenExpiresIn > 0 {
		ts.RefreshExpiry = issued.Add(time.Duration(tr.RefreshTokenExpiresIn) * time.Second)
	}
	return ts, nil
}

// tokenError reads an OAuth error document out of a non-2xx answer
func tokenError(err error) error {
	var statusErr *commonhttp.StatusError
	if !stderrors.As(err, &statusErr) {
		return err
	}
	var body tokenErrorResponse
	_ = json.Unmarshal(statusErr.Body, &body)
	te := &oauth.TokenError{
		StatusCode:  statusErr.StatusCode,
		Code:        body.Error,
		Description: body.ErrorDescription,
	}
	if te.Code == "" {
		te.Code = body.ErrorCode
	}
	if te.Description == "" {
		te.Description = body.Message
	}
	return te
}

type extensionInfo struct {
	ID              json.Number `json:"id"`
	ExtensionNumber string      `json:"extensionNumber"`
	Name            string      `json:"name"`
	Contact         struct {
		Email string `json:"email"`
	} `json:"contact"`
	Account struct {
		ID json.Number `json:"id"`
	} `json:"account"`
}

// FetchIdentity reads the extension that authorised the app
func (p *Provider) FetchIdentity(ctx context.Context, tokens *models.TokenSet) (*models.Identity, error) {
	h := p.handle(tokens.AccessToken, tokens.TokenType)
	var ext extensionInfo
	if err := h.Get(ctx, identityPath, nil, &ext); err != nil {
		return nil, err
	}

	id := &models.Identity{
		Email:       ext.Contact.Email,
		AccountID:   ext.Account.ID.String(),
		ExtensionID: ext.ID.String(),
		Name:        ext.Name,
	}
	// owner_id on the token is the authorising extension
	if id.ExtensionID == "" {
		id.ExtensionID = tokens.OwnerID
	}
	return id, nil
}

func (p *Provider) NewHandle(cred *models.Credential) oauth.Handle {
	return p.handle(cred.AccessToken, cred.TokenType)
}

func (p *Provider) handle(token, tokenType string) *Handle {
	return &Handle{
		baseURL: p.cfg.ServerURL,
		token:   token,
		client:  commonhttp.WithBearer(p.client, token, tokenType),
	}
}

// Revoke logs the app out of the user's RingCentral session
func (p *Provider) Revoke(ctx context.Context, cred *models.Credential) error {
	token := cred.AccessToken
	if token == "" {
		token = cred.RefreshToken
	}
	form := url.Values{}
	form.Set("token", token)
	_, err := commonhttp.DoJSON(ctx, p.client, commonhttp.RequestOptions{
		Method: http.MethodPost,
		URL:    p.cfg.ServerURL + revokePath,
		Headers: map[string]string{
			"Content-Type":  "application/x-www-form-urlencoded",
			"Authorization": "Basic " + basicAuth(p.cfg.ClientID, p.cfg.ClientSecret),
		},
		Body: []byte(form.Encode()),
	}, nil)
	return err
}

// IsAuthFailure recognises a 401 and the platform's invalid token codes
func (p *Provider) IsAuthFailure(err error) bool {
	var apiErr *APIError
	if !stderrors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusUnauthorized {
		return true
	}
	switch apiErr.ErrorCode {
	case "TokenInvalid", "TokenExpired", "OAU-213":
		return true
	}
	return false
}

func basicAuth(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}
