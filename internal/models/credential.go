package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies an OAuth provider
type Provider string

const (
	ProviderGoogle      Provider = "google"
	ProviderRingCentral Provider = "ringcentral"
)

// Providers lists every supported provider
var Providers = []Provider{ProviderGoogle, ProviderRingCentral}

// ParseProvider validates a provider name taken from a URL or a stored row
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case ProviderGoogle, ProviderRingCentral:
		return p, nil
	}
	return "", fmt.Errorf("unsupported provider %q", name)
}

func (p Provider) String() string {
	return string(p)
}

const (
	defaultOwnerKey = "default"
	userOwnerPrefix = "user:"
)

// Owner is the application principal a credential belongs to: either one
// user or the explicit shared default credential.
type Owner struct {
	UserID  string
	Default bool
}

// UserOwner returns the owner for an application user
func UserOwner(userID string) Owner {
	return Owner{UserID: strings.TrimSpace(userID)}
}

// DefaultOwner returns the shared default credential owner
func DefaultOwner() Owner {
	return Owner{Default: true}
}

// Valid reports whether the owner identifies exactly one principal
func (o Owner) Valid() bool {
	if o.Default {
		return o.UserID == ""
	}
	return o.UserID != ""
}

// Key is the stored form of the owner; empty for an invalid owner
func (o Owner) Key() string {
	if !o.Valid() {
		return ""
	}
	if o.Default {
		return defaultOwnerKey
	}
	return userOwnerPrefix + o.UserID
}

func (o Owner) String() string {
	if k := o.Key(); k != "" {
		return k
	}
	return "<none>"
}

// ParseOwnerKey is the inverse of Owner.Key
func ParseOwnerKey(key string) (Owner, error) {
	switch {
	case key == defaultOwnerKey:
		return DefaultOwner(), nil
	case strings.HasPrefix(key, userOwnerPrefix) && len(key) > len(userOwnerPrefix):
		return UserOwner(strings.TrimPrefix(key, userOwnerPrefix)), nil
	}
	return Owner{}, fmt.Errorf("malformed owner key %q", key)
}

// Credential is the persisted delegated access for one owner at one provider
type Credential struct {
	ID       string   `json:"id"`
	Owner    Owner    `json:"-"`
	Provider Provider `json:"provider"`

	AccountEmail string `json:"account_email,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	ExtensionID  string `json:"extension_id,omitempty"`
	AccountName  string `json:"account_name,omitempty"`

	AccessToken   string    `json:"-"`
	RefreshToken  string    `json:"-"`
	TokenType     string    `json:"token_type"`
	Scope         string    `json:"scope,omitempty"`
	AccessExpiry  time.Time `json:"access_expiry"`
	RefreshExpiry time.Time `json:"refresh_expiry,omitempty"`

	// ReauthRequiredAt is set when the provider rejected the grant; the
	// next reconnect clears it
	ReauthRequiredAt time.Time `json:"reauth_required_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that can be mutated without affecting c
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// HasRefreshToken reports whether the credential can be refreshed at all
func (c *Credential) HasRefreshToken() bool {
	return c != nil && c.RefreshToken != ""
}

// AccessExpired reports whether the access token is expired or within margin
// of expiring at now. A zero expiry counts as expired.
func (c *Credential) AccessExpired(now time.Time, margin time.Duration) bool {
	if c.AccessExpiry.IsZero() {
		return true
	}
	return !now.Before(c.AccessExpiry.Add(-margin))
}

// NeedsReauth reports whether the provider already rejected this grant
func (c *Credential) NeedsReauth() bool {
	return !c.ReauthRequiredAt.IsZero()
}

// RefreshExpired reports whether a known refresh expiry has passed
func (c *Credential) RefreshExpired(now time.Time) bool {
	return !c.RefreshExpiry.IsZero() && !now.Before(c.RefreshExpiry)
}

// Scopes splits the granted scope string
func (c *Credential) Scopes() []string {
	return strings.Fields(c.Scope)
}

// MissingScopes returns the required scopes that were not granted
func (c *Credential) MissingScopes(required []string) []string {
	granted := make(map[string]struct{}, len(required))
	for _, s := range c.Scopes() {
		granted[s] = struct{}{}
	}
	var missing []string
	for _, s := range required {
		if _, ok := granted[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

// HasScopes reports whether every required scope was granted
func (c *Credential) HasScopes(required []string) bool {
	return len(c.MissingScopes(required)) == 0
}

// TokenSet is what a provider returns from a code exchange or a refresh.
// An empty RefreshToken means the provider did not rotate it.
type TokenSet struct {
	AccessToken   string
	RefreshToken  string
	TokenType     string
	Scope         string
	AccessExpiry  time.Time
	RefreshExpiry time.Time

	// RingCentral returns the owning account and extension with the token
	OwnerID    string
	EndpointID string
}

// Identity is the account behind a token
type Identity struct {
	Email       string `json:"email,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	ExtensionID string `json:"extension_id,omitempty"`
	Name        string `json:"name,omitempty"`
}

// ApplyTokens copies a token set onto the credential. The refresh token and
// its expiry are only replaced when the provider sent new ones.
func (c *Credential) ApplyTokens(ts *TokenSet) {
	c.AccessToken = ts.AccessToken
	c.AccessExpiry = ts.AccessExpiry
	if ts.TokenType != "" {
		c.TokenType = ts.TokenType
	}
	if ts.Scope != "" {
		c.Scope = ts.Scope
	}
	if ts.RefreshToken != "" {
		c.RefreshToken = ts.RefreshToken
		if !ts.RefreshExpiry.IsZero() {
			c.RefreshExpiry = ts.RefreshExpiry
		}
	}
}
