package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerKey(t *testing.T) {
	tests := []struct {
		name  string
		owner Owner
		key   string
		valid bool
	}{
		{"user", UserOwner("42"), "user:42", true},
		{"user trimmed", UserOwner(" 42 "), "user:42", true},
		{"default", DefaultOwner(), "default", true},
		{"empty", UserOwner(""), "", false},
		{"both", Owner{UserID: "1", Default: true}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.owner.Valid())
			assert.Equal(t, tt.key, tt.owner.Key())
		})
	}
}

func TestParseOwnerKey(t *testing.T) {
	owner, err := ParseOwnerKey("user:42")
	require.NoError(t, err)
	assert.Equal(t, UserOwner("42"), owner)

	owner, err = ParseOwnerKey("default")
	require.NoError(t, err)
	assert.True(t, owner.Default)

	for _, bad := range []string{"", "user:", "42", "admin"} {
		_, err := ParseOwnerKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("Google")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p)

	p, err = ParseProvider("ringcentral")
	require.NoError(t, err)
	assert.Equal(t, ProviderRingCentral, p)

	_, err = ParseProvider("outlook")
	assert.Error(t, err)
}

func TestCredential_AccessExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	margin := 5 * time.Minute

	tests := []struct {
		name    string
		expiry  time.Time
		expired bool
	}{
		{"zero expiry", time.Time{}, true},
		{"already past", now.Add(-time.Minute), true},
		{"inside margin", now.Add(4 * time.Minute), true},
		{"exactly at margin", now.Add(margin), true},
		{"outside margin", now.Add(10 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{AccessExpiry: tt.expiry}
			assert.Equal(t, tt.expired, c.AccessExpired(now, margin))
		})
	}
}

func TestCredential_RefreshExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Credential{}).RefreshExpired(now), "unknown expiry never expires")
	assert.True(t, (&Credential{RefreshExpiry: now.Add(-time.Second)}).RefreshExpired(now))
	assert.False(t, (&Credential{RefreshExpiry: now.Add(time.Hour)}).RefreshExpired(now))
}

func TestCredential_Scopes(t *testing.T) {
	c := &Credential{Scope: "a b  c"}
	assert.Equal(t, []string{"a", "b", "c"}, c.Scopes())
	assert.True(t, c.HasScopes([]string{"a", "c"}))
	assert.False(t, c.HasScopes([]string{"a", "d"}))
	assert.Equal(t, []string{"d"}, c.MissingScopes([]string{"a", "d"}))
}

func TestCredential_ApplyTokens(t *testing.T) {
	c := &Credential{
		AccessToken:   "old",
		RefreshToken:  "keep",
		TokenType:     "Bearer",
		RefreshExpiry: time.Unix(100, 0),
	}
	expiry := time.Now().Add(time.Hour)

	c.ApplyTokens(&TokenSet{AccessToken: "new", AccessExpiry: expiry})
	assert.Equal(t, "new", c.AccessToken)
	assert.Equal(t, "keep", c.RefreshToken)
	assert.Equal(t, "Bearer", c.TokenType)
	assert.Equal(t, expiry, c.AccessExpiry)

	c.ApplyTokens(&TokenSet{AccessToken: "newer", RefreshToken: "rotated", RefreshExpiry: time.Unix(200, 0)})
	assert.Equal(t, "rotated", c.RefreshToken)
	assert.Equal(t, time.Unix(200, 0), c.RefreshExpiry)
}

func TestCredential_Clone(t *testing.T) {
	c := &Credential{AccessToken: "a"}
	cp := c.Clone()
	cp.AccessToken = "b"
	assert.Equal(t, "a", c.AccessToken)
	assert.Nil(t, (*Credential)(nil).Clone())
}
