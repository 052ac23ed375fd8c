package oauth2

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/utils"
	"crm-connect/internal/models"
)

const (
	stateIssuer   = "crm-connect"
	stateAudience = "oauth-state"
)

// StateClaims is the payload of the OAuth state parameter. The callback is an
// unauthenticated browser redirect, so this signed token is the only thing
// tying it to the user who started the flow.
type StateClaims struct {
	OwnerKey string `json:"owner"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// StateCodec issues and verifies single-use state tokens
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	nonces NonceStore
	now    func() time.Time
}

func NewStateCodec(secret string, ttl time.Duration, nonces NonceStore) (*StateCodec, error) {
	if len(secret) < 32 {
		return nil, errors.ConfigError("state secret must be at least 32 characters")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if nonces == nil {
		nonces = NewMemoryNonceStore()
	}
	return &StateCodec{secret: []byte(secret), ttl: ttl, nonces: nonces, now: time.Now}, nil
}

// Issue signs a state for owner and records its nonce
func (c *StateCodec) Issue(ctx context.Context, owner models.Owner, provider models.Provider) (string, error) {
	if !owner.Valid() {
		return "", errors.ValidationError("cannot start an authorization without a user")
	}
	now := c.now()
	nonce := utils.NewNonce()
	claims := StateClaims{
		OwnerKey: owner.Key(),
		Provider: string(provider),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			Issuer:    stateIssuer,
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.InternalError("failed to sign state", err)
	}
	if err := c.nonces.Put(ctx, nonce, c.ttl); err != nil {
		return "", errors.ConnectionError("failed to record state nonce", err)
	}
	return signed, nil
}

// Consume verifies state for provider, burns its nonce and returns the owner
// it was issued for
func (c *StateCodec) Consume(ctx context.Context, state string, provider models.Provider) (models.Owner, error) {
	if state == "" {
		return models.Owner{}, errors.InvalidStateError("missing state parameter")
	}

	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return models.Owner{}, errors.InvalidStateError("state is invalid or expired").WithContext("cause", err.Error())
	}
	if claims.Provider != string(provider) {
		return models.Owner{}, errors.InvalidStateError(fmt.Sprintf("state was issued for %s", claims.Provider))
	}
	owner, err := models.ParseOwnerKey(claims.OwnerKey)
	if err != nil || !owner.Valid() {
		return models.Owner{}, errors.InvalidStateError("state does not name a user")
	}

	taken, err := c.nonces.Take(ctx, claims.ID)
	if err != nil {
		return models.Owner{}, errors.ConnectionError("failed to consume state nonce", err)
	}
	if !taken {
		return models.Owner{}, errors.InvalidStateError("state has already been used")
	}
	return owner, nil
}
