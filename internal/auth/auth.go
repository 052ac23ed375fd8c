// Package auth authenticates CRM users with HS256 JWTs issued by the CRM
// backend. A token's user id becomes the owner of the OAuth credentials the
// user connects.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/config"
	"crm-connect/internal/models"
)

const (
	issuer        = "crm-connect"
	tokenLifetime = 24 * time.Hour
	blacklistKey  = "jwt:blacklist:%s"
	cookieName    = "token"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// RedisClient is the part of the Redis client the blacklist needs
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// Claims identify a CRM user
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	IsDefault bool   `json:"is_default"`
	jwt.RegisteredClaims
}

type Auth struct {
	secret         []byte
	defaultEnabled bool
	redis          RedisClient
	logger         logging.Logger
	now            func() time.Time
}

// New panics on an empty secret; config validation rejects that earlier
func New(cfg *config.Config, redis RedisClient, logger logging.Logger) *Auth {
	if cfg.JWTSecret == "" {
		panic("auth: JWT secret is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Auth{
		secret:         []byte(cfg.JWTSecret),
		defaultEnabled: cfg.DefaultCredentialEnabled,
		redis:          redis,
		logger:         logger.WithFields(logging.Field{"component", "auth"}),
		now:            time.Now,
	}
}

// GenerateJWT issues a 24h token; the CRM backend normally does this, the
// service only issues tokens for local development
func (a *Auth) GenerateJWT(userID, username string, isDefault bool) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.ValidationError("user id is required")
	}
	now := a.now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		IsDefault: isDefault,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.InternalError("failed to sign token", err)
	}
	return signed, nil
}

// ValidateJWT checks signature, expiry, issuer and the blacklist
func (a *Auth) ValidateJWT(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.AuthError("missing token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, errors.AuthError("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.AuthError("token has no user id")
	}

	if a.redis != nil {
		// lookup failures count as not revoked
		if v, err := a.redis.Get(ctx, fmt.Sprintf(blacklistKey, tokenString)); err == nil && v != "" {
			return nil, errors.AuthError("token has been revoked")
		}
	}
	return claims, nil
}

// Logout blacklists token until it would have expired anyway
func (a *Auth) Logout(ctx context.Context, tokenString string) error {
	claims, err := a.ValidateJWT(ctx, tokenString)
	if err != nil {
		return err
	}
	if a.redis == nil {
		return errors.ConfigError("token revocation requires Redis")
	}
	ttl := claims.ExpiresAt.Time.Sub(a.now())
	if ttl <= 0 {
		return nil
	}
	if err := a.redis.Set(ctx, fmt.Sprintf(blacklistKey, tokenString), "1", ttl); err != nil {
		return errors.ConnectionError("failed to revoke token", err)
	}
	return nil
}

// RequireAuth accepts a bearer token or the token cookie and stores the
// claims on the request context
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ValidateJWT(r.Context(), TokenFromRequest(r))
		if err != nil {
			a.logger.Debug("Rejected request",
				logging.Field{"path", r.URL.Path},
				logging.Err(err),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Authentication required"}`))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = context.WithValue(ctx, logging.UserIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Owner resolves the credential owner of an authenticated request. Default
// users act on the shared credential only when that mode is enabled.
func (a *Auth) Owner(ctx context.Context) (models.Owner, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return models.Owner{}, errors.AuthError("authentication required")
	}
	if claims.IsDefault && a.defaultEnabled {
		return models.DefaultOwner(), nil
	}
	return models.UserOwner(claims.UserID), nil
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// WithClaims returns ctx carrying claims, for handlers tested without the
// middleware
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// TokenFromRequest reads the bearer token, falling back to the cookie
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
