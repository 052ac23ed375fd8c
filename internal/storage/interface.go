// Package storage persists OAuth credentials, one row per owner per provider.
//
// The SQL implementation runs on SQLite (mattn/go-sqlite3) or PostgreSQL
// (jackc/pgx stdlib); the driver specific parts live in the sqlite and
// postgres subpackages as a Dialect. MemoryStore serves tests and single
// process development, and EncryptedStore wraps any Store to keep tokens
// encrypted at rest.
package storage

import (
	"context"
	"time"

	"crm-connect/internal/models"
)

// Store is the credential repository
type Store interface {
	// Upsert inserts or replaces the (owner, provider) row and returns its id.
	// An empty RefreshToken never overwrites a stored one.
	Upsert(ctx context.Context, cred *models.Credential) (string, error)

	// Get returns the credential or a not_found AppError
	Get(ctx context.Context, owner models.Owner, provider models.Provider) (*models.Credential, error)
	GetByID(ctx context.Context, id string) (*models.Credential, error)

	// UpdateAccessToken replaces only the access token and its expiry
	UpdateAccessToken(ctx context.Context, id, accessToken string, expiry time.Time) error

	// UpdateTokens persists a refresh that also rotated the refresh token
	UpdateTokens(ctx context.Context, cred *models.Credential) error

	// MarkReauthRequired records that the provider rejected the grant.
	// Upsert, UpdateAccessToken and UpdateTokens clear the mark.
	MarkReauthRequired(ctx context.Context, id string, at time.Time) error

	// Delete removes the row and reports how many rows went away
	Delete(ctx context.Context, owner models.Owner, provider models.Provider) (int64, error)

	// ListExpiring returns refreshable credentials whose access token
	// expires before the given instant, unknown expiries first and then
	// soonest first. Rows marked as needing reauth are left out.
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]*models.Credential, error)

	// FindByProviderAccount resolves a provider side account or extension id
	// to the credential that owns it
	FindByProviderAccount(ctx context.Context, provider models.Provider, accountID string) (*models.Credential, error)

	Close() error
	Health() error
}

// Dialect is what differs between SQL backends
type Dialect interface {
	Name() string
	// Rebind rewrites ? placeholders into the backend's syntax
	Rebind(query string) string
	// Schema returns the statements that create the credential table
	Schema() []string
	// TimestampType is the column type for instants, used when adding
	// columns to a table created by an older schema
	TimestampType() string
}
