// Package postgres backs the credential store with PostgreSQL through the
// jackc/pgx database/sql driver.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"crm-connect/internal/storage"
)

type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

// Rebind turns ? placeholders into $1..$n
func (Dialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS oauth_credentials (
			id TEXT PRIMARY KEY,
			owner_key TEXT NOT NULL,
			user_id TEXT,
			provider TEXT NOT NULL,
			account_email TEXT NOT NULL DEFAULT '',
			account_id TEXT NOT NULL DEFAULT '',
			extension_id TEXT NOT NULL DEFAULT '',
			account_name TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			token_type TEXT NOT NULL DEFAULT 'Bearer',
			scope TEXT NOT NULL DEFAULT '',
			access_expiry TIMESTAMPTZ,
			refresh_expiry TIMESTAMPTZ,
			reauth_required_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_oauth_credentials_owner_provider
			ON oauth_credentials(owner_key, provider)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_credentials_account
			ON oauth_credentials(provider, account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_credentials_access_expiry
			ON oauth_credentials(access_expiry)`,
	}
}

func (Dialect) TimestampType() string { return "TIMESTAMPTZ" }

// Open connects through pgx and migrates the credential table
func Open(ctx context.Context, config *Config) (*storage.SQLStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	connConfig, err := pgx.ParseConfig(config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	store, err := storage.NewSQLStore(ctx, db, Dialect{})
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

