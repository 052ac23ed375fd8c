// Package sqlite backs the credential store with mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"crm-connect/internal/storage"
)

type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Rebind(query string) string { return query }

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
			access_expiry DATETIME,
			refresh_expiry DATETIME,
			reauth_required_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_oauth_credentials_owner_provider
			ON oauth_credentials(owner_key, provider)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_credentials_account
			ON oauth_credentials(provider, account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_credentials_access_expiry
			ON oauth_credentials(access_expiry)`,
	}
}

func (Dialect) TimestampType() string { return "DATETIME" }

// Open connects to the database file and migrates the credential table
func Open(ctx context.Context, config *Config) (*storage.SQLStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the life of the pool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := storage.NewSQLStore(ctx, db, Dialect{})
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
