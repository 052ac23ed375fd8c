package app

import (
	"context"
	"fmt"

	"crm-connect/internal/common/logging"
	"crm-connect/internal/crypto"
	"crm-connect/internal/storage"
	"crm-connect/internal/storage/postgres"
	"crm-connect/internal/storage/sqlite"
)

func (app *App) initializeStorage(ctx context.Context) error {
	var (
		store storage.Store
		err   error
	)

	switch app.Config.DatabaseType {
	case "postgres", "postgresql":
		app.Logger.Info("Database: PostgreSQL",
			logging.Field{"host", app.Config.PostgresHost},
			logging.Field{"port", app.Config.PostgresPort},
			logging.Field{"database", app.Config.PostgresDB},
		)
		pgConfig, cfgErr := postgres.NewConfigFromParts(
			app.Config.PostgresHost,
			app.Config.PostgresPort,
			app.Config.PostgresDB,
			app.Config.PostgresUser,
			app.Config.PostgresPassword,
			app.Config.PostgresSSLMode,
		)
		if cfgErr != nil {
			return cfgErr
		}
		store, err = postgres.Open(ctx, pgConfig)
	default:
		dbPath := app.Config.DatabasePath
		if dbPath == "" {
			dbPath = "./crm_connect.db"
		}
		app.Logger.Info("Database: SQLite", logging.Field{"path", dbPath})
		store, err = sqlite.Open(ctx, &sqlite.Config{DatabasePath: dbPath})
	}
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if app.Config.EncryptionKey == "" {
		app.Logger.Warn("Token encryption disabled (no CONFIG_ENCRYPTION_KEY provided)")
		app.Storage = store
		return nil
	}

	cipher, err := crypto.NewTokenCipher(app.Config.EncryptionKey)
	if err != nil {
		store.Close()
		return err
	}
	app.Storage = storage.NewEncryptedStore(store, cipher)
	app.Logger.Info("Token encryption enabled")
	return nil
}
