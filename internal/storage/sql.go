package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/utils"
	"crm-connect/internal/models"
)

const credentialColumns = `id, owner_key, provider, account_email, account_id, extension_id,
	account_name, access_token, refresh_token, token_type, scope, access_expiry,
	refresh_expiry, reauth_required_at, created_at, updated_at`

// SQLStore implements Store on database/sql
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLStore runs the dialect's schema and returns a ready store
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.StorageError("failed to migrate credential schema", err).
				WithContext("dialect", s.dialect.Name())
		}
	}
	return s.ensureColumn(ctx, "reauth_required_at", s.dialect.TimestampType())
}

// ensureColumn adds a column missing from a table created by an older schema
func (s *SQLStore) ensureColumn(ctx context.Context, column, columnType string) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+column+` FROM oauth_credentials LIMIT 0`)
	if err == nil {
		return rows.Close()
	}
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE oauth_credentials ADD COLUMN `+column+` `+columnType); err != nil {
		return errors.StorageError("failed to migrate credential schema", err).
			WithContext("dialect", s.dialect.Name()).WithContext("column", column)
	}
	return nil
}

func (s *SQLStore) Upsert(ctx context.Context, cred *models.Credential) (string, error) {
	ownerKey := cred.Owner.Key()
	if ownerKey == "" {
		return "", errors.ValidationError("credential owner is required")
	}
	if cred.ID == "" {
		cred.ID = utils.NewCredentialID()
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	now := s.now().UTC()

	query := s.dialect.Rebind(`INSERT INTO oauth_credentials (
		id, owner_key, user_id, provider, account_email, account_id, extension_id,
		account_name, access_token, refresh_token, token_type, scope, access_expiry,
		refresh_expiry, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (owner_key, provider) DO UPDATE SET
		account_email = excluded.account_email,
		account_id = excluded.account_id,
		extension_id = excluded.extension_id,
		account_name = excluded.account_name,
		access_token = excluded.access_token,
		refresh_token = CASE WHEN excluded.refresh_token <> '' THEN excluded.refresh_token ELSE oauth_credentials.refresh_token END,
		refresh_expiry = CASE WHEN excluded.refresh_token <> '' THEN excluded.refresh_expiry ELSE oauth_credentials.refresh_expiry END,
		token_type = excluded.token_type,
		scope = excluded.scope,
		access_expiry = excluded.access_expiry,
		reauth_required_at = NULL,
		updated_at = excluded.updated_at
	RETURNING id`)

	var id string
	err := s.db.QueryRowContext(ctx, query,
		cred.ID, ownerKey, nullString(cred.Owner.UserID), string(cred.Provider),
		cred.AccountEmail, cred.AccountID, cred.ExtensionID, cred.AccountName,
		cred.AccessToken, cred.RefreshToken, cred.TokenType, cred.Scope,
		nullTime(cred.AccessExpiry), nullTime(cred.RefreshExpiry), now, now,
	).Scan(&id)
	if err != nil {
		return "", errors.StorageError("failed to upsert credential", err).
			WithContext("owner", ownerKey).WithContext("provider", string(cred.Provider))
	}
	cred.ID = id
	return id, nil
}

func (s *SQLStore) Get(ctx context.Context, owner models.Owner, provider models.Provider) (*models.Credential, error) {
	query := s.dialect.Rebind(`SELECT ` + credentialColumns + `
		FROM oauth_credentials WHERE owner_key = ? AND provider = ?`)
	cred, err := scanCredential(s.db.QueryRowContext(ctx, query, owner.Key(), string(provider)))
	if err != nil {
		return nil, s.readError(err, "owner", owner.Key())
	}
	return cred, nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	query := s.dialect.Rebind(`SELECT ` + credentialColumns + ` FROM oauth_credentials WHERE id = ?`)
	cred, err := scanCredential(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, s.readError(err, "id", id)
	}
	return cred, nil
}

func (s *SQLStore) UpdateAccessToken(ctx context.Context, id, accessToken string, expiry time.Time) error {
	query := s.dialect.Rebind(`UPDATE oauth_credentials
		SET access_token = ?, access_expiry = ?, reauth_required_at = NULL, updated_at = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, accessToken, nullTime(expiry), s.now().UTC(), id)
	return s.checkUpdate(res, err, id)
}

func (s *SQLStore) UpdateTokens(ctx context.Context, cred *models.Credential) error {
	query := s.dialect.Rebind(`UPDATE oauth_credentials
		SET access_token = ?, access_expiry = ?,
			refresh_token = CASE WHEN ? <> '' THEN ? ELSE refresh_token END,
			refresh_expiry = ?, token_type = ?, scope = ?, reauth_required_at = NULL,
			updated_at = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		cred.AccessToken, nullTime(cred.AccessExpiry),
		cred.RefreshToken, cred.RefreshToken,
		nullTime(cred.RefreshExpiry), cred.TokenType, cred.Scope, s.now().UTC(),
		cred.ID,
	)
	return s.checkUpdate(res, err, cred.ID)
}

func (s *SQLStore) MarkReauthRequired(ctx context.Context, id string, at time.Time) error {
	query := s.dialect.Rebind(`UPDATE oauth_credentials
		SET reauth_required_at = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, at.UTC(), s.now().UTC(), id)
	return s.checkUpdate(res, err, id)
}

func (s *SQLStore) Delete(ctx context.Context, owner models.Owner, provider models.Provider) (int64, error) {
	query := s.dialect.Rebind(`DELETE FROM oauth_credentials WHERE owner_key = ? AND provider = ?`)
	res, err := s.db.ExecContext(ctx, query, owner.Key(), string(provider))
	if err != nil {
		return 0, errors.StorageError("failed to delete credential", err).WithContext("owner", owner.Key())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.StorageError("failed to read deleted rows", err)
	}
	return n, nil
}

func (s *SQLStore) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*models.Credential, error) {
	if limit <= 0 {
		limit = 100
	}
	query := s.dialect.Rebind(`SELECT ` + credentialColumns + `
		FROM oauth_credentials
		WHERE refresh_token <> '' AND reauth_required_at IS NULL
			AND (access_expiry IS NULL OR access_expiry < ?)
		ORDER BY access_expiry IS NOT NULL, access_expiry
		LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, before.UTC(), limit)
	if err != nil {
		return nil, errors.StorageError("failed to list expiring credentials", err)
	}
	defer rows.Close()

	var creds []*models.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, errors.StorageError("failed to scan credential", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("failed to list expiring credentials", err)
	}
	return creds, nil
}

func (s *SQLStore) FindByProviderAccount(ctx context.Context, provider models.Provider, accountID string) (*models.Credential, error) {
	query := s.dialect.Rebind(`SELECT ` + credentialColumns + `
		FROM oauth_credentials
		WHERE provider = ? AND (extension_id = ? OR account_id = ?)
		ORDER BY CASE WHEN extension_id = ? THEN 0 ELSE 1 END, updated_at DESC
		LIMIT 1`)
	cred, err := scanCredential(s.db.QueryRowContext(ctx, query,
		string(provider), accountID, accountID, accountID))
	if err != nil {
		return nil, s.readError(err, "account_id", accountID)
	}
	return cred, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *SQLStore) readError(err error, key, value string) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFoundError("credential").WithContext(key, value)
	}
	return errors.StorageError("failed to read credential", err).WithContext(key, value)
}

func (s *SQLStore) checkUpdate(res sql.Result, err error, id string) error {
	if err != nil {
		return errors.StorageError("failed to update credential", err).WithContext("id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.StorageError("failed to read updated rows", err)
	}
	if n == 0 {
		return errors.NotFoundError("credential").WithContext("id", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		cred          models.Credential
		ownerKey      string
		provider      string
		accessExpiry  sql.NullTime
		refreshExpiry sql.NullTime
		reauthAt      sql.NullTime
	)
	err := row.Scan(
		&cred.ID, &ownerKey, &provider, &cred.AccountEmail, &cred.AccountID,
		&cred.ExtensionID, &cred.AccountName, &cred.AccessToken, &cred.RefreshToken,
		&cred.TokenType, &cred.Scope, &accessExpiry, &refreshExpiry, &reauthAt,
		&cred.CreatedAt, &cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	owner, err := models.ParseOwnerKey(ownerKey)
	if err != nil {
		return nil, err
	}
	cred.Owner = owner
	cred.Provider = models.Provider(provider)
	if accessExpiry.Valid {
		cred.AccessExpiry = accessExpiry.Time.UTC()
	}
	if refreshExpiry.Valid {
		cred.RefreshExpiry = refreshExpiry.Time.UTC()
	}
	if reauthAt.Valid {
		cred.ReauthRequiredAt = reauthAt.Time.UTC()
	}
	return &cred, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
