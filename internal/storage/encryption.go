package storage

import (
	"context"
	"time"

	"crm-connect/internal/crypto"
	"crm-connect/internal/models"
)

// EncryptedStore seals access and refresh tokens before they reach the
// wrapped store. Ciphertexts are bound to "<owner key>|<provider>".
type EncryptedStore struct {
	inner  Store
	cipher *crypto.TokenCipher
}

func NewEncryptedStore(inner Store, cipher *crypto.TokenCipher) *EncryptedStore {
	return &EncryptedStore{inner: inner, cipher: cipher}
}

func binding(owner models.Owner, provider models.Provider) string {
	return owner.Key() + "|" + string(provider)
}

func (e *EncryptedStore) seal(cred *models.Credential) (*models.Credential, error) {
	b := binding(cred.Owner, cred.Provider)
	sealed := cred.Clone()

	var err error
	if sealed.AccessToken, err = e.cipher.Encrypt(cred.AccessToken, b); err != nil {
		return nil, err
	}
	if sealed.RefreshToken, err = e.cipher.Encrypt(cred.RefreshToken, b); err != nil {
		return nil, err
	}
	return sealed, nil
}

func (e *EncryptedStore) open(cred *models.Credential) (*models.Credential, error) {
	b := binding(cred.Owner, cred.Provider)

	var err error
	if cred.AccessToken, err = e.cipher.Decrypt(cred.AccessToken, b); err != nil {
		return nil, err
	}
	if cred.RefreshToken, err = e.cipher.Decrypt(cred.RefreshToken, b); err != nil {
		return nil, err
	}
	return cred, nil
}

func (e *EncryptedStore) Upsert(ctx context.Context, cred *models.Credential) (string, error) {
	sealed, err := e.seal(cred)
	if err != nil {
		return "", err
	}
	id, err := e.inner.Upsert(ctx, sealed)
	if err != nil {
		return "", err
	}
	cred.ID = id
	return id, nil
}

func (e *EncryptedStore) Get(ctx context.Context, owner models.Owner, provider models.Provider) (*models.Credential, error) {
	cred, err := e.inner.Get(ctx, owner, provider)
	if err != nil {
		return nil, err
	}
	return e.open(cred)
}

func (e *EncryptedStore) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	cred, err := e.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.open(cred)
}

// UpdateAccessToken needs the row's owner for the binding, so it costs one
// extra read compared with the plain store.
func (e *EncryptedStore) UpdateAccessToken(ctx context.Context, id, accessToken string, expiry time.Time) error {
	current, err := e.inner.GetByID(ctx, id)
	if err != nil {
		return err
	}
	sealed, err := e.cipher.Encrypt(accessToken, binding(current.Owner, current.Provider))
	if err != nil {
		return err
	}
	return e.inner.UpdateAccessToken(ctx, id, sealed, expiry)
}

func (e *EncryptedStore) UpdateTokens(ctx context.Context, cred *models.Credential) error {
	sealed, err := e.seal(cred)
	if err != nil {
		return err
	}
	return e.inner.UpdateTokens(ctx, sealed)
}

func (e *EncryptedStore) MarkReauthRequired(ctx context.Context, id string, at time.Time) error {
	return e.inner.MarkReauthRequired(ctx, id, at)
}

func (e *EncryptedStore) Delete(ctx context.Context, owner models.Owner, provider models.Provider) (int64, error) {
	return e.inner.Delete(ctx, owner, provider)
}

func (e *EncryptedStore) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*models.Credential, error) {
	creds, err := e.inner.ListExpiring(ctx, before, limit)
	if err != nil {
		return nil, err
	}
	for i, cred := range creds {
		if creds[i], err = e.open(cred); err != nil {
			return nil, err
		}
	}
	return creds, nil
}

func (e *EncryptedStore) FindByProviderAccount(ctx context.Context, provider models.Provider, accountID string) (*models.Credential, error) {
	cred, err := e.inner.FindByProviderAccount(ctx, provider, accountID)
	if err != nil {
		return nil, err
	}
	return e.open(cred)
}

func (e *EncryptedStore) Close() error  { return e.inner.Close() }
func (e *EncryptedStore) Health() error { return e.inner.Health() }
