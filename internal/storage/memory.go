package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/utils"
	"crm-connect/internal/models"
)

// MemoryStore keeps credentials in process. Values handed out are copies.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]*models.Credential
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey: make(map[string]*models.Credential),
		now:   time.Now,
	}
}

func memoryKey(owner models.Owner, provider models.Provider) string {
	return owner.Key() + "|" + string(provider)
}

func (m *MemoryStore) Upsert(_ context.Context, cred *models.Credential) (string, error) {
	if !cred.Owner.Valid() {
		return "", errors.ValidationError("credential owner is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	key := memoryKey(cred.Owner, cred.Provider)
	next := cred.Clone()
	if next.TokenType == "" {
		next.TokenType = "Bearer"
	}

	if existing, ok := m.byKey[key]; ok {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		if next.RefreshToken == "" {
			next.RefreshToken = existing.RefreshToken
			next.RefreshExpiry = existing.RefreshExpiry
		}
	} else {
		if next.ID == "" {
			next.ID = utils.NewCredentialID()
		}
		next.CreatedAt = now
	}
	next.ReauthRequiredAt = time.Time{}
	next.UpdatedAt = now
	m.byKey[key] = next

	cred.ID = next.ID
	return next.ID, nil
}

func (m *MemoryStore) Get(_ context.Context, owner models.Owner, provider models.Provider) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cred, ok := m.byKey[memoryKey(owner, provider)]; ok {
		return cred.Clone(), nil
	}
	return nil, errors.NotFoundError("credential").WithContext("owner", owner.Key())
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cred := m.findID(id); cred != nil {
		return cred.Clone(), nil
	}
	return nil, errors.NotFoundError("credential").WithContext("id", id)
}

func (m *MemoryStore) UpdateAccessToken(_ context.Context, id, accessToken string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred := m.findID(id)
	if cred == nil {
		return errors.NotFoundError("credential").WithContext("id", id)
	}
	cred.AccessToken = accessToken
	cred.AccessExpiry = expiry
	cred.ReauthRequiredAt = time.Time{}
	cred.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) UpdateTokens(_ context.Context, next *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred := m.findID(next.ID)
	if cred == nil {
		return errors.NotFoundError("credential").WithContext("id", next.ID)
	}
	cred.AccessToken = next.AccessToken
	cred.AccessExpiry = next.AccessExpiry
	if next.RefreshToken != "" {
		cred.RefreshToken = next.RefreshToken
	}
	cred.RefreshExpiry = next.RefreshExpiry
	cred.TokenType = next.TokenType
	cred.Scope = next.Scope
	cred.ReauthRequiredAt = time.Time{}
	cred.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) MarkReauthRequired(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred := m.findID(id)
	if cred == nil {
		return errors.NotFoundError("credential").WithContext("id", id)
	}
	cred.ReauthRequiredAt = at.UTC()
	cred.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, owner models.Owner, provider models.Provider) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(owner, provider)
	if _, ok := m.byKey[key]; !ok {
		return 0, nil
	}
	delete(m.byKey, key)
	return 1, nil
}

func (m *MemoryStore) ListExpiring(_ context.Context, before time.Time, limit int) ([]*models.Credential, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	var creds []*models.Credential
	for _, cred := range m.byKey {
		if cred.RefreshToken == "" || cred.NeedsReauth() {
			continue
		}
		if cred.AccessExpiry.IsZero() || cred.AccessExpiry.Before(before) {
			creds = append(creds, cred.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(creds, func(i, j int) bool {
		return creds[i].AccessExpiry.Before(creds[j].AccessExpiry)
	})
	if len(creds) > limit {
		creds = creds[:limit]
	}
	return creds, nil
}

func (m *MemoryStore) FindByProviderAccount(_ context.Context, provider models.Provider, accountID string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var byAccount *models.Credential
	for _, cred := range m.byKey {
		if cred.Provider != provider {
			continue
		}
		if cred.ExtensionID == accountID {
			return cred.Clone(), nil
		}
		if cred.AccountID == accountID && byAccount == nil {
			byAccount = cred
		}
	}
	if byAccount != nil {
		return byAccount.Clone(), nil
	}
	return nil, errors.NotFoundError("credential").WithContext("account_id", accountID)
}

func (m *MemoryStore) Close() error  { return nil }
func (m *MemoryStore) Health() error { return nil }

func (m *MemoryStore) findID(id string) *models.Credential {
	for _, cred := range m.byKey {
		if cred.ID == id {
			return cred
		}
	}
	return nil
}
