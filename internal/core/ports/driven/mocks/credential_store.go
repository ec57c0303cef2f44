package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
)

// MockCredentialStore is an in-memory CredentialStore for testing
type MockCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*domain.MarketplaceCredential

	// SaveErr forces configuration writes to fail when set.
	SaveErr error
	// SaveTokensErr forces the token write to fail when set.
	SaveTokensErr error
	// GetErr forces reads to fail when set.
	GetErr error

	// TokenWrites counts SaveTokens calls.
	TokenWrites int
}

// NewMockCredentialStore creates an empty MockCredentialStore
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{creds: make(map[string]*domain.MarketplaceCredential)}
}

func key(organizationID string, marketplace domain.Marketplace) string {
	return organizationID + ":" + string(marketplace)
}

func (m *MockCredentialStore) Save(ctx context.Context, cred *domain.MarketplaceCredential) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *cred
	// Reconfiguration keeps previously exchanged tokens, matching the
	// durable store.
	if prev, ok := m.creds[key(cred.OrganizationID, cred.Marketplace)]; ok {
		cp.AccessToken = prev.AccessToken
		cp.RefreshToken = prev.RefreshToken
		cp.TokenExpiresAt = prev.TokenExpiresAt
		cp.CreatedAt = prev.CreatedAt
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	m.creds[key(cred.OrganizationID, cred.Marketplace)] = &cp
	return nil
}

func (m *MockCredentialStore) Get(ctx context.Context, organizationID string, marketplace domain.Marketplace) (*domain.MarketplaceCredential, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.creds[key(organizationID, marketplace)]
	if !ok {
		return nil, nil
	}
	cp := *cred
	return &cp, nil
}

func (m *MockCredentialStore) SaveTokens(ctx context.Context, organizationID string, marketplace domain.Marketplace, accessToken, refreshToken string, expiresAt *time.Time) error {
	if m.SaveTokensErr != nil {
		return m.SaveTokensErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TokenWrites++
	cred, ok := m.creds[key(organizationID, marketplace)]
	if !ok {
		cred = &domain.MarketplaceCredential{
			OrganizationID: organizationID,
			Marketplace:    marketplace,
			CreatedAt:      time.Now(),
		}
		m.creds[key(organizationID, marketplace)] = cred
	}
	cred.AccessToken = accessToken
	cred.RefreshToken = refreshToken
	cred.TokenExpiresAt = expiresAt
	cred.UpdatedAt = time.Now()
	return nil
}

func (m *MockCredentialStore) List(ctx context.Context, organizationID string) ([]*domain.CredentialSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var summaries []*domain.CredentialSummary
	for _, cred := range m.creds {
		if cred.OrganizationID == organizationID {
			summaries = append(summaries, cred.ToSummary())
		}
	}
	return summaries, nil
}
