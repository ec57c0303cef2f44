package mocks

import (
	"context"
	"sync"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
)

// MockCodeExchanger is a CodeExchanger for testing that counts calls
type MockCodeExchanger struct {
	mu    sync.Mutex
	calls int

	// Token is returned on success.
	Token *domain.ProviderToken
	// Err forces the exchange to fail when set.
	Err error
	// LastCode records the authorization code of the most recent call.
	LastCode string
}

// NewMockCodeExchanger creates a MockCodeExchanger returning the given token
func NewMockCodeExchanger(token *domain.ProviderToken) *MockCodeExchanger {
	return &MockCodeExchanger{Token: token}
}

func (m *MockCodeExchanger) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*domain.ProviderToken, error) {
	m.mu.Lock()
	m.calls++
	m.LastCode = code
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	cp := *m.Token
	return &cp, nil
}

// Calls returns the number of exchange attempts made
func (m *MockCodeExchanger) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
