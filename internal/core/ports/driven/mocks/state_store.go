package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
)

// MockStateStore is an in-memory OAuthStateStore for testing.
// Claim performs the same check-and-set the PostgreSQL store does, under a
// mutex, so concurrent claim tests exercise real single-winner semantics.
type MockStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.OAuthState

	// SaveErr, ClaimErr and DeleteErr force storage failures when set.
	SaveErr   error
	ClaimErr  error
	DeleteErr error
}

// NewMockStateStore creates an empty MockStateStore
func NewMockStateStore() *MockStateStore {
	return &MockStateStore{states: make(map[string]*domain.OAuthState)}
}

func (m *MockStateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.states[state.Token] = &cp
	return nil
}

func (m *MockStateStore) Claim(ctx context.Context, token string, now time.Time) (*domain.OAuthState, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[token]
	if !ok || !state.Consumable(now) {
		return nil, nil
	}
	state.Consumed = true
	cp := *state
	return &cp, nil
}

func (m *MockStateStore) Get(ctx context.Context, token string) (*domain.OAuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[token]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

func (m *MockStateStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, state := range m.states {
		if state.Expired(now) {
			delete(m.states, token)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored states
func (m *MockStateStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
