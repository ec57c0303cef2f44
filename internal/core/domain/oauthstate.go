package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// StateTokenBytes is the entropy of a state token. 16 bytes = 128 bits,
// the minimum for an unguessable anti-forgery value.
const StateTokenBytes = 16

// DefaultStateTTL is the default lifetime of an issued state token.
// Sized well above the expected provider round-trip so a row mid-exchange
// is never eligible for sweeping.
const DefaultStateTTL = 10 * time.Minute

// OAuthState is a one-time anti-forgery token binding a provider callback
// to a connect flow this system initiated.
//
// Lifecycle: issued (Consumed=false) -> consumed exactly once by the
// callback handler, or deleted by the sweeper after ExpiresAt. A consumed
// row is retained until it expires so replay attempts stay observable.
type OAuthState struct {
	// ID is the row identifier (ost_ prefix + random hex).
	ID string

	// Token is the random state value echoed back by the provider.
	Token string

	// OrganizationID is the tenant that initiated the connect flow.
	OrganizationID string

	// Marketplace is the provider being connected.
	Marketplace Marketplace

	// CreatedAt is when the state was issued.
	CreatedAt time.Time

	// ExpiresAt is when the state stops being consumable. Always after
	// CreatedAt.
	ExpiresAt time.Time

	// Consumed is set exactly once by the callback handler.
	Consumed bool
}

// Expired reports whether the state's TTL has elapsed at the given instant
func (s *OAuthState) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Consumable reports whether a callback presenting this state may claim it
func (s *OAuthState) Consumable(now time.Time) bool {
	return !s.Consumed && !s.Expired(now)
}

// NewOAuthState issues a state token for an organization with the given TTL.
// The token carries StateTokenBytes of crypto/rand entropy.
func NewOAuthState(organizationID string, marketplace Marketplace, ttl time.Duration) (*OAuthState, error) {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}

	token, err := randomHex(StateTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate state token: %w", err)
	}

	id, err := randomHex(8)
	if err != nil {
		return nil, fmt.Errorf("generate state id: %w", err)
	}

	now := time.Now()
	return &OAuthState{
		ID:             "ost_" + id,
		Token:          token,
		OrganizationID: organizationID,
		Marketplace:    marketplace,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}, nil
}

// randomHex returns n cryptographically random bytes hex-encoded
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
