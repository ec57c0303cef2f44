package driven

import "github.com/stocklane-labs/stocklane-core/internal/core/domain"

// TokenVerifier validates dashboard bearer tokens issued by the external
// identity provider and extracts the caller's identity.
type TokenVerifier interface {
	// VerifyToken parses and validates a bearer token.
	// Returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	VerifyToken(token string) (*domain.AuthContext, error)
}
