package driven

import (
	"context"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
)

// CredentialStore persists per-organization marketplace credentials.
//
// The OAuth subsystem is the sole writer of token fields; the order
// adapter reads credentials through the same store. Secrets are encrypted
// at rest by the implementation.
type CredentialStore interface {
	// Save stores or updates a credential's client configuration (upsert).
	Save(ctx context.Context, cred *domain.MarketplaceCredential) error

	// Get retrieves a credential with decrypted secrets, or (nil, nil)
	// when the organization has none for the marketplace.
	Get(ctx context.Context, organizationID string, marketplace domain.Marketplace) (*domain.MarketplaceCredential, error)

	// SaveTokens writes the tokens obtained from a successful exchange
	// into the organization's credential row. Single-row update: either
	// every token field is written or none is. Last successful exchange
	// wins.
	SaveTokens(ctx context.Context, organizationID string, marketplace domain.Marketplace, accessToken, refreshToken string, expiresAt *time.Time) error

	// List retrieves redacted summaries for an organization.
	List(ctx context.Context, organizationID string) ([]*domain.CredentialSummary, error)
}
