package driven

import (
	"context"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
)

// CodeExchanger exchanges an authorization code for provider tokens.
//
// Implementations must bound the call with a timeout and must not retry:
// providers invalidate an authorization code after its first use
// regardless of outcome.
type CodeExchanger interface {
	// ExchangeCode posts {code, client_id, client_secret, redirect_uri,
	// grant_type=authorization_code} to the provider token endpoint.
	ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*domain.ProviderToken, error)
}
