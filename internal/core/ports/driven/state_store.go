package driven

import (
	"context"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
)

// OAuthStateStore persists anti-forgery state tokens for connect flows.
//
// The store's conditional-update primitive is the only consumption
// guard: callback handlers may run in separate processes, so an
// in-process lock would not help.
type OAuthStateStore interface {
	// Save durably stores a newly issued state. The connect flow must not
	// proceed on a state that was not persisted.
	Save(ctx context.Context, state *domain.OAuthState) error

	// Claim atomically marks the state consumed if and only if it is
	// currently unconsumed and unexpired at the given instant, and returns
	// it. Exactly one concurrent caller can win the claim. Returns
	// (nil, nil) when the token cannot be claimed; callers use Get to
	// classify why.
	Claim(ctx context.Context, token string, now time.Time) (*domain.OAuthState, error)

	// Get returns the state for a token without mutating it, or (nil, nil)
	// when no row exists. Used to distinguish absent, replayed, and
	// expired tokens after a failed Claim.
	Get(ctx context.Context, token string) (*domain.OAuthState, error)

	// DeleteExpired removes every state with expires_at before now and
	// returns the number of rows removed. Idempotent and safe to run
	// concurrently with itself and with Claim.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
