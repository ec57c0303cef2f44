package driving

import (
	"context"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
)

// ConnectService manages the OAuth authorization-code lifecycle that links
// an organization to a marketplace API.
type ConnectService interface {
	// Authorize starts a connect flow: issues an anti-forgery state token,
	// persists it, and returns the provider authorization URL. The state
	// is durably stored before the URL is returned.
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)

	// Callback handles the provider redirect. It consumes the state token
	// exactly once, exchanges the code for tokens, and persists them.
	// Consumption is terminal: a failed exchange does not make the state
	// reusable, the user restarts the flow with a fresh state.
	Callback(ctx context.Context, req CallbackRequest) (*ConnectionResult, error)

	// Configure stores the client configuration an organization uses to
	// talk to a marketplace. Replaces any previous configuration; provider
	// tokens already exchanged are kept.
	Configure(ctx context.Context, req ConfigureRequest) (*domain.CredentialSummary, error)

	// Credentials lists redacted credential summaries for an organization.
	Credentials(ctx context.Context, organizationID string) ([]*domain.CredentialSummary, error)
}

// ConfigureRequest sets an organization's client configuration
// @Description Request to store marketplace client configuration
type ConfigureRequest struct {
	// OrganizationID is the tenant the configuration belongs to.
	OrganizationID string `json:"-"`

	// Marketplace is the provider being configured.
	Marketplace domain.Marketplace `json:"-"`

	// ClientID identifies the registered application.
	ClientID string `json:"client_id" example:"stocklane-prod"`

	// ClientSecret authenticates the token exchange. Never echoed back.
	ClientSecret string `json:"client_secret" example:"s3cr3t"`

	// RedirectURI must match the URI registered with the provider.
	RedirectURI string `json:"redirect_uri" example:"https://api.stocklane.example.com/api/v1/oauth/callback"`
}

// AuthorizeRequest starts a connect flow for one organization
// @Description Request to start a marketplace OAuth connect flow
type AuthorizeRequest struct {
	// OrganizationID is the tenant initiating the flow.
	OrganizationID string `json:"organization_id" example:"org_8f14e45f"`

	// Marketplace is the provider to connect (currently only "erp").
	Marketplace domain.Marketplace `json:"marketplace" example:"erp"`
}

// AuthorizeResponse contains the authorization URL for the front channel
// @Description Response containing the provider authorization URL
type AuthorizeResponse struct {
	// AuthorizationURL is where the top-level browsing context must
	// navigate to reach the provider's consent page.
	AuthorizationURL string `json:"authorization_url" example:"https://erp.example.com/oauth/authorize?client_id=..."`

	// State is the anti-forgery token embedded in the URL, returned for
	// reference.
	State string `json:"state" example:"9f86d081884c7d65"`

	// ExpiresAt is when the state token stops being valid.
	ExpiresAt time.Time `json:"expires_at" example:"2026-08-30T10:10:00Z"`
}

// CallbackRequest carries the provider redirect query parameters
type CallbackRequest struct {
	// Code is the single-use authorization code.
	Code string

	// State is the anti-forgery token echoed back by the provider.
	State string

	// Error is set when the provider reported a failure instead of a code.
	Error string

	// ErrorDescription details the provider failure.
	ErrorDescription string
}

// ConnectionResult reports a completed token exchange
type ConnectionResult struct {
	OrganizationID string             `json:"organization_id"`
	Marketplace    domain.Marketplace `json:"marketplace"`
	Message        string             `json:"message" example:"Successfully connected to ERP"`
}

// Sweeper reclaims expired state tokens.
type Sweeper interface {
	// SweepOnce deletes every expired state token and reports the count.
	// Idempotent: a second invocation with no newly expired rows removes
	// zero rows without error.
	SweepOnce(ctx context.Context) (*SweepResult, error)
}

// SweepResult reports one sweep cycle for the maintenance endpoint
// @Description Result of an expiry sweep
type SweepResult struct {
	// Removed is the number of expired state tokens deleted.
	Removed int `json:"removed" example:"3"`

	// At is when the sweep ran.
	At time.Time `json:"at" example:"2026-08-30T10:00:00Z"`
}
