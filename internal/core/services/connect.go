package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driven"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driving"
)

// Ensure connectService implements ConnectService
var _ driving.ConnectService = (*connectService)(nil)

// ConnectServiceConfig holds configuration for the connect service.
type ConnectServiceConfig struct {
	// CredentialStore holds per-organization marketplace credentials.
	CredentialStore driven.CredentialStore

	// StateStore persists anti-forgery state tokens.
	StateStore driven.OAuthStateStore

	// Exchanger performs the provider token-endpoint call.
	Exchanger driven.CodeExchanger

	// AuthEndpoint is the provider's authorization page URL.
	// Example: "https://erp.example.com/oauth/authorize"
	AuthEndpoint string

	// StateTTL is the lifetime of issued state tokens.
	// Defaults to domain.DefaultStateTTL.
	StateTTL time.Duration

	Logger *slog.Logger
}

// connectService implements the ConnectService interface.
type connectService struct {
	credentialStore driven.CredentialStore
	stateStore      driven.OAuthStateStore
	exchanger       driven.CodeExchanger
	authEndpoint    string
	stateTTL        time.Duration
	logger          *slog.Logger

	// now is swapped in tests to control expiry decisions
	now func() time.Time
}

// NewConnectService creates a new connect service.
func NewConnectService(cfg ConnectServiceConfig) driving.ConnectService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = domain.DefaultStateTTL
	}

	return &connectService{
		credentialStore: cfg.CredentialStore,
		stateStore:      cfg.StateStore,
		exchanger:       cfg.Exchanger,
		authEndpoint:    cfg.AuthEndpoint,
		stateTTL:        ttl,
		logger:          logger,
		now:             time.Now,
	}
}

// Authorize starts a connect flow: it issues a state token, persists it,
// and builds the provider authorization URL. The URL is only returned
// once the state is durably stored.
func (s *connectService) Authorize(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	if req.OrganizationID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !req.Marketplace.Valid() || !req.Marketplace.SupportsOAuth() {
		return nil, domain.ErrMarketplaceNotFound
	}

	cred, err := s.credentialStore.Get(ctx, req.OrganizationID, req.Marketplace)
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	if cred == nil || !cred.IsConfigured() {
		return nil, domain.ErrCredentialNotConfigured
	}

	state, err := domain.NewOAuthState(req.OrganizationID, req.Marketplace, s.stateTTL)
	if err != nil {
		return nil, fmt.Errorf("issue state: %w", err)
	}

	if err := s.stateStore.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	params := url.Values{
		"client_id":     {cred.ClientID},
		"redirect_uri":  {cred.RedirectURI},
		"state":         {state.Token},
		"response_type": {"code"},
	}

	s.logger.Info("connect flow started",
		"organization_id", req.OrganizationID,
		"marketplace", req.Marketplace,
		"state_id", state.ID,
		"expires_at", state.ExpiresAt,
	)

	return &driving.AuthorizeResponse{
		AuthorizationURL: s.authEndpoint + "?" + params.Encode(),
		State:            state.Token,
		ExpiresAt:        state.ExpiresAt,
	}, nil
}

// Callback validates and consumes the state token exactly once, then
// exchanges the authorization code for tokens and persists them.
//
// The claim is a single conditional update in the store: of N concurrent
// callbacks presenting the same token, exactly one proceeds to the
// exchange and the rest observe a replay. A failed exchange leaves the
// state consumed; the user restarts with a fresh state token.
func (s *connectService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.ConnectionResult, error) {
	if req.Error != "" {
		// Provider error text is logged server-side only.
		s.logger.Warn("provider returned error on callback",
			"error", req.Error,
			"description", req.ErrorDescription,
		)
		return nil, domain.ErrExchangeFailed
	}
	if req.State == "" || req.Code == "" {
		return nil, domain.ErrStateNotFound
	}

	state, err := s.stateStore.Claim(ctx, req.State, s.now())
	if err != nil {
		return nil, fmt.Errorf("claim state: %w", err)
	}
	if state == nil {
		return nil, s.classifyUnclaimable(ctx, req.State)
	}

	cred, err := s.credentialStore.Get(ctx, state.OrganizationID, state.Marketplace)
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	if cred == nil || !cred.IsConfigured() {
		return nil, domain.ErrCredentialNotConfigured
	}

	token, err := s.exchanger.ExchangeCode(ctx, cred.ClientID, cred.ClientSecret, req.Code, cred.RedirectURI)
	if err != nil {
		// The state stays consumed: retrying a used code is never safe.
		s.logger.Error("token exchange failed",
			"organization_id", state.OrganizationID,
			"marketplace", state.Marketplace,
			"state_id", state.ID,
			"error", err,
		)
		return nil, domain.ErrExchangeFailed
	}

	expiresAt := token.ExpiresAt(s.now())
	if err := s.credentialStore.SaveTokens(ctx, state.OrganizationID, state.Marketplace,
		token.AccessToken, token.RefreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("save tokens: %w", err)
	}

	s.logger.Info("marketplace connected",
		"organization_id", state.OrganizationID,
		"marketplace", state.Marketplace,
		"state_id", state.ID,
	)

	return &driving.ConnectionResult{
		OrganizationID: state.OrganizationID,
		Marketplace:    state.Marketplace,
		Message:        fmt.Sprintf("Successfully connected to %s", state.Marketplace.DisplayName()),
	}, nil
}

// classifyUnclaimable distinguishes why a claim found nothing: the token
// is absent, already consumed, or expired. Replays are logged distinctly
// because they indicate a doubled callback or an attacker replaying an
// intercepted redirect.
func (s *connectService) classifyUnclaimable(ctx context.Context, token string) error {
	state, err := s.stateStore.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("inspect state: %w", err)
	}
	if state == nil {
		return domain.ErrStateNotFound
	}
	if state.Consumed {
		s.logger.Warn("state token replay detected",
			"organization_id", state.OrganizationID,
			"marketplace", state.Marketplace,
			"state_id", state.ID,
		)
		return domain.ErrStateReplayed
	}
	return domain.ErrStateExpired
}

// Configure stores an organization's client configuration for a
// marketplace. Tokens already exchanged survive a reconfiguration.
func (s *connectService) Configure(ctx context.Context, req driving.ConfigureRequest) (*domain.CredentialSummary, error) {
	if req.OrganizationID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !req.Marketplace.Valid() || !req.Marketplace.SupportsOAuth() {
		return nil, domain.ErrMarketplaceNotFound
	}
	if req.ClientID == "" || req.ClientSecret == "" || req.RedirectURI == "" {
		return nil, domain.ErrInvalidInput
	}

	cred := &domain.MarketplaceCredential{
		OrganizationID: req.OrganizationID,
		Marketplace:    req.Marketplace,
		ClientID:       req.ClientID,
		ClientSecret:   req.ClientSecret,
		RedirectURI:    req.RedirectURI,
	}

	if err := s.credentialStore.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	s.logger.Info("marketplace credential configured",
		"organization_id", req.OrganizationID,
		"marketplace", req.Marketplace,
	)

	// Read back so the summary reflects tokens kept from an earlier
	// exchange, not just the fields written here.
	stored, err := s.credentialStore.Get(ctx, req.OrganizationID, req.Marketplace)
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	if stored == nil {
		return cred.ToSummary(), nil
	}
	return stored.ToSummary(), nil
}

// Credentials lists redacted credential summaries for an organization.
func (s *connectService) Credentials(ctx context.Context, organizationID string) ([]*domain.CredentialSummary, error) {
	if organizationID == "" {
		return nil, domain.ErrInvalidInput
	}
	summaries, err := s.credentialStore.List(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return summaries, nil
}
