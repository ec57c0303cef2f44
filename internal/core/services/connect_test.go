package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driven/mocks"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driving"
)

const testAuthEndpoint = "https://erp.example.com/oauth/authorize"

type connectFixture struct {
	creds     *mocks.MockCredentialStore
	states    *mocks.MockStateStore
	exchanger *mocks.MockCodeExchanger
	svc       driving.ConnectService
}

func newConnectFixture(t *testing.T) *connectFixture {
	t.Helper()

	creds := mocks.NewMockCredentialStore()
	states := mocks.NewMockStateStore()
	exchanger := mocks.NewMockCodeExchanger(&domain.ProviderToken{
		AccessToken:  "at-123",
		RefreshToken: "rt-456",
		TokenType:    "bearer",
		ExpiresIn:    3600,
	})

	err := creds.Save(context.Background(), &domain.MarketplaceCredential{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceERP,
		ClientID:       "client-1",
		ClientSecret:   "secret-1",
		RedirectURI:    "https://app.example.com/api/v1/oauth/callback",
	})
	require.NoError(t, err)

	svc := NewConnectService(ConnectServiceConfig{
		CredentialStore: creds,
		StateStore:      states,
		Exchanger:       exchanger,
		AuthEndpoint:    testAuthEndpoint,
		StateTTL:        2 * time.Minute,
		Logger:          slog.Default(),
	})

	return &connectFixture{creds: creds, states: states, exchanger: exchanger, svc: svc}
}

func TestAuthorize_Success(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Authorize(ctx, driving.AuthorizeRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceERP,
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(resp.AuthorizationURL, testAuthEndpoint+"?"))
	parsed, err := url.Parse(resp.AuthorizationURL)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/api/v1/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, resp.State, q.Get("state"))
	assert.Len(t, resp.State, domain.StateTokenBytes*2)

	// The state was durably stored before the URL was returned.
	stored, err := f.states.Get(ctx, resp.State)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "org-1", stored.OrganizationID)
	assert.False(t, stored.Consumed)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), resp.ExpiresAt, 5*time.Second)
}

func TestAuthorize_NotConfigured(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.Authorize(context.Background(), driving.AuthorizeRequest{
		OrganizationID: "org-without-creds",
		Marketplace:    domain.MarketplaceERP,
	})
	assert.ErrorIs(t, err, domain.ErrCredentialNotConfigured)
}

func TestAuthorize_NonOAuthMarketplace(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.Authorize(context.Background(), driving.AuthorizeRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceShopee,
	})
	assert.ErrorIs(t, err, domain.ErrMarketplaceNotFound)

	_, err = f.svc.Authorize(context.Background(), driving.AuthorizeRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.Marketplace("ebay"),
	})
	assert.ErrorIs(t, err, domain.ErrMarketplaceNotFound)
}

func TestAuthorize_StorageFailure(t *testing.T) {
	f := newConnectFixture(t)
	f.states.SaveErr = errors.New("connection refused")

	resp, err := f.svc.Authorize(context.Background(), driving.AuthorizeRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceERP,
	})
	// No dangling in-memory token: the flow aborts before a URL exists.
	require.Error(t, err)
	assert.Nil(t, resp)
}

func startFlow(t *testing.T, f *connectFixture) string {
	t.Helper()
	resp, err := f.svc.Authorize(context.Background(), driving.AuthorizeRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceERP,
	})
	require.NoError(t, err)
	return resp.State
}

func TestCallback_Success(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	state := startFlow(t, f)

	result, err := f.svc.Callback(ctx, driving.CallbackRequest{Code: "auth-code", State: state})
	require.NoError(t, err)
	assert.Equal(t, "org-1", result.OrganizationID)
	assert.Equal(t, domain.MarketplaceERP, result.Marketplace)

	// Exactly one provider call, with the presented code.
	assert.Equal(t, 1, f.exchanger.Calls())
	assert.Equal(t, "auth-code", f.exchanger.LastCode)

	// Tokens persisted for the organization bound to the state row.
	cred, err := f.creds.Get(ctx, "org-1", domain.MarketplaceERP)
	require.NoError(t, err)
	assert.Equal(t, "at-123", cred.AccessToken)
	assert.Equal(t, "rt-456", cred.RefreshToken)
	require.NotNil(t, cred.TokenExpiresAt)

	// State is consumed, not deleted: replays stay observable.
	stored, err := f.states.Get(ctx, state)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Consumed)
}

func TestCallback_Replay(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	state := startFlow(t, f)

	_, err := f.svc.Callback(ctx, driving.CallbackRequest{Code: "auth-code", State: state})
	require.NoError(t, err)

	_, err = f.svc.Callback(ctx, driving.CallbackRequest{Code: "auth-code", State: state})
	assert.ErrorIs(t, err, domain.ErrStateReplayed)

	// No second provider call, no second credential write.
	assert.Equal(t, 1, f.exchanger.Calls())
	assert.Equal(t, 1, f.creds.TokenWrites)
}

func TestCallback_Expired(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()

	expired := &domain.OAuthState{
		ID:             "ost_expired",
		Token:          "expired-token",
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceERP,
		CreatedAt:      time.Now().Add(-10 * time.Minute),
		ExpiresAt:      time.Now().Add(-time.Minute),
	}
	require.NoError(t, f.states.Save(ctx, expired))

	_, err := f.svc.Callback(ctx, driving.CallbackRequest{Code: "auth-code", State: "expired-token"})
	assert.ErrorIs(t, err, domain.ErrStateExpired)
	assert.NotErrorIs(t, err, domain.ErrStateNotFound)
	assert.Equal(t, 0, f.exchanger.Calls())
}

func TestCallback_UnknownState(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Code: "auth-code", State: "forged"})
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.Equal(t, 0, f.exchanger.Calls())
}

func TestCallback_ProviderError(t *testing.T) {
	f := newConnectFixture(t)
	state := startFlow(t, f)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{
		State:            state,
		Error:            "access_denied",
		ErrorDescription: "The user denied access",
	})
	assert.ErrorIs(t, err, domain.ErrExchangeFailed)
	assert.Equal(t, 0, f.exchanger.Calls())
}

func TestCallback_ExchangeFailureDoesNotRollBackConsumption(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	state := startFlow(t, f)

	f.exchanger.Err = errors.New("provider returned 400: invalid_grant")

	_, err := f.svc.Callback(ctx, driving.CallbackRequest{Code: "leaked-code", State: state})
	assert.ErrorIs(t, err, domain.ErrExchangeFailed)
	assert.Equal(t, 0, f.creds.TokenWrites)

	// A leaked code cannot be retried under the same state.
	f.exchanger.Err = nil
	_, err = f.svc.Callback(ctx, driving.CallbackRequest{Code: "leaked-code", State: state})
	assert.ErrorIs(t, err, domain.ErrStateReplayed)
	assert.Equal(t, 1, f.exchanger.Calls())
}

func TestCallback_TokenWriteFailure(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	state := startFlow(t, f)

	f.creds.SaveTokensErr = errors.New("connection reset")

	_, err := f.svc.Callback(ctx, driving.CallbackRequest{Code: "auth-code", State: state})
	require.Error(t, err)

	// All-or-nothing: no partial credential was written.
	cred, err := f.creds.Get(ctx, "org-1", domain.MarketplaceERP)
	require.NoError(t, err)
	assert.Empty(t, cred.AccessToken)
}

func TestCallback_ConcurrentSingleWinner(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	state := startFlow(t, f)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Callback(ctx, driving.CallbackRequest{Code: "auth-code", State: state})
		}(i)
	}
	wg.Wait()

	winners, replays := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrStateReplayed):
			replays++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, winners, "exactly one callback wins the claim")
	assert.Equal(t, n-1, replays)
	assert.Equal(t, 1, f.exchanger.Calls(), "exactly one provider exchange")
}

func TestCredentials_RedactedSummaries(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	state := startFlow(t, f)

	_, err := f.svc.Callback(ctx, driving.CallbackRequest{Code: "auth-code", State: state})
	require.NoError(t, err)

	summaries, err := f.svc.Credentials(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].Configured)
	assert.True(t, summaries[0].Connected)
}

func TestConfigure_Success(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()

	summary, err := f.svc.Configure(ctx, driving.ConfigureRequest{
		OrganizationID: "org-2",
		Marketplace:    domain.MarketplaceERP,
		ClientID:       "client-2",
		ClientSecret:   "secret-2",
		RedirectURI:    "https://app.example.com/api/v1/oauth/callback",
	})
	require.NoError(t, err)
	assert.True(t, summary.Configured)
	assert.False(t, summary.Connected)

	// The stored configuration is usable for a connect flow right away.
	_, err = f.svc.Authorize(ctx, driving.AuthorizeRequest{
		OrganizationID: "org-2",
		Marketplace:    domain.MarketplaceERP,
	})
	assert.NoError(t, err)
}

func TestConfigure_KeepsExchangedTokens(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	state := startFlow(t, f)

	_, err := f.svc.Callback(ctx, driving.CallbackRequest{Code: "auth-code", State: state})
	require.NoError(t, err)

	summary, err := f.svc.Configure(ctx, driving.ConfigureRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceERP,
		ClientID:       "rotated-client",
		ClientSecret:   "rotated-secret",
		RedirectURI:    "https://app.example.com/api/v1/oauth/callback",
	})
	require.NoError(t, err)
	assert.True(t, summary.Connected, "reconfiguration keeps exchanged tokens")
}

func TestConfigure_MissingFields(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.Configure(context.Background(), driving.ConfigureRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceERP,
		ClientID:       "client-1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigure_NonOAuthMarketplace(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.Configure(context.Background(), driving.ConfigureRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceMercadoLivre,
		ClientID:       "client-1",
		ClientSecret:   "secret-1",
		RedirectURI:    "https://app.example.com/api/v1/oauth/callback",
	})
	assert.ErrorIs(t, err, domain.ErrMarketplaceNotFound)
}

func TestConfigure_StorageFailure(t *testing.T) {
	f := newConnectFixture(t)
	f.creds.SaveErr = errors.New("disk full")

	_, err := f.svc.Configure(context.Background(), driving.ConfigureRequest{
		OrganizationID: "org-1",
		Marketplace:    domain.MarketplaceERP,
		ClientID:       "client-1",
		ClientSecret:   "secret-1",
		RedirectURI:    "https://app.example.com/api/v1/oauth/callback",
	})
	assert.ErrorContains(t, err, "disk full")
}
