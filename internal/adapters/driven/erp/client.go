package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.CodeExchanger = (*Client)(nil)

// DefaultTimeout bounds the token exchange round trip. The callback
// handler holds a consumed state while this runs, so the exchange must
// not hang indefinitely.
const DefaultTimeout = 10 * time.Second

// Client exchanges authorization codes against the ERP marketplace
// token endpoint. Exchanges are never retried: the provider treats
// authorization codes as single-use, so a retry after an ambiguous
// failure could not succeed anyway.
type Client struct {
	tokenURL   string
	httpClient *http.Client
}

// NewClient creates a new ERP token exchange client.
func NewClient(tokenURL string) *Client {
	return &Client{
		tokenURL:   tokenURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// NewClientWithHTTPClient creates a client with a custom HTTP client,
// used by tests to control timeouts.
func NewClientWithHTTPClient(tokenURL string, httpClient *http.Client) *Client {
	return &Client{tokenURL: tokenURL, httpClient: httpClient}
}

// ExchangeCode exchanges an authorization code for provider tokens.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*domain.ProviderToken, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"redirect_uri":  {redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
		ErrorDesc    string `json:"error_description"`
	}

	if resp.StatusCode != http.StatusOK {
		// Providers put the diagnostic in the error body; surface it to
		// the caller for server-side logging only.
		if json.Unmarshal(body, &tokenResp) == nil && tokenResp.Error != "" {
			return nil, fmt.Errorf("token exchange failed (%d): %s - %s",
				resp.StatusCode, tokenResp.Error, tokenResp.ErrorDesc)
		}
		return nil, fmt.Errorf("token exchange failed (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if tokenResp.Error != "" {
		return nil, fmt.Errorf("oauth error: %s - %s", tokenResp.Error, tokenResp.ErrorDesc)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned no access token")
	}

	return &domain.ProviderToken{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}
