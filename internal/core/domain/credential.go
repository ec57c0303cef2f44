package domain

import "time"

// MarketplaceCredential holds one organization's connection to a marketplace:
// the OAuth client configuration plus the tokens obtained from the provider.
//
// The OAuth subsystem is the sole writer of the token fields; the order
// adapter only reads them. Client configuration is read-only to this system.
type MarketplaceCredential struct {
	OrganizationID string      `json:"organization_id"`
	Marketplace    Marketplace `json:"marketplace"`

	// Client configuration, treated as secrets
	ClientID     string `json:"-"`
	ClientSecret string `json:"-"`
	RedirectURI  string `json:"-"`

	// Tokens from the provider, written only by the callback handler
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsConfigured reports whether the client credentials needed to start a
// connect flow are present
func (c *MarketplaceCredential) IsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

// Connected reports whether a provider access token has been obtained
func (c *MarketplaceCredential) Connected() bool {
	return c.AccessToken != ""
}

// TokenExpired reports whether the provider access token has expired
func (c *MarketplaceCredential) TokenExpired(now time.Time) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return now.After(*c.TokenExpiresAt)
}

// CredentialSummary is the safe view of a credential: no secret ever
// crosses this boundary.
type CredentialSummary struct {
	OrganizationID string      `json:"organization_id"`
	Marketplace    Marketplace `json:"marketplace"`
	Configured     bool        `json:"configured"`
	Connected      bool        `json:"connected"`
	TokenExpiresAt *time.Time  `json:"token_expires_at,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ToSummary converts a credential to its redacted summary
func (c *MarketplaceCredential) ToSummary() *CredentialSummary {
	return &CredentialSummary{
		OrganizationID: c.OrganizationID,
		Marketplace:    c.Marketplace,
		Configured:     c.IsConfigured(),
		Connected:      c.Connected(),
		TokenExpiresAt: c.TokenExpiresAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// ProviderToken is the result of a token-endpoint exchange
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
}

// ExpiresAt converts the relative expires_in to an absolute timestamp.
// Returns nil when the provider reported no expiry.
func (t *ProviderToken) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}

// SecretDiagnostic reports only presence and length of a configured secret,
// never its value
type SecretDiagnostic struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Length  int    `json:"length"`
}

// DiagnoseSecret builds the redacted diagnostic for one named secret
func DiagnoseSecret(name, value string) SecretDiagnostic {
	return SecretDiagnostic{
		Name:    name,
		Present: value != "",
		Length:  len(value),
	}
}
