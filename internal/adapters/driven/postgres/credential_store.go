package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements driven.CredentialStore using PostgreSQL.
// Client configuration and provider tokens are stored as separate
// encrypted blobs so a token write never touches the configuration.
type CredentialStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// clientConfig is the encrypted shape of the client configuration blob
type clientConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
}

// providerTokens is the encrypted shape of the token blob
type providerTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewCredentialStore creates a new PostgreSQL-backed credential store.
func NewCredentialStore(db *DB, encryptor *SecretEncryptor) *CredentialStore {
	return &CredentialStore{db: db, encryptor: encryptor}
}

// Save stores or updates a credential's client configuration (upsert).
// Existing provider tokens are preserved.
func (s *CredentialStore) Save(ctx context.Context, cred *domain.MarketplaceCredential) error {
	configBlob, err := s.encryptor.Encrypt(clientConfig{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RedirectURI:  cred.RedirectURI,
	})
	if err != nil {
		return fmt.Errorf("encrypt config: %w", err)
	}

	now := time.Now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	query := `
		INSERT INTO marketplace_credentials (
			organization_id, marketplace, config_blob, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, marketplace) DO UPDATE SET
			config_blob = EXCLUDED.config_blob,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		cred.OrganizationID,
		string(cred.Marketplace),
		configBlob,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	return nil
}

// Get retrieves a credential with decrypted secrets.
func (s *CredentialStore) Get(ctx context.Context, organizationID string, marketplace domain.Marketplace) (*domain.MarketplaceCredential, error) {
	query := `
		SELECT organization_id, marketplace, config_blob, token_blob,
		       token_expires_at, created_at, updated_at
		FROM marketplace_credentials
		WHERE organization_id = $1 AND marketplace = $2
	`

	var cred domain.MarketplaceCredential
	var mp string
	var configBlob, tokenBlob []byte
	var tokenExpiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, organizationID, string(marketplace)).Scan(
		&cred.OrganizationID,
		&mp,
		&configBlob,
		&tokenBlob,
		&tokenExpiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Not found returns nil, not error
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	cred.Marketplace = domain.Marketplace(mp)
	cred.TokenExpiresAt = TimePtr(tokenExpiresAt)

	if len(configBlob) > 0 {
		var cfg clientConfig
		if err := s.encryptor.Decrypt(configBlob, &cfg); err != nil {
			return nil, fmt.Errorf("decrypt config: %w", err)
		}
		cred.ClientID = cfg.ClientID
		cred.ClientSecret = cfg.ClientSecret
		cred.RedirectURI = cfg.RedirectURI
	}

	if len(tokenBlob) > 0 {
		var tokens providerTokens
		if err := s.encryptor.Decrypt(tokenBlob, &tokens); err != nil {
			return nil, fmt.Errorf("decrypt tokens: %w", err)
		}
		cred.AccessToken = tokens.AccessToken
		cred.RefreshToken = tokens.RefreshToken
	}

	return &cred, nil
}

// SaveTokens writes the exchanged tokens into the organization's
// credential row. Single-row conditional update: the write is
// all-or-nothing and the last successful exchange wins.
func (s *CredentialStore) SaveTokens(ctx context.Context, organizationID string, marketplace domain.Marketplace, accessToken, refreshToken string, expiresAt *time.Time) error {
	tokenBlob, err := s.encryptor.Encrypt(providerTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
	if err != nil {
		return fmt.Errorf("encrypt tokens: %w", err)
	}

	query := `
		UPDATE marketplace_credentials
		SET token_blob = $3, token_expires_at = $4, updated_at = NOW()
		WHERE organization_id = $1 AND marketplace = $2
	`

	result, err := s.db.ExecContext(ctx, query,
		organizationID,
		string(marketplace),
		tokenBlob,
		NullTime(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrCredentialNotConfigured
	}

	return nil
}

// List retrieves redacted summaries for an organization. Secret blobs
// are never decrypted here; only their presence is reported.
func (s *CredentialStore) List(ctx context.Context, organizationID string) ([]*domain.CredentialSummary, error) {
	query := `
		SELECT marketplace,
		       config_blob IS NOT NULL AND LENGTH(config_blob) > 0,
		       token_blob IS NOT NULL AND LENGTH(token_blob) > 0,
		       token_expires_at, updated_at
		FROM marketplace_credentials
		WHERE organization_id = $1
		ORDER BY marketplace
	`

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.CredentialSummary
	for rows.Next() {
		summary := &domain.CredentialSummary{OrganizationID: organizationID}
		var mp string
		var tokenExpiresAt sql.NullTime

		if err := rows.Scan(
			&mp,
			&summary.Configured,
			&summary.Connected,
			&tokenExpiresAt,
			&summary.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}

		summary.Marketplace = domain.Marketplace(mp)
		summary.TokenExpiresAt = TimePtr(tokenExpiresAt)
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return summaries, nil
}
