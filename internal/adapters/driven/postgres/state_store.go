package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.OAuthStateStore = (*StateStore)(nil)

// StateStore implements driven.OAuthStateStore using PostgreSQL.
//
// Consumption relies on the database's conditional UPDATE: handlers in
// separate processes racing on the same token see exactly one winner.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new PostgreSQL-backed state store.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Save stores a newly issued state.
func (s *StateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	query := `
		INSERT INTO oauth_states (id, token, organization_id, marketplace, created_at, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		state.ID,
		state.Token,
		state.OrganizationID,
		string(state.Marketplace),
		state.CreatedAt,
		state.ExpiresAt,
		state.Consumed,
	)
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}

	return nil
}

// Claim atomically marks the state consumed if it is unconsumed and
// unexpired. The single UPDATE is the whole check-and-set: of N
// concurrent callers only one sees a returned row.
func (s *StateStore) Claim(ctx context.Context, token string, now time.Time) (*domain.OAuthState, error) {
	query := `
		UPDATE oauth_states
		SET consumed = TRUE
		WHERE token = $1 AND consumed = FALSE AND expires_at > $2
		RETURNING id, token, organization_id, marketplace, created_at, expires_at, consumed
	`

	state, err := scanState(s.db.QueryRowContext(ctx, query, token, now))
	if err == sql.ErrNoRows {
		return nil, nil // Absent, already consumed, or expired
	}
	if err != nil {
		return nil, fmt.Errorf("claim oauth state: %w", err)
	}

	return state, nil
}

// Get returns the state for a token without mutating it.
func (s *StateStore) Get(ctx context.Context, token string) (*domain.OAuthState, error) {
	query := `
		SELECT id, token, organization_id, marketplace, created_at, expires_at, consumed
		FROM oauth_states
		WHERE token = $1
	`

	state, err := scanState(s.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get oauth state: %w", err)
	}

	return state, nil
}

// DeleteExpired removes every state past expiry and returns the count.
func (s *StateStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM oauth_states WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired oauth states: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return int(removed), nil
}

func scanState(row *sql.Row) (*domain.OAuthState, error) {
	var state domain.OAuthState
	var marketplace string

	err := row.Scan(
		&state.ID,
		&state.Token,
		&state.OrganizationID,
		&marketplace,
		&state.CreatedAt,
		&state.ExpiresAt,
		&state.Consumed,
	)
	if err != nil {
		return nil, err
	}

	state.Marketplace = domain.Marketplace(marketplace)
	return &state, nil
}
