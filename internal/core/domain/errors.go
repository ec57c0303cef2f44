package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrStateNotFound indicates the state token is absent from the store:
	// malformed, forged, or already swept. Recoverable by restarting the
	// connect flow.
	ErrStateNotFound = errors.New("oauth state not found")

	// ErrStateExpired indicates the state token's TTL elapsed before the
	// provider callback arrived
	ErrStateExpired = errors.New("oauth state expired")

	// ErrStateReplayed indicates the state token was already consumed.
	// Treated as a security event: no credential mutation occurs.
	ErrStateReplayed = errors.New("oauth state already consumed")

	// ErrExchangeFailed indicates the provider rejected the authorization
	// code or the token endpoint was unreachable
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrCredentialNotConfigured indicates the organization has no client
	// credentials for the marketplace
	ErrCredentialNotConfigured = errors.New("marketplace credentials not configured")

	// ErrMarketplaceNotFound indicates the marketplace type is not registered
	ErrMarketplaceNotFound = errors.New("marketplace not found")

	// ErrTokenExpired indicates the dashboard auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the dashboard auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
