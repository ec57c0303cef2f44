package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driven"
)

// Ensure Adapter implements TokenVerifier
var _ driven.TokenVerifier = (*Adapter)(nil)

// jwtClaims is the shape of dashboard session tokens. Tokens are issued
// by the dashboard's identity service; this adapter only verifies them.
type jwtClaims struct {
	UserID         string      `json:"user_id"`
	OrganizationID string      `json:"organization_id"`
	Role           domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Adapter verifies dashboard JWTs using a shared HMAC secret
type Adapter struct {
	jwtSecret []byte
}

// NewAdapter creates a new token verifier with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret)}
}

// VerifyToken validates a JWT and extracts the authenticated context.
// Returns domain.ErrTokenExpired for expired tokens and
// domain.ErrTokenInvalid for every other verification failure.
func (a *Adapter) VerifyToken(tokenString string) (*domain.AuthContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	if claims.UserID == "" || claims.OrganizationID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", domain.ErrTokenInvalid)
	}

	return &domain.AuthContext{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		Role:           claims.Role,
	}, nil
}
