package ports

import (
	"time"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

// PasswordHasher one-way hashes and verifies passwords.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	// Verify never fails on a malformed hash; it returns false.
	Verify(raw, hash string) bool
}

// TokenIssuer signs identity claims into bearer tokens and verifies them.
type TokenIssuer interface {
	Issue(claims domain.TokenClaims) (token string, expiresAt time.Time, err error)
	Parse(token string) (*domain.TokenClaims, error)
}
