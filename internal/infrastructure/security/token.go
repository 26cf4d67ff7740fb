package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

const (
	// MinSecretLength is the shortest accepted HS256 signing secret, in bytes.
	MinSecretLength = 32
	DefaultTokenTTL = 2 * time.Hour
)

// TokenConfig captures the settings for signing bearer tokens.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// JWTIssuer signs and verifies HS256 tokens with a secret fixed at construction.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type tokenClaims struct {
	UserID   string   `json:"id"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// NewTokenIssuer validates the secret up front so a misconfigured process
// fails at startup rather than on the first login.
func NewTokenIssuer(cfg TokenConfig) (*JWTIssuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: signing secret is empty", domain.ErrConfiguration)
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: signing secret must be at least %d bytes", domain.ErrConfiguration, MinSecretLength)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &JWTIssuer{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    now,
	}, nil
}

// TTL reports the lifetime applied to issued tokens.
func (i *JWTIssuer) TTL() time.Duration { return i.ttl }

func (i *JWTIssuer) Issue(claims domain.TokenClaims) (string, time.Time, error) {
	issuedAt := i.now().UTC()
	expiresAt := issuedAt.Add(i.ttl)

	tc := tokenClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Roles:    claims.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: sign token: %v", domain.ErrInternal, err)
	}
	return signed, expiresAt, nil
}

func (i *JWTIssuer) Parse(token string) (*domain.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	userID := tc.UserID
	if userID == "" {
		userID = tc.Subject
	}
	return &domain.TokenClaims{
		UserID:   userID,
		Username: tc.Username,
		Role:     tc.Role,
		Roles:    tc.Roles,
	}, nil
}
