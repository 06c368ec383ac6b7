package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/domain"
)

const Issuer = "salon-crm"

// Claims is the session token issued by the identity provider. Subject carries the user id.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier signs and verifies HS256 session tokens.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewTokenVerifier(secret string) (*TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &TokenVerifier{secret: []byte(secret), now: time.Now}, nil
}

// Issue mints a token for identity. Production tokens come from the identity provider; this is
// used by salonctl and tests.
func (v *TokenVerifier) Issue(identity domain.Identity, ttl time.Duration) (string, error) {
	if err := identity.Validate(); err != nil {
		return "", err
	}

	issuedAt := v.now()
	claims := &Claims{
		TenantID: identity.TenantID,
		Role:     identity.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and resolves the caller identity. Every failure wraps domain.ErrUnauthorized.
func (v *TokenVerifier) Verify(raw string) (domain.Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
		}
		return domain.Identity{}, fmt.Errorf("%w: invalid token: %v", domain.ErrUnauthorized, err)
	}
	if !token.Valid {
		return domain.Identity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	role, err := domain.ParseRoleFromString(claims.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: invalid role claim", domain.ErrUnauthorized)
	}

	identity := domain.Identity{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Role:     role,
	}
	if err := identity.Validate(); err != nil {
		return domain.Identity{}, err
	}
	return identity, nil
}

func (v *TokenVerifier) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret, nil
}
