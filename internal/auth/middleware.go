package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/salon-crm/internal/domain"
)

const identityLocalsKey = "identity"

// Verifier resolves a bearer token into a caller identity.
type Verifier interface {
	Verify(raw string) (domain.Identity, error)
}

// RequireSession rejects requests without a valid bearer token and stores the resolved identity
// in the request locals.
func RequireSession(verifier Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c)
		if !ok {
			return fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
		}

		identity, err := verifier.Verify(raw)
		if err != nil {
			return err
		}

		c.Locals(identityLocalsKey, identity)
		return c.Next()
	}
}

// RequireRole allows the request only when the session role is one of roles.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return fmt.Errorf("%w: no session", domain.ErrUnauthorized)
		}
		for _, role := range roles {
			if identity.Role == role {
				return c.Next()
			}
		}
		return fmt.Errorf("%w: role %s is not allowed", domain.ErrForbidden, identity.Role)
	}
}

// RequireCronSecret guards trigger endpoints called by the external scheduler.
func RequireCronSecret(secret string) fiber.Handler {
	expected := []byte(secret)
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c)
		if !ok || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(raw), expected) != 1 {
			return fmt.Errorf("%w: invalid cron secret", domain.ErrUnauthorized)
		}
		return c.Next()
	}
}

func IdentityFrom(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityLocalsKey).(domain.Identity)
	return identity, ok
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
