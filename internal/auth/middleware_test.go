package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/salon-crm/internal/domain"
)

func newTestApp(verifier Verifier) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			switch {
			case errors.Is(err, domain.ErrUnauthorized):
				return c.SendStatus(fiber.StatusUnauthorized)
			case errors.Is(err, domain.ErrForbidden):
				return c.SendStatus(fiber.StatusForbidden)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})

	app.Get("/stats", RequireSession(verifier), func(c *fiber.Ctx) error {
		identity, _ := IdentityFrom(c)
		return c.SendString(identity.TenantID)
	})
	app.Post("/campaigns", RequireSession(verifier), RequireRole(domain.RoleOwner), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	app.Post("/triggers", RequireCronSecret("cron-secret"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	verifier, err := NewTokenVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewTokenVerifier() error = %v", err)
	}
	ownerToken, err := verifier.Issue(domain.Identity{UserID: "u1", TenantID: "salon-1", Role: domain.RoleOwner}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	staffToken, err := verifier.Issue(domain.Identity{UserID: "u2", TenantID: "salon-1", Role: domain.RoleStaff}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
	}{
		{name: "no session", method: "GET", path: "/stats", wantStatus: fiber.StatusUnauthorized},
		{name: "wrong scheme", method: "GET", path: "/stats", auth: "Basic " + staffToken, wantStatus: fiber.StatusUnauthorized},
		{name: "staff reads stats", method: "GET", path: "/stats", auth: "Bearer " + staffToken, wantStatus: fiber.StatusOK},
		{name: "staff cannot create", method: "POST", path: "/campaigns", auth: "Bearer " + staffToken, wantStatus: fiber.StatusForbidden},
		{name: "owner creates", method: "POST", path: "/campaigns", auth: "Bearer " + ownerToken, wantStatus: fiber.StatusCreated},
		{name: "cron without secret", method: "POST", path: "/triggers", wantStatus: fiber.StatusUnauthorized},
		{name: "cron with session token", method: "POST", path: "/triggers", auth: "Bearer " + ownerToken, wantStatus: fiber.StatusUnauthorized},
		{name: "cron with secret", method: "POST", path: "/triggers", auth: "Bearer cron-secret", wantStatus: fiber.StatusOK},
	}

	app := newTestApp(verifier)
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.auth != "" {
			req.Header.Set(fiber.HeaderAuthorization, tt.auth)
		}

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test() error = %v", tt.name, err)
		}
		if resp.StatusCode != tt.wantStatus {
			t.Fatalf("%s: status = %d, want %d", tt.name, resp.StatusCode, tt.wantStatus)
		}
	}
}
