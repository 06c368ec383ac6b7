package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"github.com/kursadbilgin/salon-crm/internal/service"
)

type stubCustomerService struct {
	registerFn    func(ctx context.Context, tenantID string, input service.RegisterCustomerInput) (*domain.Customer, error)
	getFn         func(ctx context.Context, tenantID string, id string) (*domain.Customer, error)
	listFn        func(ctx context.Context, tenantID string, params repository.CustomerListParams) ([]domain.Customer, int64, error)
	recordVisitFn func(ctx context.Context, identity domain.Identity, customerID string, visitedAt *time.Time) (*domain.VisitOutcome, error)
}

func (s *stubCustomerService) Register(ctx context.Context, tenantID string, input service.RegisterCustomerInput) (*domain.Customer, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, tenantID, input)
	}
	return &domain.Customer{ID: "cust-1", SalonID: tenantID, Name: input.Name, Phone: input.Phone}, nil
}

func (s *stubCustomerService) Get(ctx context.Context, tenantID string, id string) (*domain.Customer, error) {
	if s.getFn != nil {
		return s.getFn(ctx, tenantID, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubCustomerService) List(ctx context.Context, tenantID string, params repository.CustomerListParams) ([]domain.Customer, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, tenantID, params)
	}
	return nil, 0, nil
}

func (s *stubCustomerService) RecordVisit(ctx context.Context, identity domain.Identity, customerID string, visitedAt *time.Time) (*domain.VisitOutcome, error) {
	if s.recordVisitFn != nil {
		return s.recordVisitFn(ctx, identity, customerID, visitedAt)
	}
	return nil, domain.ErrNotFound
}

func newCustomerTestApp(t *testing.T, svc CustomerService) (*fiber.App, string) {
	t.Helper()

	verifier := newTestVerifier(t)
	app := newTestApp(t)
	if err := RegisterCustomerRoutes(app, verifier, svc); err != nil {
		t.Fatalf("RegisterCustomerRoutes() error = %v", err)
	}
	return app, sessionToken(t, verifier, domain.RoleStaff)
}

func TestCustomerIntegration_RegisterCustomer(t *testing.T) {
	t.Parallel()

	var gotInput service.RegisterCustomerInput
	svc := &stubCustomerService{
		registerFn: func(ctx context.Context, tenantID string, input service.RegisterCustomerInput) (*domain.Customer, error) {
			if tenantID != testTenantID {
				t.Fatalf("tenant = %s, want %s", tenantID, testTenantID)
			}
			gotInput = input
			return &domain.Customer{
				ID:         "cust-1",
				SalonID:    tenantID,
				Name:       input.Name,
				Phone:      input.Phone,
				BirthDay:   input.BirthDay,
				BirthMonth: input.BirthMonth,
			}, nil
		},
	}
	app, token := newCustomerTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/customers",
		`{"name":"Ayse","phone":"+905551112233","birthDay":29,"birthMonth":2}`, token)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}
	if gotInput.BirthDay == nil || *gotInput.BirthDay != 29 || gotInput.BirthMonth == nil || *gotInput.BirthMonth != 2 {
		t.Fatalf("birth date = %v/%v, want 29/2", gotInput.BirthDay, gotInput.BirthMonth)
	}

	loyalty := decodeJSON(t, body)["loyalty"].(map[string]any)
	if loyalty["tier"] != "BRONZE" || loyalty["nextTier"] != "SILVER" || loyalty["visitsToNextTier"] != float64(10) {
		t.Fatalf("loyalty = %v, want BRONZE -> SILVER in 10", loyalty)
	}
}

func TestCustomerIntegration_RegisterCustomerValidation(t *testing.T) {
	t.Parallel()

	svc := &stubCustomerService{
		registerFn: func(ctx context.Context, tenantID string, input service.RegisterCustomerInput) (*domain.Customer, error) {
			if input.Phone == "+900000000000" {
				return nil, fmt.Errorf("%w: phone already registered", domain.ErrConflict)
			}
			return &domain.Customer{ID: "cust-1"}, nil
		},
	}
	app, token := newCustomerTestApp(t, svc)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "missing name", body: `{"phone":"+905551112233"}`, wantStatus: fiber.StatusBadRequest},
		{name: "missing phone", body: `{"name":"Ayse"}`, wantStatus: fiber.StatusBadRequest},
		{name: "day out of range", body: `{"name":"Ayse","phone":"+905551112233","birthDay":32,"birthMonth":1}`, wantStatus: fiber.StatusBadRequest},
		{name: "month out of range", body: `{"name":"Ayse","phone":"+905551112233","birthDay":1,"birthMonth":13}`, wantStatus: fiber.StatusBadRequest},
		{name: "duplicate phone", body: `{"name":"Ayse","phone":"+900000000000"}`, wantStatus: fiber.StatusConflict},
	}

	for _, tt := range tests {
		resp, body := performRequest(t, app, http.MethodPost, "/v1/customers", tt.body, token)
		if resp.StatusCode != tt.wantStatus {
			t.Fatalf("%s: status = %d, want %d, body=%s", tt.name, resp.StatusCode, tt.wantStatus, string(body))
		}
	}

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/customers", `{"name":"Ayse","phone":"+905551112233"}`, "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without session", resp.StatusCode)
	}
}

func TestCustomerIntegration_GetAndListCustomers(t *testing.T) {
	t.Parallel()

	svc := &stubCustomerService{
		getFn: func(ctx context.Context, tenantID string, id string) (*domain.Customer, error) {
			if id != "cust-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Customer{ID: "cust-1", SalonID: tenantID, Name: "Ayse", VisitCount: 30}, nil
		},
		listFn: func(ctx context.Context, tenantID string, params repository.CustomerListParams) ([]domain.Customer, int64, error) {
			if params.Page != 1 || params.PageSize != defaultPageSize {
				t.Fatalf("params = %+v, want defaults", params)
			}
			return []domain.Customer{{ID: "cust-1"}, {ID: "cust-2", VisitCount: 12}}, 2, nil
		},
	}
	app, token := newCustomerTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/customers/cust-1", "", token)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	loyalty := decodeJSON(t, body)["loyalty"].(map[string]any)
	if loyalty["tier"] != "PLATINUM" || loyalty["discountPercent"] != float64(25) {
		t.Fatalf("loyalty = %v, want PLATINUM 25%%", loyalty)
	}
	if _, ok := loyalty["nextTier"]; ok {
		t.Fatalf("nextTier present for top tier: %v", loyalty)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/customers/cust-404", "", token)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	resp, body = performRequest(t, app, http.MethodGet, "/v1/customers", "", token)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	payload := decodeJSON(t, body)
	data := payload["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("len(data) = %d, want 2", len(data))
	}
	second := data[1].(map[string]any)["loyalty"].(map[string]any)
	if second["tier"] != "SILVER" || second["visitsToNextTier"] != float64(8) {
		t.Fatalf("loyalty = %v, want SILVER with 8 to next", second)
	}
}

func TestCustomerIntegration_RecordVisit(t *testing.T) {
	t.Parallel()

	visitedAt := time.Date(2024, time.June, 10, 14, 30, 0, 0, time.UTC)

	var gotVisitedAt []*time.Time
	svc := &stubCustomerService{
		recordVisitFn: func(ctx context.Context, identity domain.Identity, customerID string, at *time.Time) (*domain.VisitOutcome, error) {
			if identity.UserID != "user-staff" || identity.TenantID != testTenantID {
				t.Fatalf("identity = %+v, want staff session", identity)
			}
			if customerID != "cust-1" {
				return nil, domain.ErrNotFound
			}
			gotVisitedAt = append(gotVisitedAt, at)
			return &domain.VisitOutcome{
				Visit:        domain.Visit{ID: "visit-1", CustomerID: customerID, VisitedAt: visitedAt},
				VisitCount:   10,
				PreviousTier: domain.TierBronze,
				Tier:         domain.TierSilver,
			}, nil
		},
	}
	app, token := newCustomerTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/customers/cust-1/visits", `{"visitedAt":"2024-06-10T14:30:00Z"}`, token)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}
	payload := decodeJSON(t, body)
	if payload["upgraded"] != true || payload["tier"] != "SILVER" || payload["previousTier"] != "BRONZE" {
		t.Fatalf("payload = %v, want BRONZE -> SILVER upgrade", payload)
	}

	resp, body = performRequest(t, app, http.MethodPost, "/v1/customers/cust-1/visits", "", token)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201 without body, body=%s", resp.StatusCode, string(body))
	}

	if len(gotVisitedAt) != 2 {
		t.Fatalf("RecordVisit() calls = %d, want 2", len(gotVisitedAt))
	}
	if gotVisitedAt[0] == nil || !gotVisitedAt[0].Equal(visitedAt) {
		t.Fatalf("visitedAt = %v, want %s", gotVisitedAt[0], visitedAt)
	}
	if gotVisitedAt[1] != nil {
		t.Fatalf("visitedAt = %v, want nil when body is empty", gotVisitedAt[1])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/customers/cust-9/visits", "", token)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
