package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/salon-crm/internal/auth"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"github.com/kursadbilgin/salon-crm/internal/service"
)

type CustomerService interface {
	Register(ctx context.Context, tenantID string, input service.RegisterCustomerInput) (*domain.Customer, error)
	Get(ctx context.Context, tenantID string, id string) (*domain.Customer, error)
	List(ctx context.Context, tenantID string, params repository.CustomerListParams) ([]domain.Customer, int64, error)
	RecordVisit(ctx context.Context, identity domain.Identity, customerID string, visitedAt *time.Time) (*domain.VisitOutcome, error)
}

type CustomerHandler struct {
	service CustomerService
}

func NewCustomerHandler(service CustomerService) (*CustomerHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("customer service is required")
	}
	return &CustomerHandler{service: service}, nil
}

// RegisterCustomerRoutes mounts the customer endpoints. Both roles may use them.
func RegisterCustomerRoutes(router fiber.Router, verifier auth.Verifier, service CustomerService) error {
	if verifier == nil {
		return fmt.Errorf("session verifier is required")
	}
	h, err := NewCustomerHandler(service)
	if err != nil {
		return err
	}

	g := router.Group("/v1/customers", auth.RequireSession(verifier))
	g.Post("/", h.RegisterCustomer)
	g.Get("/", h.ListCustomers)
	g.Get("/:id", h.GetCustomer)
	g.Post("/:id/visits", h.RecordVisit)

	return nil
}

type registerCustomerRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"required,max=32"`
	BirthDay   *int   `json:"birthDay" validate:"omitempty,min=1,max=31"`
	BirthMonth *int   `json:"birthMonth" validate:"omitempty,min=1,max=12"`
}

type recordVisitRequest struct {
	VisitedAt *time.Time `json:"visitedAt"`
}

type loyaltyResponse struct {
	VisitCount       int     `json:"visitCount"`
	Tier             string  `json:"tier"`
	TierName         string  `json:"tierName"`
	DiscountPercent  int     `json:"discountPercent"`
	NextTier         *string `json:"nextTier,omitempty"`
	VisitsToNextTier int     `json:"visitsToNextTier"`
}

type customerResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	BirthDay    *int            `json:"birthDay,omitempty"`
	BirthMonth  *int            `json:"birthMonth,omitempty"`
	LastVisitAt *time.Time      `json:"lastVisitAt,omitempty"`
	Loyalty     loyaltyResponse `json:"loyalty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type listCustomersResponse struct {
	Data []customerResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

type visitResponse struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customerId"`
	VisitedAt    time.Time `json:"visitedAt"`
	VisitCount   int       `json:"visitCount"`
	PreviousTier string    `json:"previousTier"`
	Tier         string    `json:"tier"`
	Upgraded     bool      `json:"upgraded"`
}

func (h *CustomerHandler) RegisterCustomer(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req registerCustomerRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	customer, err := h.service.Register(requestContext(c), identity.TenantID, service.RegisterCustomerInput{
		Name:       req.Name,
		Phone:      req.Phone,
		BirthDay:   req.BirthDay,
		BirthMonth: req.BirthMonth,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toCustomerResponse(customer))
}

func (h *CustomerHandler) ListCustomers(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	page, pageSize, err := parsePage(c)
	if err != nil {
		return err
	}

	customers, total, err := h.service.List(requestContext(c), identity.TenantID, repository.CustomerListParams{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return err
	}

	data := make([]customerResponse, 0, len(customers))
	for i := range customers {
		data = append(data, toCustomerResponse(&customers[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listCustomersResponse{
		Data: data,
		Meta: listMeta{Page: page, PageSize: pageSize, Total: total},
	})
}

func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	customer, err := h.service.Get(requestContext(c), identity.TenantID, strings.TrimSpace(c.Params("id")))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toCustomerResponse(customer))
}

func (h *CustomerHandler) RecordVisit(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req recordVisitRequest
	if len(c.Body()) > 0 {
		if err := bindBody(c, &req); err != nil {
			return err
		}
	}

	outcome, err := h.service.RecordVisit(requestContext(c), identity, strings.TrimSpace(c.Params("id")), req.VisitedAt)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(visitResponse{
		ID:           outcome.Visit.ID,
		CustomerID:   outcome.Visit.CustomerID,
		VisitedAt:    outcome.Visit.VisitedAt,
		VisitCount:   outcome.VisitCount,
		PreviousTier: outcome.PreviousTier.String(),
		Tier:         outcome.Tier.String(),
		Upgraded:     outcome.Upgraded(),
	})
}

func toCustomerResponse(c *domain.Customer) customerResponse {
	if c == nil {
		return customerResponse{}
	}

	loyalty := c.Loyalty()
	resp := customerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		BirthDay:    c.BirthDay,
		BirthMonth:  c.BirthMonth,
		LastVisitAt: c.LastVisitAt,
		Loyalty: loyaltyResponse{
			VisitCount:       loyalty.VisitCount,
			Tier:             loyalty.Tier.String(),
			TierName:         loyalty.Benefits.DisplayName,
			DiscountPercent:  loyalty.Benefits.DiscountPercent,
			VisitsToNextTier: loyalty.VisitsToNextTier,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if loyalty.NextTier != nil {
		next := loyalty.NextTier.String()
		resp.Loyalty.NextTier = &next
	}
	return resp
}
