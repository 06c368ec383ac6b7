package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/salon-crm/internal/auth"
	"github.com/kursadbilgin/salon-crm/internal/domain"
)

type SalonService interface {
	Get(ctx context.Context, tenantID string) (*domain.Salon, error)
	UpdateBirthdayTemplate(ctx context.Context, tenantID string, template string) (*domain.Salon, error)
}

type SalonHandler struct {
	service SalonService
}

func NewSalonHandler(service SalonService) (*SalonHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("salon service is required")
	}
	return &SalonHandler{service: service}, nil
}

func RegisterSalonRoutes(router fiber.Router, verifier auth.Verifier, service SalonService) error {
	if verifier == nil {
		return fmt.Errorf("session verifier is required")
	}
	h, err := NewSalonHandler(service)
	if err != nil {
		return err
	}

	g := router.Group("/v1/salon", auth.RequireSession(verifier))
	g.Get("/", h.GetSalon)
	g.Put("/birthday-template", auth.RequireRole(domain.RoleOwner), h.UpdateBirthdayTemplate)

	return nil
}

type updateBirthdayTemplateRequest struct {
	Template string `json:"template" validate:"required,max=480"`
}

type salonResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	BirthdayTemplate string    `json:"birthdayTemplate"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (h *SalonHandler) GetSalon(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	salon, err := h.service.Get(requestContext(c), identity.TenantID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toSalonResponse(salon))
}

func (h *SalonHandler) UpdateBirthdayTemplate(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req updateBirthdayTemplateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	salon, err := h.service.UpdateBirthdayTemplate(requestContext(c), identity.TenantID, req.Template)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toSalonResponse(salon))
}

func toSalonResponse(s *domain.Salon) salonResponse {
	if s == nil {
		return salonResponse{}
	}
	return salonResponse{
		ID:               s.ID,
		Name:             s.Name,
		Phone:            s.Phone,
		BirthdayTemplate: s.BirthdayMessage(),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
