package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/repository"
)

type SalonService struct {
	salons repository.SalonRepository
	now    func() time.Time
	newID  func() string
}

func NewSalonService(salons repository.SalonRepository) *SalonService {
	return &SalonService{
		salons: salons,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *SalonService) Create(ctx context.Context, name string, phone string) (*domain.Salon, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: salon name is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	salon := &domain.Salon{
		ID:               s.newID(),
		Name:             name,
		Phone:            domain.NormalizePhone(phone),
		BirthdayTemplate: domain.DefaultBirthdayTemplate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.salons.Create(ctx, salon); err != nil {
		return nil, err
	}
	return salon, nil
}

func (s *SalonService) Get(ctx context.Context, tenantID string) (*domain.Salon, error) {
	return s.salons.GetByID(ctx, tenantID)
}

// UpdateBirthdayTemplate replaces the message used by the daily birthday trigger.
func (s *SalonService) UpdateBirthdayTemplate(ctx context.Context, tenantID string, template string) (*domain.Salon, error) {
	template = strings.TrimSpace(template)
	if err := domain.ValidateMessageTemplate(template); err != nil {
		return nil, err
	}
	if err := s.salons.UpdateBirthdayTemplate(ctx, tenantID, template); err != nil {
		return nil, err
	}
	return s.salons.GetByID(ctx, tenantID)
}
