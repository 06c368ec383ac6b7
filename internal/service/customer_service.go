package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"go.uber.org/zap"
)

// maxVisitClockSkew tolerates small clock differences between the front desk and the server.
const maxVisitClockSkew = 5 * time.Minute

type RegisterCustomerInput struct {
	Name       string
	Phone      string
	BirthDay   *int
	BirthMonth *int
}

type CustomerService struct {
	customers repository.CustomerRepository
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewCustomerService(customers repository.CustomerRepository, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		customers: customers,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *CustomerService) Register(ctx context.Context, tenantID string, input RegisterCustomerInput) (*domain.Customer, error) {
	now := s.now().UTC()
	customer := &domain.Customer{
		ID:         s.newID(),
		SalonID:    tenantID,
		Name:       strings.TrimSpace(input.Name),
		Phone:      domain.NormalizePhone(input.Phone),
		BirthDay:   input.BirthDay,
		BirthMonth: input.BirthMonth,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}

	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CustomerService) Get(ctx context.Context, tenantID string, id string) (*domain.Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.customers.GetByID(ctx, tenantID, id)
}

func (s *CustomerService) List(ctx context.Context, tenantID string, params repository.CustomerListParams) ([]domain.Customer, int64, error) {
	return s.customers.List(ctx, tenantID, params)
}

// RecordVisit appends a visit recorded by the calling staff member and reports the tier change
// it caused. visitedAt defaults to now and may not be in the future.
func (s *CustomerService) RecordVisit(
	ctx context.Context,
	identity domain.Identity,
	customerID string,
	visitedAt *time.Time,
) (*domain.VisitOutcome, error) {
	if _, err := uuid.Parse(customerID); err != nil {
		return nil, domain.ErrNotFound
	}

	now := s.now().UTC()
	at := now
	if visitedAt != nil {
		at = visitedAt.UTC()
		if at.After(now.Add(maxVisitClockSkew)) {
			return nil, fmt.Errorf("%w: visitedAt must not be in the future", domain.ErrValidation)
		}
	}

	visit := &domain.Visit{
		ID:         s.newID(),
		SalonID:    identity.TenantID,
		CustomerID: customerID,
		RecordedBy: identity.UserID,
		VisitedAt:  at,
		CreatedAt:  now,
	}

	count, err := s.customers.RecordVisit(ctx, visit)
	if err != nil {
		return nil, err
	}

	outcome := &domain.VisitOutcome{
		Visit:        *visit,
		VisitCount:   count,
		PreviousTier: domain.ClassifyTier(count - 1),
		Tier:         domain.ClassifyTier(count),
	}
	if outcome.Upgraded() {
		s.logger.Info("customer reached new loyalty tier",
			zap.String("customerId", customerID),
			zap.String("tenant", identity.TenantID),
			zap.String("tier", outcome.Tier.String()),
		)
	}
	return outcome, nil
}
