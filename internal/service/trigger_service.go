package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/observability"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"go.uber.org/zap"
)

const (
	triggerKindBirthday  = "birthday"
	triggerKindScheduled = "scheduled"
)

// Dispatcher is the part of DispatchService the triggers drive.
type Dispatcher interface {
	Initiate(ctx context.Context, tenantID string, req CampaignRequest) (*domain.Campaign, domain.DispatchResult, error)
	SendPending(ctx context.Context, tenantID string) (PendingResult, error)
}

// TriggerResult is the body returned to the external time-based trigger.
type TriggerResult struct {
	Campaigns    int `json:"campaigns"`
	Sent         int `json:"sent"`
	Failed       int `json:"failed"`
	Unrecorded   int `json:"unrecorded,omitempty"`
	TenantErrors int `json:"tenantErrors"`
}

// TriggerService runs the cross-tenant dispatch triggers. A failure in one tenant is counted and
// the loop continues with the next.
type TriggerService struct {
	customers       repository.CustomerRepository
	salons          repository.SalonRepository
	campaigns       repository.CampaignRepository
	dispatcher      Dispatcher
	logger          *zap.Logger
	metrics         *observability.Metrics
	dedupeRecurring bool
}

func NewTriggerService(
	customers repository.CustomerRepository,
	salons repository.SalonRepository,
	campaigns repository.CampaignRepository,
	dispatcher Dispatcher,
	dedupeRecurring bool,
	logger *zap.Logger,
) (*TriggerService, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TriggerService{
		customers:       customers,
		salons:          salons,
		campaigns:       campaigns,
		dispatcher:      dispatcher,
		logger:          logger,
		dedupeRecurring: dedupeRecurring,
	}, nil
}

func (s *TriggerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// BirthdayDispatch sends a birthday campaign in every salon that has customers born on the day
// and month of now.
func (s *TriggerService) BirthdayDispatch(ctx context.Context, now time.Time) (TriggerResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(s.logger, ctx)

	partition, err := s.birthdayPartition(ctx, now)
	if err != nil {
		s.metrics.IncTriggerRun(triggerKindBirthday, "error")
		return TriggerResult{}, err
	}

	var result TriggerResult
	for _, tenantID := range partition.Tenants() {
		if ctx.Err() != nil {
			break
		}

		req := CampaignRequest{
			Message:       s.birthdayTemplate(ctx, tenantID),
			Type:          domain.CampaignTypeBirthday,
			Rule:          domain.BirthdayRule(),
			ReferenceTime: now,
		}
		if s.dedupeRecurring {
			key := birthdayDedupeKey(tenantID, now)
			req.DedupeKey = &key
		}

		_, dispatched, err := s.dispatcher.Initiate(ctx, tenantID, req)
		if errors.Is(err, domain.ErrConflict) && req.DedupeKey != nil {
			logger.Info("birthday campaign already dispatched today",
				zap.String("tenant", tenantID),
				zap.String("dedupeKey", *req.DedupeKey),
			)
			continue
		}
		if dispatched.CampaignID != "" {
			result.Campaigns++
			result.Sent += dispatched.Sent
			result.Failed += dispatched.Failed
			result.Unrecorded += dispatched.Unrecorded
		}
		if err != nil {
			logger.Error("birthday dispatch failed for tenant",
				zap.String("tenant", tenantID),
				zap.Int("matches", len(partition[tenantID])),
				zap.Error(err),
			)
			result.TenantErrors++
		}
	}

	s.recordRun(triggerKindBirthday, result)
	logger.Info("birthday trigger finished",
		zap.Int("tenants", len(partition)),
		zap.Int("campaigns", result.Campaigns),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("tenantErrors", result.TenantErrors),
	)
	return result, nil
}

// ScheduledDispatch runs SendPending for every salon with a due SCHEDULED campaign.
func (s *TriggerService) ScheduledDispatch(ctx context.Context, now time.Time) (TriggerResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(s.logger, ctx)

	tenants, err := s.campaigns.ListTenantsWithDue(ctx, now)
	if err != nil {
		s.metrics.IncTriggerRun(triggerKindScheduled, "error")
		return TriggerResult{}, err
	}

	var result TriggerResult
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			break
		}

		pending, err := s.dispatcher.SendPending(ctx, tenantID)
		result.Campaigns += len(pending.Campaigns)
		result.Sent += pending.Sent
		result.Failed += pending.Failed
		result.Unrecorded += pending.Unrecorded
		if err != nil || pending.Errors > 0 {
			logger.Error("scheduled dispatch failed for tenant",
				zap.String("tenant", tenantID),
				zap.Int("campaignErrors", pending.Errors),
				zap.Error(err),
			)
			result.TenantErrors++
		}
	}

	s.recordRun(triggerKindScheduled, result)
	if len(tenants) > 0 {
		logger.Info("scheduled trigger finished",
			zap.Int("tenants", len(tenants)),
			zap.Int("campaigns", result.Campaigns),
			zap.Int("sent", result.Sent),
			zap.Int("failed", result.Failed),
			zap.Int("tenantErrors", result.TenantErrors),
		)
	}
	return result, nil
}

// birthdayPartition groups today's birthday customers by salon. The same Feb 29 stand-in rule
// as the resolver applies.
func (s *TriggerService) birthdayPartition(ctx context.Context, now time.Time) (domain.TenantPartition, error) {
	customers, err := s.customers.FindAllByBirthday(ctx, now.Day(), int(now.Month()))
	if err != nil {
		return nil, fmt.Errorf("failed to find birthdays: %w", err)
	}
	if isLeapDayStandIn(now) {
		leapDay, err := s.customers.FindAllByBirthday(ctx, 29, int(time.February))
		if err != nil {
			return nil, fmt.Errorf("failed to find leap day birthdays: %w", err)
		}
		customers = append(customers, leapDay...)
	}
	return domain.PartitionByTenant(customers), nil
}

func (s *TriggerService) birthdayTemplate(ctx context.Context, tenantID string) string {
	if s.salons == nil {
		return domain.DefaultBirthdayTemplate
	}

	salon, err := s.salons.GetByID(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			observability.WithContextLogger(s.logger, ctx).Warn("failed to load salon template, using default",
				zap.String("tenant", tenantID),
				zap.Error(err),
			)
		}
		return domain.DefaultBirthdayTemplate
	}
	return salon.BirthdayMessage()
}

func (s *TriggerService) recordRun(kind string, result TriggerResult) {
	outcome := "ok"
	if result.TenantErrors > 0 {
		outcome = "partial"
	}
	s.metrics.IncTriggerRun(kind, outcome)
}

func birthdayDedupeKey(tenantID string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, domain.CampaignTypeBirthday, now.Format(time.DateOnly))
}
