package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/observability"
	"github.com/kursadbilgin/salon-crm/internal/provider"
	"github.com/kursadbilgin/salon-crm/internal/ratelimit"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultSendTimeout       = 10 * time.Second
	defaultPendingScanLimit  = 50
	failureReasonRateLimiter = "rate_limiter"
	recipientMarkAttempts    = 3
)

// CampaignRequest describes a campaign to create. ReferenceTime is the instant selection rules
// are evaluated against; zero means now.
type CampaignRequest struct {
	Name          string
	Message       string
	Type          domain.CampaignType
	Rule          domain.SelectionRule
	CreatedBy     *string
	DedupeKey     *string
	ReferenceTime time.Time
}

// PendingResult summarises one SendPending run for a tenant.
type PendingResult struct {
	Campaigns  []domain.DispatchResult
	Sent       int
	Failed     int
	Unrecorded int
	Skipped    int
	Errors     int
}

type sendOutcome int

const (
	outcomeSent sendOutcome = iota
	outcomeFailed
	outcomeAborted
	outcomeUnrecorded
)

// DispatchService owns the campaign and recipient lifecycle: DRAFT/SCHEDULED -> SENDING -> SENT,
// and PENDING -> SENT|FAILED per recipient. Recipients are sent one at a time.
type DispatchService struct {
	campaigns   repository.CampaignRepository
	recipients  repository.RecipientRepository
	resolver    Resolver
	messenger   provider.Messenger
	rateLimiter ratelimit.RateLimiter
	limitKey    string
	logger      *zap.Logger
	metrics     *observability.Metrics
	sendTimeout time.Duration
	scanLimit   int
	now         func() time.Time
	newID       func() string
}

func NewDispatchService(
	campaigns repository.CampaignRepository,
	recipients repository.RecipientRepository,
	resolver Resolver,
	messenger provider.Messenger,
	rateLimiter ratelimit.RateLimiter,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*DispatchService, error) {
	if campaigns == nil || recipients == nil {
		return nil, fmt.Errorf("campaign and recipient repositories are required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("recipient resolver is required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		campaigns:   campaigns,
		recipients:  recipients,
		resolver:    resolver,
		messenger:   messenger,
		rateLimiter: rateLimiter,
		limitKey:    ratelimit.GatewayKey(provider.GatewayName(messenger)),
		logger:      logger,
		sendTimeout: sendTimeout,
		scanLimit:   defaultPendingScanLimit,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Initiate resolves recipients, persists the campaign in SENDING with PENDING recipients, sends
// every message and marks the campaign SENT. Resolution failures abort before anything is
// written. Individual send failures never fail the call.
func (s *DispatchService) Initiate(ctx context.Context, tenantID string, req CampaignRequest) (*domain.Campaign, domain.DispatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(s.logger, ctx)

	campaign, recipients, err := s.prepare(ctx, tenantID, req, domain.CampaignStatusSending, nil)
	if err != nil {
		return nil, domain.DispatchResult{}, err
	}

	if err := s.campaigns.CreateWithRecipients(ctx, campaign, recipients); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			logger.Error("failed to persist campaign",
				zap.String("tenant", tenantID),
				zap.Error(err),
			)
		}
		return nil, domain.DispatchResult{}, err
	}

	pending := make([]domain.CampaignRecipient, 0, len(recipients))
	for _, r := range recipients {
		pending = append(pending, *r)
	}

	result, err := s.deliver(ctx, campaign, pending)
	return campaign, result, err
}

// Prepare persists a campaign without sending it: SCHEDULED when scheduledAt is set, DRAFT
// otherwise. Recipients are resolved now and stored as PENDING.
func (s *DispatchService) Prepare(ctx context.Context, tenantID string, req CampaignRequest, scheduledAt *time.Time) (*domain.Campaign, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	status := domain.CampaignStatusDraft
	if scheduledAt != nil {
		if !scheduledAt.After(s.now()) {
			return nil, 0, fmt.Errorf("%w: scheduledAt must be in the future", domain.ErrValidation)
		}
		status = domain.CampaignStatusScheduled
	}

	campaign, recipients, err := s.prepare(ctx, tenantID, req, status, scheduledAt)
	if err != nil {
		return nil, 0, err
	}

	if err := s.campaigns.CreateWithRecipients(ctx, campaign, recipients); err != nil {
		return nil, 0, err
	}

	observability.WithContextLogger(s.logger, ctx).Info("campaign prepared",
		zap.String("campaignId", campaign.ID),
		zap.String("tenant", tenantID),
		zap.String("status", campaign.Status.String()),
		zap.Int("recipients", len(recipients)),
	)
	return campaign, len(recipients), nil
}

// SendCampaign sends a DRAFT or SCHEDULED campaign immediately. It competes for the same
// conditional claim as SendPending, so a campaign is only ever dispatched once.
func (s *DispatchService) SendCampaign(ctx context.Context, tenantID string, campaignID string) (domain.DispatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := uuid.Parse(campaignID); err != nil {
		return domain.DispatchResult{}, domain.ErrNotFound
	}

	campaign, err := s.campaigns.GetByID(ctx, tenantID, campaignID)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if !campaign.Status.Claimable() {
		return domain.DispatchResult{}, fmt.Errorf("%w: campaign is %s", domain.ErrConflict, campaign.Status)
	}

	result, claimed, err := s.dispatchExisting(ctx, campaign)
	if err != nil {
		return result, err
	}
	if !claimed {
		return result, fmt.Errorf("%w: campaign was claimed by another dispatch", domain.ErrConflict)
	}
	return result, nil
}

// SendPending dispatches every SCHEDULED campaign of the tenant that is due. Only the
// recipients already stored as PENDING are sent; selection is not re-run.
func (s *DispatchService) SendPending(ctx context.Context, tenantID string) (PendingResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(s.logger, ctx)

	due, err := s.campaigns.GetDueScheduled(ctx, tenantID, s.now(), s.scanLimit)
	if err != nil {
		return PendingResult{}, fmt.Errorf("failed to fetch due campaigns: %w", err)
	}

	var summary PendingResult
	for i := range due {
		if ctx.Err() != nil {
			break
		}

		campaign := due[i]
		result, claimed, err := s.dispatchExisting(ctx, &campaign)
		if err != nil {
			logger.Error("scheduled campaign dispatch failed",
				zap.String("campaignId", campaign.ID),
				zap.String("tenant", tenantID),
				zap.Error(err),
			)
			summary.Errors++
			summary.Sent += result.Sent
			summary.Failed += result.Failed
			summary.Unrecorded += result.Unrecorded
			continue
		}
		if !claimed {
			summary.Skipped++
			continue
		}

		summary.Campaigns = append(summary.Campaigns, result)
		summary.Sent += result.Sent
		summary.Failed += result.Failed
	}

	return summary, nil
}

// dispatchExisting claims a stored campaign and sends its PENDING recipients. claimed is false
// when another run got there first.
func (s *DispatchService) dispatchExisting(ctx context.Context, campaign *domain.Campaign) (domain.DispatchResult, bool, error) {
	logger := observability.WithContextLogger(s.logger, ctx)

	claimed, err := s.campaigns.Claim(ctx, campaign.SalonID, campaign.ID)
	if err != nil {
		return domain.DispatchResult{}, false, err
	}
	if !claimed {
		logger.Info("campaign already claimed, skipping",
			zap.String("campaignId", campaign.ID),
		)
		s.metrics.IncCampaignClaimLost()
		return domain.DispatchResult{CampaignID: campaign.ID, Status: campaign.Status}, false, nil
	}
	campaign.Status = domain.CampaignStatusSending

	pending, err := s.recipients.ListPending(ctx, campaign.ID)
	if err != nil {
		logger.Error("failed to load pending recipients, reverting campaign to SCHEDULED",
			zap.String("campaignId", campaign.ID),
			zap.Error(err),
		)
		if revertErr := s.campaigns.RevertToScheduled(context.WithoutCancel(ctx), campaign.ID, s.now().UTC()); revertErr != nil {
			logger.Error("failed to revert campaign",
				zap.String("campaignId", campaign.ID),
				zap.Error(revertErr),
			)
		}
		return domain.DispatchResult{CampaignID: campaign.ID, Status: domain.CampaignStatusScheduled}, true, err
	}

	result, err := s.deliver(ctx, campaign, pending)
	return result, true, err
}

func (s *DispatchService) prepare(
	ctx context.Context,
	tenantID string,
	req CampaignRequest,
	status domain.CampaignStatus,
	scheduledAt *time.Time,
) (*domain.Campaign, []*domain.CampaignRecipient, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, nil, fmt.Errorf("%w: tenant is required", domain.ErrUnauthorized)
	}
	if req.Type == "" {
		req.Type = domain.CampaignTypeManual
	}
	if err := domain.ValidateMessageTemplate(req.Message); err != nil {
		return nil, nil, err
	}

	referenceTime := req.ReferenceTime
	if referenceTime.IsZero() {
		referenceTime = s.now()
	}

	customers, err := s.resolver.Resolve(ctx, tenantID, req.Rule, referenceTime)
	if err != nil {
		if errors.Is(err, domain.ErrDataAccess) {
			observability.WithContextLogger(s.logger, ctx).Error("recipient resolution failed",
				zap.String("tenant", tenantID),
				zap.String("rule", req.Rule.Kind.String()),
				zap.Error(err),
			)
		}
		return nil, nil, err
	}

	now := s.now().UTC()
	campaign := &domain.Campaign{
		ID:          s.newID(),
		SalonID:     tenantID,
		Name:        strings.TrimSpace(req.Name),
		Message:     strings.TrimSpace(req.Message),
		Type:        req.Type,
		Status:      status,
		ScheduledAt: scheduledAt,
		CreatedBy:   req.CreatedBy,
		DedupeKey:   req.DedupeKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if campaign.Name == "" {
		campaign.Name = defaultCampaignName(req.Type, referenceTime)
	}
	if err := campaign.Validate(); err != nil {
		return nil, nil, err
	}

	recipients := make([]*domain.CampaignRecipient, 0, len(customers))
	for _, c := range customers {
		recipients = append(recipients, &domain.CampaignRecipient{
			ID:           s.newID(),
			CampaignID:   campaign.ID,
			CustomerID:   c.ID,
			Phone:        c.Phone,
			CustomerName: c.Name,
			Status:       domain.RecipientStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	return campaign, recipients, nil
}

// deliver sends each recipient in order and marks the campaign SENT. Cancellation of ctx stops
// the loop and hands the campaign back to the scheduler with its remaining PENDING recipients.
// A campaign with unrecorded sends is never handed back: it stays SENDING for an operator.
func (s *DispatchService) deliver(ctx context.Context, campaign *domain.Campaign, recipients []domain.CampaignRecipient) (domain.DispatchResult, error) {
	logger := observability.WithContextLogger(s.logger, ctx).With(
		zap.String("campaignId", campaign.ID),
		zap.String("tenant", campaign.SalonID),
	)
	logger.Info("campaign dispatch started", zap.Int("total", len(recipients)))

	result := domain.DispatchResult{
		CampaignID: campaign.ID,
		Status:     domain.CampaignStatusSending,
		Total:      len(recipients),
	}

	for i := range recipients {
		outcome := s.sendOne(ctx, logger, campaign, recipients[i])
		if outcome == outcomeAborted {
			logger.Warn("campaign dispatch interrupted",
				zap.Int("sent", result.Sent),
				zap.Int("failed", result.Failed),
				zap.Int("unrecorded", result.Unrecorded),
				zap.Int("remaining", len(recipients)-i),
			)
			if result.Unrecorded > 0 {
				return result, s.holdUnrecorded(logger, result)
			}
			s.revert(ctx, logger, campaign, &result)
			return result, ctx.Err()
		}

		switch outcome {
		case outcomeSent:
			result.Sent++
		case outcomeUnrecorded:
			result.Unrecorded++
		default:
			result.Failed++
		}
	}

	if result.Unrecorded > 0 {
		return result, s.holdUnrecorded(logger, result)
	}

	sentAt := s.now().UTC()
	if err := s.campaigns.MarkSent(context.WithoutCancel(ctx), campaign.ID, sentAt); err != nil {
		logger.Error("failed to mark campaign sent, reverting campaign to SCHEDULED", zap.Error(err))
		s.revert(ctx, logger, campaign, &result)
		return result, fmt.Errorf("failed to mark campaign sent: %w", err)
	}
	campaign.Status = domain.CampaignStatusSent
	campaign.SentAt = &sentAt
	result.Status = domain.CampaignStatusSent

	s.metrics.IncCampaignDispatched(campaign.Type.String())
	logger.Info("campaign dispatch finished",
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// revert hands an unfinished campaign back to the scheduler. Its PENDING recipients are picked up
// by the next SendPending run.
func (s *DispatchService) revert(ctx context.Context, logger *zap.Logger, campaign *domain.Campaign, result *domain.DispatchResult) {
	if err := s.campaigns.RevertToScheduled(context.WithoutCancel(ctx), campaign.ID, s.now().UTC()); err != nil {
		logger.Error("failed to revert campaign", zap.Error(err))
		return
	}
	result.Status = domain.CampaignStatusScheduled
	campaign.Status = domain.CampaignStatusScheduled
}

func (s *DispatchService) holdUnrecorded(logger *zap.Logger, result domain.DispatchResult) error {
	logger.Error("campaign left SENDING with unrecorded sends",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("unrecorded", result.Unrecorded),
	)
	return fmt.Errorf("%w: %d recipients sent but not recorded, campaign left SENDING",
		domain.ErrDataAccess, result.Unrecorded)
}

func (s *DispatchService) sendOne(
	ctx context.Context,
	logger *zap.Logger,
	campaign *domain.Campaign,
	recipient domain.CampaignRecipient,
) sendOutcome {
	if ctx.Err() != nil {
		return outcomeAborted
	}
	campaignType := campaign.Type.String()

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, s.limitKey); err != nil {
			if ctx.Err() != nil {
				return outcomeAborted
			}
			s.markFailed(ctx, logger, recipient, failureReasonRateLimiter, err)
			s.metrics.IncMessageFailed(campaignType, failureReasonRateLimiter)
			return outcomeFailed
		}
	}

	body := domain.RenderMessage(campaign.Message, recipient.CustomerName)

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	start := s.now()
	resp, sendErr := s.messenger.Send(sendCtx, provider.Message{To: recipient.Phone, Body: body})
	cancel()
	s.metrics.ObserveMessageSendDuration(campaignType, s.now().Sub(start))

	if sendErr != nil {
		reason := provider.FailureReason(sendErr)
		s.markFailed(ctx, logger, recipient, reason, sendErr)
		s.metrics.IncMessageFailed(campaignType, reason)
		return outcomeFailed
	}

	s.metrics.IncMessageSent(campaignType)
	sentAt := s.now().UTC()
	if err := s.persistMark(ctx, func(ctx context.Context) error {
		return s.recipients.MarkSent(ctx, recipient.ID, sentAt)
	}); err != nil {
		logger.Error("failed to mark recipient sent",
			zap.String("recipientId", recipient.ID),
			zap.Error(err),
		)
		return outcomeUnrecorded
	}

	if resp != nil && resp.MessageID != "" {
		logger.Debug("message accepted by gateway",
			zap.String("recipientId", recipient.ID),
			zap.String("messageId", resp.MessageID),
		)
	}
	return outcomeSent
}

func (s *DispatchService) markFailed(
	ctx context.Context,
	logger *zap.Logger,
	recipient domain.CampaignRecipient,
	reason string,
	cause error,
) {
	logger.Warn("recipient send failed",
		zap.String("recipientId", recipient.ID),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	if err := s.persistMark(ctx, func(ctx context.Context) error {
		return s.recipients.MarkFailed(ctx, recipient.ID, domain.RecipientSendFailed)
	}); err != nil {
		logger.Error("failed to mark recipient failed",
			zap.String("recipientId", recipient.ID),
			zap.Error(err),
		)
	}
}

// persistMark applies a recipient status mark outside ctx's cancellation, retrying transient
// failures. ErrConflict means the row already left PENDING and is final.
func (s *DispatchService) persistMark(ctx context.Context, mark func(context.Context) error) error {
	persistCtx := context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < recipientMarkAttempts; attempt++ {
		err = mark(persistCtx)
		if err == nil || errors.Is(err, domain.ErrConflict) {
			return nil
		}
	}
	return err
}

func defaultCampaignName(campaignType domain.CampaignType, at time.Time) string {
	if campaignType == domain.CampaignTypeBirthday {
		return fmt.Sprintf("Birthday %s", at.Format(time.DateOnly))
	}
	return fmt.Sprintf("Campaign %s", at.Format(time.DateOnly))
}
