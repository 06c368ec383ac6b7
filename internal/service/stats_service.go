package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/repository"
)

// StatsService reduces a campaign's recipient rows into summary counts. It never writes.
type StatsService struct {
	campaigns  repository.CampaignRepository
	recipients repository.RecipientRepository
}

func NewStatsService(campaigns repository.CampaignRepository, recipients repository.RecipientRepository) *StatsService {
	return &StatsService{
		campaigns:  campaigns,
		recipients: recipients,
	}
}

// Aggregate fails with domain.ErrNotFound when the campaign does not exist or belongs to another
// tenant.
func (s *StatsService) Aggregate(ctx context.Context, tenantID string, campaignID string) (domain.CampaignStats, error) {
	if _, err := uuid.Parse(campaignID); err != nil {
		return domain.CampaignStats{}, domain.ErrNotFound
	}

	campaign, err := s.campaigns.GetByID(ctx, tenantID, campaignID)
	if err != nil {
		return domain.CampaignStats{}, err
	}

	counts, err := s.recipients.CountByStatus(ctx, campaign.ID)
	if err != nil {
		return domain.CampaignStats{}, fmt.Errorf("failed to count recipients: %w", err)
	}

	return domain.AggregateStats(counts), nil
}
