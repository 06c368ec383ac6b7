package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/repository"
)

// CampaignService serves campaign reads for the API.
type CampaignService struct {
	campaigns repository.CampaignRepository
}

func NewCampaignService(campaigns repository.CampaignRepository) *CampaignService {
	return &CampaignService{campaigns: campaigns}
}

func (s *CampaignService) Get(ctx context.Context, tenantID string, id string) (*domain.Campaign, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.campaigns.GetByID(ctx, tenantID, id)
}

func (s *CampaignService) List(ctx context.Context, tenantID string, params repository.CampaignListParams) ([]domain.Campaign, int64, error) {
	return s.campaigns.List(ctx, tenantID, params)
}
