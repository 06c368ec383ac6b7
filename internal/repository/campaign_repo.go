package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/salon-crm/internal/domain"
	"gorm.io/gorm"
)

type CampaignListParams struct {
	Status   *domain.CampaignStatus
	Page     int
	PageSize int
}

type CampaignRepository interface {
	CreateWithRecipients(ctx context.Context, c *domain.Campaign, recipients []*domain.CampaignRecipient) error
	GetByID(ctx context.Context, salonID string, id string) (*domain.Campaign, error)
	List(ctx context.Context, salonID string, params CampaignListParams) ([]domain.Campaign, int64, error)
	Claim(ctx context.Context, salonID string, id string) (bool, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	RevertToScheduled(ctx context.Context, id string, now time.Time) error
	GetDueScheduled(ctx context.Context, salonID string, now time.Time, limit int) ([]domain.Campaign, error)
	ListTenantsWithDue(ctx context.Context, now time.Time) ([]string, error)
}

type GormCampaignRepo struct {
	db *gorm.DB
}

func NewGormCampaignRepo(db *gorm.DB) *GormCampaignRepo {
	return &GormCampaignRepo{db: db}
}

// CreateWithRecipients inserts the campaign and its recipient rows in one transaction. A second
// campaign carrying the same dedupe key fails with domain.ErrConflict.
func (r *GormCampaignRepo) CreateWithRecipients(ctx context.Context, c *domain.Campaign, recipients []*domain.CampaignRecipient) error {
	campaign := campaignModelFromDomain(c)
	if campaign == nil {
		return domain.ErrValidation
	}

	models := make([]CampaignRecipientModel, 0, len(recipients))
	modelIndexes := make([]int, 0, len(recipients))
	for i, rcp := range recipients {
		model := recipientModelFromDomain(rcp)
		if model != nil {
			model.CampaignID = campaign.ID
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(campaign).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(&models, 100).Error
	})
	if err != nil {
		if isUniqueViolationError(err) {
			return domain.ErrConflict
		}
		return dataAccessError("create campaign", err)
	}

	*c = *campaignModelToDomain(campaign)
	for i := range models {
		idx := modelIndexes[i]
		if recipients[idx] != nil {
			*recipients[idx] = *recipientModelToDomain(&models[i])
		}
	}
	return nil
}

func (r *GormCampaignRepo) GetByID(ctx context.Context, salonID string, id string) (*domain.Campaign, error) {
	var model CampaignModel
	err := r.db.WithContext(ctx).First(&model, "id = ? AND salon_id = ?", id, salonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, dataAccessError("get campaign", err)
	}
	return campaignModelToDomain(&model), nil
}

func (r *GormCampaignRepo) List(ctx context.Context, salonID string, params CampaignListParams) ([]domain.Campaign, int64, error) {
	query := r.db.WithContext(ctx).Model(&CampaignModel{}).Where("salon_id = ?", salonID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dataAccessError("count campaigns", err)
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []CampaignModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, dataAccessError("list campaigns", err)
	}

	campaigns := make([]domain.Campaign, 0, len(models))
	for i := range models {
		campaigns = append(campaigns, *campaignModelToDomain(&models[i]))
	}
	return campaigns, total, nil
}

// Claim moves a DRAFT or SCHEDULED campaign to SENDING. It reports false when another caller
// already claimed it or it is no longer claimable.
func (r *GormCampaignRepo) Claim(ctx context.Context, salonID string, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND salon_id = ? AND status IN ?", id, salonID,
			[]domain.CampaignStatus{domain.CampaignStatusDraft, domain.CampaignStatusScheduled}).
		Update("status", domain.CampaignStatusSending)
	if result.Error != nil {
		return false, dataAccessError("claim campaign", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *GormCampaignRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND status = ?", id, domain.CampaignStatusSending).
		Updates(map[string]any{
			"status":  domain.CampaignStatusSent,
			"sent_at": sentAt,
		})
	if result.Error != nil {
		return dataAccessError("mark campaign sent", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// RevertToScheduled hands a claimed campaign back to the scheduler. Campaigns that were never
// scheduled get now as their scheduled time so the next scan picks them up.
func (r *GormCampaignRepo) RevertToScheduled(ctx context.Context, id string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND status = ?", id, domain.CampaignStatusSending).
		Updates(map[string]any{
			"status":       domain.CampaignStatusScheduled,
			"scheduled_at": gorm.Expr("COALESCE(scheduled_at, ?)", now),
		})
	if result.Error != nil {
		return dataAccessError("revert campaign", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormCampaignRepo) GetDueScheduled(ctx context.Context, salonID string, now time.Time, limit int) ([]domain.Campaign, error) {
	var models []CampaignModel
	err := r.db.WithContext(ctx).
		Where("salon_id = ? AND status = ? AND scheduled_at <= ?", salonID, domain.CampaignStatusScheduled, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, dataAccessError("get due campaigns", err)
	}

	campaigns := make([]domain.Campaign, 0, len(models))
	for i := range models {
		campaigns = append(campaigns, *campaignModelToDomain(&models[i]))
	}
	return campaigns, nil
}

func (r *GormCampaignRepo) ListTenantsWithDue(ctx context.Context, now time.Time) ([]string, error) {
	var salonIDs []string
	err := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Distinct("salon_id").
		Where("status = ? AND scheduled_at <= ?", domain.CampaignStatusScheduled, now).
		Order("salon_id ASC").
		Pluck("salon_id", &salonIDs).Error
	if err != nil {
		return nil, dataAccessError("list tenants with due campaigns", err)
	}
	return salonIDs, nil
}
