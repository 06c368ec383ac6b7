package repository

import (
	"context"
	"time"

	"github.com/kursadbilgin/salon-crm/internal/domain"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status domain.RecipientStatus `gorm:"column:status"`
	Count  int                    `gorm:"column:count"`
}

type RecipientRepository interface {
	ListPending(ctx context.Context, campaignID string) ([]domain.CampaignRecipient, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
	CountByStatus(ctx context.Context, campaignID string) (map[domain.RecipientStatus]int, error)
}

type GormRecipientRepo struct {
	db *gorm.DB
}

func NewGormRecipientRepo(db *gorm.DB) *GormRecipientRepo {
	return &GormRecipientRepo{db: db}
}

func (r *GormRecipientRepo) ListPending(ctx context.Context, campaignID string) ([]domain.CampaignRecipient, error) {
	var models []CampaignRecipientModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, domain.RecipientStatusPending).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, dataAccessError("list pending recipients", err)
	}

	recipients := make([]domain.CampaignRecipient, 0, len(models))
	for i := range models {
		recipients = append(recipients, *recipientModelToDomain(&models[i]))
	}
	return recipients, nil
}

// MarkSent and MarkFailed only move PENDING rows; a row that already left PENDING yields
// domain.ErrConflict.
func (r *GormRecipientRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.transition(ctx, id, map[string]any{
		"status":  domain.RecipientStatusSent,
		"sent_at": sentAt,
		"error":   nil,
	})
}

func (r *GormRecipientRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.transition(ctx, id, map[string]any{
		"status": domain.RecipientStatusFailed,
		"error":  reason,
	})
}

func (r *GormRecipientRepo) CountByStatus(ctx context.Context, campaignID string) (map[domain.RecipientStatus]int, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&CampaignRecipientModel{}).
		Select("status, COUNT(*) as count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccessError("count recipients", err)
	}

	counts := make(map[domain.RecipientStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] += row.Count
	}
	return counts, nil
}

func (r *GormRecipientRepo) transition(ctx context.Context, id string, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignRecipientModel{}).
		Where("id = ? AND status = ?", id, domain.RecipientStatusPending).
		Updates(updates)
	if result.Error != nil {
		return dataAccessError("update recipient", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
