package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/salon-crm/internal/domain"
	"gorm.io/gorm"
)

type SalonRepository interface {
	Create(ctx context.Context, s *domain.Salon) error
	GetByID(ctx context.Context, id string) (*domain.Salon, error)
	UpdateBirthdayTemplate(ctx context.Context, id string, template string) error
}

type GormSalonRepo struct {
	db *gorm.DB
}

func NewGormSalonRepo(db *gorm.DB) *GormSalonRepo {
	return &GormSalonRepo{db: db}
}

func (r *GormSalonRepo) Create(ctx context.Context, s *domain.Salon) error {
	model := salonModelFromDomain(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return dataAccessError("create salon", err)
	}
	if s != nil {
		*s = *salonModelToDomain(model)
	}
	return nil
}

func (r *GormSalonRepo) GetByID(ctx context.Context, id string) (*domain.Salon, error) {
	var model SalonModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, dataAccessError("get salon", err)
	}
	return salonModelToDomain(&model), nil
}

func (r *GormSalonRepo) UpdateBirthdayTemplate(ctx context.Context, id string, template string) error {
	result := r.db.WithContext(ctx).
		Model(&SalonModel{}).
		Where("id = ?", id).
		Update("birthday_template", template)
	if result.Error != nil {
		return dataAccessError("update salon template", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
