package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/salon-crm/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const customerWithVisitCount = "customers.*, (SELECT COUNT(*) FROM visits WHERE visits.customer_id = customers.id) AS visit_count"

type CustomerListParams struct {
	Page     int
	PageSize int
}

// CustomerRepository reads and writes customers. Every tenant-facing query takes the salon id and
// filters on it in SQL.
type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, salonID string, id string) (*domain.Customer, error)
	List(ctx context.Context, salonID string, params CustomerListParams) ([]domain.Customer, int64, error)
	FindByBirthday(ctx context.Context, salonID string, day int, month int) ([]domain.Customer, error)
	FindInactiveSince(ctx context.Context, salonID string, cutoff time.Time) ([]domain.Customer, error)
	FindByIDs(ctx context.Context, salonID string, ids []string) ([]domain.Customer, error)
	FindAllByBirthday(ctx context.Context, day int, month int) ([]domain.Customer, error)
	RecordVisit(ctx context.Context, v *domain.Visit) (int, error)
}

type GormCustomerRepo struct {
	db *gorm.DB
}

func NewGormCustomerRepo(db *gorm.DB) *GormCustomerRepo {
	return &GormCustomerRepo{db: db}
}

func (r *GormCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	model := customerModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolationError(err) {
			return domain.ErrConflict
		}
		return dataAccessError("create customer", err)
	}
	if c != nil {
		*c = *customerModelToDomain(model, 0)
	}
	return nil
}

func (r *GormCustomerRepo) GetByID(ctx context.Context, salonID string, id string) (*domain.Customer, error) {
	var rows []customerRow
	err := r.withVisitCount(ctx).
		Where("customers.salon_id = ? AND customers.id = ?", salonID, id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccessError("get customer", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return customerModelToDomain(&rows[0].CustomerModel, rows[0].VisitCount), nil
}

func (r *GormCustomerRepo) List(ctx context.Context, salonID string, params CustomerListParams) ([]domain.Customer, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&CustomerModel{}).
		Where("salon_id = ?", salonID).
		Count(&total).Error; err != nil {
		return nil, 0, dataAccessError("count customers", err)
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var rows []customerRow
	err := r.withVisitCount(ctx).
		Where("customers.salon_id = ?", salonID).
		Order("customers.name ASC, customers.id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, dataAccessError("list customers", err)
	}

	return customerRowsToDomain(rows), total, nil
}

func (r *GormCustomerRepo) FindByBirthday(ctx context.Context, salonID string, day int, month int) ([]domain.Customer, error) {
	var rows []customerRow
	err := r.withVisitCount(ctx).
		Where("customers.salon_id = ? AND customers.birth_day = ? AND customers.birth_month = ?", salonID, day, month).
		Order("customers.created_at ASC, customers.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccessError("find customers by birthday", err)
	}
	return customerRowsToDomain(rows), nil
}

// FindInactiveSince returns customers who never visited or whose last visit is before cutoff,
// never-visited first, then oldest visit first.
func (r *GormCustomerRepo) FindInactiveSince(ctx context.Context, salonID string, cutoff time.Time) ([]domain.Customer, error) {
	var rows []customerRow
	err := r.withVisitCount(ctx).
		Where("customers.salon_id = ? AND (customers.last_visit_at IS NULL OR customers.last_visit_at < ?)", salonID, cutoff).
		Order("customers.last_visit_at ASC NULLS FIRST, customers.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccessError("find inactive customers", err)
	}
	return customerRowsToDomain(rows), nil
}

// FindByIDs returns the customers of salonID among ids. Ids belonging to other salons are silently
// absent from the result; callers compare lengths.
func (r *GormCustomerRepo) FindByIDs(ctx context.Context, salonID string, ids []string) ([]domain.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []customerRow
	err := r.withVisitCount(ctx).
		Where("customers.salon_id = ? AND customers.id IN ?", salonID, ids).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccessError("find customers by ids", err)
	}
	return customerRowsToDomain(rows), nil
}

// FindAllByBirthday is the cross-tenant query used only by the birthday trigger to learn which
// salons have matches.
func (r *GormCustomerRepo) FindAllByBirthday(ctx context.Context, day int, month int) ([]domain.Customer, error) {
	var models []CustomerModel
	err := r.db.WithContext(ctx).
		Where("birth_day = ? AND birth_month = ?", day, month).
		Order("salon_id ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, dataAccessError("find birthdays", err)
	}

	customers := make([]domain.Customer, 0, len(models))
	for i := range models {
		customers = append(customers, *customerModelToDomain(&models[i], 0))
	}
	return customers, nil
}

// RecordVisit appends a visit, moves last_visit_at forward and returns the new lifetime visit count.
func (r *GormCustomerRepo) RecordVisit(ctx context.Context, v *domain.Visit) (int, error) {
	model := visitModelFromDomain(v)
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer CustomerModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&customer, "id = ? AND salon_id = ?", model.CustomerID, model.SalonID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Create(model).Error; err != nil {
			return err
		}

		if customer.LastVisitAt == nil || customer.LastVisitAt.Before(model.VisitedAt) {
			if err := tx.Model(&CustomerModel{}).
				Where("id = ?", customer.ID).
				Update("last_visit_at", model.VisitedAt).Error; err != nil {
				return err
			}
		}

		return tx.Model(&VisitModel{}).Where("customer_id = ?", customer.ID).Count(&count).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, dataAccessError("record visit", err)
	}

	if v != nil {
		*v = *visitModelToDomain(model)
	}
	return int(count), nil
}

func (r *GormCustomerRepo) withVisitCount(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("customers").
		Select(customerWithVisitCount)
}
