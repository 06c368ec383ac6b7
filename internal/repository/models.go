package repository

import (
	"time"

	"github.com/kursadbilgin/salon-crm/internal/domain"
)

// SalonModel is the persistence model for the salons table.
type SalonModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	Name             string `gorm:"type:varchar(255);not null"`
	Phone            string `gorm:"type:varchar(32)"`
	BirthdayTemplate string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (SalonModel) TableName() string {
	return "salons"
}

// CustomerModel is the persistence model for the customers table.
type CustomerModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	SalonID     string `gorm:"type:uuid;not null"`
	Name        string `gorm:"type:varchar(255);not null"`
	Phone       string `gorm:"type:varchar(32);not null"`
	BirthDay    *int   `gorm:"type:smallint"`
	BirthMonth  *int   `gorm:"type:smallint"`
	LastVisitAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CustomerModel) TableName() string {
	return "customers"
}

// VisitModel is the persistence model for the visits table.
type VisitModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	SalonID    string    `gorm:"type:uuid;not null"`
	CustomerID string    `gorm:"type:uuid;not null"`
	RecordedBy string    `gorm:"type:varchar(64);not null"`
	VisitedAt  time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

func (VisitModel) TableName() string {
	return "visits"
}

// CampaignModel is the persistence model for the campaigns table.
type CampaignModel struct {
	ID          string                `gorm:"type:uuid;primaryKey"`
	SalonID     string                `gorm:"type:uuid;not null"`
	Name        string                `gorm:"type:varchar(255)"`
	Message     string                `gorm:"type:text;not null"`
	Type        domain.CampaignType   `gorm:"type:varchar(20);not null"`
	Status      domain.CampaignStatus `gorm:"type:varchar(20);not null"`
	ScheduledAt *time.Time            `gorm:"type:timestamptz"`
	SentAt      *time.Time            `gorm:"type:timestamptz"`
	CreatedBy   *string               `gorm:"type:varchar(64)"`
	DedupeKey   *string               `gorm:"type:varchar(128)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CampaignModel) TableName() string {
	return "campaigns"
}

// CampaignRecipientModel is the persistence model for the campaign_recipients table.
type CampaignRecipientModel struct {
	ID           string                 `gorm:"type:uuid;primaryKey"`
	CampaignID   string                 `gorm:"type:uuid;not null"`
	CustomerID   string                 `gorm:"type:uuid;not null"`
	Phone        string                 `gorm:"type:varchar(32);not null"`
	CustomerName string                 `gorm:"type:varchar(255)"`
	Status       domain.RecipientStatus `gorm:"type:varchar(20);not null"`
	SentAt       *time.Time             `gorm:"type:timestamptz"`
	DeliveredAt  *time.Time             `gorm:"type:timestamptz"`
	OpenedAt     *time.Time             `gorm:"type:timestamptz"`
	Error        *string                `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CampaignRecipientModel) TableName() string {
	return "campaign_recipients"
}

// customerRow is a customer joined with its derived visit count.
type customerRow struct {
	CustomerModel `gorm:"embedded"`
	VisitCount    int `gorm:"column:visit_count"`
}

func salonModelFromDomain(s *domain.Salon) *SalonModel {
	if s == nil {
		return nil
	}

	return &SalonModel{
		ID:               s.ID,
		Name:             s.Name,
		Phone:            s.Phone,
		BirthdayTemplate: s.BirthdayTemplate,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func salonModelToDomain(m *SalonModel) *domain.Salon {
	if m == nil {
		return nil
	}

	return &domain.Salon{
		ID:               m.ID,
		Name:             m.Name,
		Phone:            m.Phone,
		BirthdayTemplate: m.BirthdayTemplate,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func customerModelFromDomain(c *domain.Customer) *CustomerModel {
	if c == nil {
		return nil
	}

	return &CustomerModel{
		ID:          c.ID,
		SalonID:     c.SalonID,
		Name:        c.Name,
		Phone:       c.Phone,
		BirthDay:    c.BirthDay,
		BirthMonth:  c.BirthMonth,
		LastVisitAt: c.LastVisitAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func customerModelToDomain(m *CustomerModel, visitCount int) *domain.Customer {
	if m == nil {
		return nil
	}

	return &domain.Customer{
		ID:          m.ID,
		SalonID:     m.SalonID,
		Name:        m.Name,
		Phone:       m.Phone,
		BirthDay:    m.BirthDay,
		BirthMonth:  m.BirthMonth,
		VisitCount:  visitCount,
		LastVisitAt: m.LastVisitAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func customerRowsToDomain(rows []customerRow) []domain.Customer {
	customers := make([]domain.Customer, 0, len(rows))
	for i := range rows {
		customers = append(customers, *customerModelToDomain(&rows[i].CustomerModel, rows[i].VisitCount))
	}
	return customers
}

func visitModelFromDomain(v *domain.Visit) *VisitModel {
	if v == nil {
		return nil
	}

	return &VisitModel{
		ID:         v.ID,
		SalonID:    v.SalonID,
		CustomerID: v.CustomerID,
		RecordedBy: v.RecordedBy,
		VisitedAt:  v.VisitedAt,
		CreatedAt:  v.CreatedAt,
	}
}

func visitModelToDomain(m *VisitModel) *domain.Visit {
	if m == nil {
		return nil
	}

	return &domain.Visit{
		ID:         m.ID,
		SalonID:    m.SalonID,
		CustomerID: m.CustomerID,
		RecordedBy: m.RecordedBy,
		VisitedAt:  m.VisitedAt,
		CreatedAt:  m.CreatedAt,
	}
}

func campaignModelFromDomain(c *domain.Campaign) *CampaignModel {
	if c == nil {
		return nil
	}

	return &CampaignModel{
		ID:          c.ID,
		SalonID:     c.SalonID,
		Name:        c.Name,
		Message:     c.Message,
		Type:        c.Type,
		Status:      c.Status,
		ScheduledAt: c.ScheduledAt,
		SentAt:      c.SentAt,
		CreatedBy:   c.CreatedBy,
		DedupeKey:   c.DedupeKey,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func campaignModelToDomain(m *CampaignModel) *domain.Campaign {
	if m == nil {
		return nil
	}

	return &domain.Campaign{
		ID:          m.ID,
		SalonID:     m.SalonID,
		Name:        m.Name,
		Message:     m.Message,
		Type:        m.Type,
		Status:      m.Status,
		ScheduledAt: m.ScheduledAt,
		SentAt:      m.SentAt,
		CreatedBy:   m.CreatedBy,
		DedupeKey:   m.DedupeKey,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func recipientModelFromDomain(r *domain.CampaignRecipient) *CampaignRecipientModel {
	if r == nil {
		return nil
	}

	return &CampaignRecipientModel{
		ID:           r.ID,
		CampaignID:   r.CampaignID,
		CustomerID:   r.CustomerID,
		Phone:        r.Phone,
		CustomerName: r.CustomerName,
		Status:       r.Status,
		SentAt:       r.SentAt,
		DeliveredAt:  r.DeliveredAt,
		OpenedAt:     r.OpenedAt,
		Error:        r.Error,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func recipientModelToDomain(m *CampaignRecipientModel) *domain.CampaignRecipient {
	if m == nil {
		return nil
	}

	return &domain.CampaignRecipient{
		ID:           m.ID,
		CampaignID:   m.CampaignID,
		CustomerID:   m.CustomerID,
		Phone:        m.Phone,
		CustomerName: m.CustomerName,
		Status:       m.Status,
		SentAt:       m.SentAt,
		DeliveredAt:  m.DeliveredAt,
		OpenedAt:     m.OpenedAt,
		Error:        m.Error,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
