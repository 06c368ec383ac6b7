package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"gorm.io/gorm"
)

func createVisitsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_visits",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.VisitModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_visits_customer_id ON visits (customer_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.VisitModel{})
		},
	}
}
