package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"gorm.io/gorm"
)

func createCustomersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_customers",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.CustomerModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_customers_salon_birthday ON customers (salon_id, birth_month, birth_day)`,
				`CREATE INDEX IF NOT EXISTS idx_customers_birthday ON customers (birth_month, birth_day) WHERE birth_month IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_customers_salon_last_visit ON customers (salon_id, last_visit_at)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_salon_phone ON customers (salon_id, phone)`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.CustomerModel{})
		},
	}
}
