package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"gorm.io/gorm"
)

func createSalonsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_salons",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.SalonModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SalonModel{})
		},
	}
}
