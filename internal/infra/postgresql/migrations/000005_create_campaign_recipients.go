package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"gorm.io/gorm"
)

func createCampaignRecipientsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_campaign_recipients",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.CampaignRecipientModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_campaign_recipients_campaign_status ON campaign_recipients (campaign_id, status)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.CampaignRecipientModel{})
		},
	}
}
