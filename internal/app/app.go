// Package app wires configuration, storage, messaging and services into the process entrypoints.
package app

import (
	"database/sql"
	"fmt"

	"github.com/kursadbilgin/salon-crm/internal/config"
	"github.com/kursadbilgin/salon-crm/internal/infra/postgresql"
	"github.com/kursadbilgin/salon-crm/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/salon-crm/internal/infra/redis"
	"github.com/kursadbilgin/salon-crm/internal/observability"
	"github.com/kursadbilgin/salon-crm/internal/provider"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"github.com/kursadbilgin/salon-crm/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories groups the Gorm-backed data access layer.
type Repositories struct {
	Campaigns  *repository.GormCampaignRepo
	Recipients *repository.GormRecipientRepo
	Customers  *repository.GormCustomerRepo
	Salons     *repository.GormSalonRepo
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Campaigns:  repository.NewGormCampaignRepo(db),
		Recipients: repository.NewGormRecipientRepo(db),
		Customers:  repository.NewGormCustomerRepo(db),
		Salons:     repository.NewGormSalonRepo(db),
	}
}

// Services groups the domain services shared by the API, the worker and salonctl.
type Services struct {
	Dispatch  *service.DispatchService
	Triggers  *service.TriggerService
	Campaigns *service.CampaignService
	Stats     *service.StatsService
	Customers *service.CustomerService
	Salons    *service.SalonService
}

// OpenDatabase connects to postgres and, when migrate is set, applies pending migrations.
func OpenDatabase(cfg *config.Config, migrate bool) (*gorm.DB, *sql.DB, error) {
	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, postgresql.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:        cfg.LogLevel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres initialization failed: %w", err)
	}

	if migrate {
		if err := migrations.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("database migrations failed: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	return db, sqlDB, nil
}

// NewServices builds the service graph. metrics may be nil.
func NewServices(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	repos := NewRepositories(db)

	messenger, err := provider.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("sms provider initialization failed: %w", err)
	}

	gatewayLimits, err := cfg.GatewayRateLimits()
	if err != nil {
		return nil, err
	}
	limiter, err := infraredis.NewSMSRateLimiter(rdb, cfg.SMSRateLimitPerSec, gatewayLimits)
	if err != nil {
		return nil, fmt.Errorf("rate limiter initialization failed: %w", err)
	}

	resolver := service.NewRecipientResolver(repos.Customers, cfg.InactivityDays)

	dispatch, err := service.NewDispatchService(
		repos.Campaigns,
		repos.Recipients,
		resolver,
		messenger,
		limiter,
		cfg.SendTimeout,
		logger.Named("dispatch"),
	)
	if err != nil {
		return nil, err
	}
	dispatch.SetMetrics(metrics)

	triggers, err := service.NewTriggerService(
		repos.Customers,
		repos.Salons,
		repos.Campaigns,
		dispatch,
		cfg.DedupeRecurring,
		logger.Named("triggers"),
	)
	if err != nil {
		return nil, err
	}
	triggers.SetMetrics(metrics)

	return &Services{
		Dispatch:  dispatch,
		Triggers:  triggers,
		Campaigns: service.NewCampaignService(repos.Campaigns),
		Stats:     service.NewStatsService(repos.Campaigns, repos.Recipients),
		Customers: service.NewCustomerService(repos.Customers, logger.Named("customers")),
		Salons:    service.NewSalonService(repos.Salons),
	}, nil
}
