package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/kursadbilgin/salon-crm/internal/app"
	"github.com/kursadbilgin/salon-crm/internal/config"
	infraredis "github.com/kursadbilgin/salon-crm/internal/infra/redis"
	"github.com/kursadbilgin/salon-crm/internal/observability"
	"github.com/kursadbilgin/salon-crm/internal/queue"
	"github.com/kursadbilgin/salon-crm/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, sqlDB, err := app.OpenDatabase(cfg, false)
	if err != nil {
		logger.Fatal("database initialization failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rmq.Close()

	services, err := app.NewServices(cfg, db, rdb, nil, logger)
	if err != nil {
		logger.Fatal("service initialization failed", zap.Error(err))
	}

	consumer := queue.NewRabbitMQConsumer(rmq, cfg.WorkerPrefetch, logger.Named("consumer"))
	worker, err := service.NewWorkerService(consumer, services.Triggers, cfg.ScheduledScanInterval, logger.Named("worker"))
	if err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("salon-crm worker started",
		zap.String("queue", queue.TriggerQueue),
		zap.Duration("scan_interval", cfg.ScheduledScanInterval),
	)
	if err := worker.Start(ctx); err != nil {
		logger.Error("worker stopped with error", zap.Error(err))
		return
	}
	logger.Info("salon-crm worker stopped")
}
