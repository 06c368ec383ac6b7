package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/salon-crm/internal/app"
	"github.com/kursadbilgin/salon-crm/internal/auth"
	"github.com/kursadbilgin/salon-crm/internal/config"
	"github.com/kursadbilgin/salon-crm/internal/handler"
	infraredis "github.com/kursadbilgin/salon-crm/internal/infra/redis"
	"github.com/kursadbilgin/salon-crm/internal/observability"
	"github.com/kursadbilgin/salon-crm/internal/queue"
	"github.com/kursadbilgin/salon-crm/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

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

	db, sqlDB, err := app.OpenDatabase(cfg, true)
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
	publisher := queue.NewRabbitMQPublisher(rmq)

	metrics := observability.NewMetrics()

	services, err := app.NewServices(cfg, db, rdb, metrics, logger)
	if err != nil {
		logger.Fatal("service initialization failed", zap.Error(err))
	}

	verifier, err := auth.NewTokenVerifier(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("session verifier initialization failed", zap.Error(err))
	}

	server := fiber.New(fiber.Config{
		AppName:      "salon-crm",
		ErrorHandler: transport.ErrorHandler(logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	})
	server.Use(recover.New())
	server.Use(requestid.New())
	server.Use(handler.CorrelationMiddleware())
	server.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(server,
		handler.PostgresCheck(sqlDB),
		handler.RedisCheck(rdb),
		handler.ReadinessCheck{Name: "rabbitmq", Ping: rmq.Ping},
	)
	server.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := registerRoutes(server, cfg, verifier, services, publisher); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("salon-crm api started", zap.Int("port", cfg.APIPort))
		serverErr <- server.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("http server stopped", zap.Error(err))
		}
	}

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	logger.Info("salon-crm api stopped")
}

func registerRoutes(
	router fiber.Router,
	cfg *config.Config,
	verifier auth.Verifier,
	services *app.Services,
	publisher queue.Publisher,
) error {
	if err := handler.RegisterCampaignRoutes(router, verifier, services.Dispatch, services.Campaigns, services.Stats); err != nil {
		return err
	}
	if err := handler.RegisterCustomerRoutes(router, verifier, services.Customers); err != nil {
		return err
	}
	if err := handler.RegisterSalonRoutes(router, verifier, services.Salons); err != nil {
		return err
	}
	return handler.RegisterTriggerRoutes(router, cfg.CronSecret, services.Triggers, publisher)
}
