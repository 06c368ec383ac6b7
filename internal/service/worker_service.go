package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/salon-crm/internal/observability"
	"github.com/kursadbilgin/salon-crm/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkerService consumes trigger messages and, when scanInterval is positive, also runs the
// in-process scheduled-dispatch ticker.
type WorkerService struct {
	consumer     queue.Consumer
	triggers     TriggerRunner
	logger       *zap.Logger
	scanInterval time.Duration
	now          func() time.Time
}

func NewWorkerService(
	consumer queue.Consumer,
	triggers TriggerRunner,
	scanInterval time.Duration,
	logger *zap.Logger,
) (*WorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if triggers == nil {
		return nil, fmt.Errorf("trigger runner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		consumer:     consumer,
		triggers:     triggers,
		logger:       logger,
		scanInterval: scanInterval,
		now:          time.Now,
	}, nil
}

// Start blocks until ctx is canceled or the consumer fails.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("trigger consumer started", zap.String("queue", queue.TriggerQueue))
		if err := s.consumer.Consume(groupCtx, queue.TriggerQueue, s.processMessage); err != nil {
			s.logger.Error("trigger consumer stopped with error", zap.Error(err))
			return err
		}
		s.logger.Info("trigger consumer stopped")
		return nil
	})

	if s.scanInterval > 0 {
		scheduler, err := NewScheduler(s.triggers, s.scanInterval, s.logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			s.logger.Info("scheduled dispatch ticker started", zap.Duration("interval", s.scanInterval))
			return scheduler.Start(groupCtx)
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.TriggerMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	} else {
		ctx, _ = observability.EnsureCorrelationID(ctx)
	}
	logger := observability.WithContextLogger(s.logger, ctx)
	at := msg.ReferenceTime(s.now())

	var (
		result TriggerResult
		err    error
	)
	switch msg.Kind {
	case queue.TriggerBirthday:
		result, err = s.triggers.BirthdayDispatch(ctx, at)
	case queue.TriggerScheduled:
		result, err = s.triggers.ScheduledDispatch(ctx, at)
	default:
		logger.Warn("ignoring trigger with unknown kind",
			zap.String("triggerId", msg.TriggerID),
			zap.String("kind", string(msg.Kind)),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("trigger %s failed: %w", msg.Kind, err)
	}

	logger.Info("trigger processed",
		zap.String("triggerId", msg.TriggerID),
		zap.String("kind", string(msg.Kind)),
		zap.Int("campaigns", result.Campaigns),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("tenantErrors", result.TenantErrors),
	)
	return nil
}
