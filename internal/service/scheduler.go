package service

import (
	"context"
	"time"

	"github.com/kursadbilgin/salon-crm/internal/observability"
	"go.uber.org/zap"
)

const defaultSchedulerScanInterval = time.Minute

// TriggerRunner runs the dispatch triggers. TriggerService implements it.
type TriggerRunner interface {
	BirthdayDispatch(ctx context.Context, now time.Time) (TriggerResult, error)
	ScheduledDispatch(ctx context.Context, now time.Time) (TriggerResult, error)
}

// Scheduler runs the scheduled-dispatch trigger on a fixed interval inside the worker, for
// deployments without an external minutely cron.
type Scheduler struct {
	triggers TriggerRunner
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

func NewScheduler(triggers TriggerRunner, interval time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if interval <= 0 {
		interval = defaultSchedulerScanInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		triggers: triggers,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scheduler scan failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) scanDue(ctx context.Context) error {
	scanCtx, _ := observability.EnsureCorrelationID(ctx)
	_, err := s.triggers.ScheduledDispatch(scanCtx, s.now())
	return err
}
