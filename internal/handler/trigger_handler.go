package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/auth"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/observability"
	"github.com/kursadbilgin/salon-crm/internal/queue"
	"github.com/kursadbilgin/salon-crm/internal/service"
)

type TriggerRunner interface {
	BirthdayDispatch(ctx context.Context, now time.Time) (service.TriggerResult, error)
	ScheduledDispatch(ctx context.Context, now time.Time) (service.TriggerResult, error)
}

// TriggerHandler serves the endpoints called by the external time-based trigger. Runs are
// inline by default; ?async=true hands them to the worker through the trigger queue.
type TriggerHandler struct {
	runner    TriggerRunner
	publisher queue.Publisher
	now       func() time.Time
}

func NewTriggerHandler(runner TriggerRunner, publisher queue.Publisher) (*TriggerHandler, error) {
	if runner == nil {
		return nil, fmt.Errorf("trigger runner is required")
	}
	return &TriggerHandler{
		runner:    runner,
		publisher: publisher,
		now:       time.Now,
	}, nil
}

func RegisterTriggerRoutes(router fiber.Router, cronSecret string, runner TriggerRunner, publisher queue.Publisher) error {
	h, err := NewTriggerHandler(runner, publisher)
	if err != nil {
		return err
	}

	g := router.Group("/v1/triggers", auth.RequireCronSecret(cronSecret))
	g.Post("/birthday-dispatch", h.BirthdayDispatch)
	g.Post("/scheduled-dispatch", h.ScheduledDispatch)

	return nil
}

type triggerAcceptedResponse struct {
	TriggerID string `json:"triggerId"`
	Kind      string `json:"kind"`
}

// BirthdayDispatch accepts an optional ?date=YYYY-MM-DD to replay a missed day.
func (h *TriggerHandler) BirthdayDispatch(c *fiber.Ctx) error {
	runAt, err := parseDateQuery(c.Query("date"), "date")
	if err != nil {
		return err
	}

	if c.QueryBool("async", false) {
		return h.enqueue(c, queue.TriggerBirthday, runAt)
	}

	at := h.now()
	if runAt != nil {
		at = *runAt
	}
	result, err := h.runner.BirthdayDispatch(requestContext(c), at)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *TriggerHandler) ScheduledDispatch(c *fiber.Ctx) error {
	if c.QueryBool("async", false) {
		return h.enqueue(c, queue.TriggerScheduled, nil)
	}

	result, err := h.runner.ScheduledDispatch(requestContext(c), h.now())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *TriggerHandler) enqueue(c *fiber.Ctx, kind queue.TriggerKind, runAt *time.Time) error {
	if h.publisher == nil {
		return fmt.Errorf("%w: async triggers are not configured", domain.ErrValidation)
	}

	ctx := requestContext(c)
	correlationID, _ := observability.CorrelationIDFromContext(ctx)
	msg := queue.TriggerMessage{
		TriggerID:     uuid.NewString(),
		CorrelationID: correlationID,
		Kind:          kind,
		RequestedAt:   h.now().UTC(),
		RunAt:         runAt,
	}
	if err := h.publisher.Publish(ctx, queue.TriggerQueue, msg); err != nil {
		return fmt.Errorf("failed to publish trigger: %w", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(triggerAcceptedResponse{
		TriggerID: msg.TriggerID,
		Kind:      string(kind),
	})
}
