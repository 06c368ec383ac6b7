package handler

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/auth"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/observability"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindBody parses the JSON body into dst and runs its validate tags. Every failure is a
// domain.ErrValidation.
func bindBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	violations := make([]string, 0, len(ve))
	for _, fe := range ve {
		violations = append(violations, violationMessage(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(violations, "; "))
}

func violationMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, found := strings.Cut(field, "."); found {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func parsePage(c *fiber.Ctx) (int, int, error) {
	page := c.QueryInt("page", defaultPage)
	pageSize := c.QueryInt("pageSize", defaultPageSize)

	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return 0, 0, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}
	return page, pageSize, nil
}

func parseDateQuery(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.DateOnly, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrValidation, field)
	}
	return &t, nil
}

func requireIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: no session", domain.ErrUnauthorized)
	}
	return identity, nil
}

// CorrelationMiddleware stores the request id in the user context so service logs carry it.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := requestCorrelationID(c)
		if correlationID == "" {
			correlationID = uuid.NewString()
			c.Set(fiber.HeaderXRequestID, correlationID)
		}
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))
		return c.Next()
	}
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func requestContext(c *fiber.Ctx) context.Context {
	return c.UserContext()
}
