package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/repository"
)

// Resolver turns a selection rule into the customers a campaign is sent to.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string, rule domain.SelectionRule, now time.Time) ([]domain.Customer, error)
}

// RecipientResolver resolves selection rules against the customer store. Every query is scoped
// to the requesting tenant.
type RecipientResolver struct {
	customers           repository.CustomerRepository
	defaultInactiveDays int
}

func NewRecipientResolver(customers repository.CustomerRepository, defaultInactiveDays int) *RecipientResolver {
	if defaultInactiveDays <= 0 {
		defaultInactiveDays = domain.DefaultInactiveDays
	}
	return &RecipientResolver{
		customers:           customers,
		defaultInactiveDays: defaultInactiveDays,
	}
}

// Resolve returns the ordered recipients for rule. Customers are deduplicated by id and by phone
// number, first occurrence wins. Zero matches is an empty slice, not an error.
func (r *RecipientResolver) Resolve(
	ctx context.Context,
	tenantID string,
	rule domain.SelectionRule,
	now time.Time,
) ([]domain.Customer, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant is required", domain.ErrUnauthorized)
	}

	rule = rule.Normalize(r.defaultInactiveDays)
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	var (
		customers []domain.Customer
		err       error
	)
	switch rule.Kind {
	case domain.SelectionBirthday:
		customers, err = r.resolveBirthdays(ctx, tenantID, now)
	case domain.SelectionInactive:
		cutoff := now.Add(-time.Duration(rule.InactiveDays) * 24 * time.Hour)
		customers, err = r.customers.FindInactiveSince(ctx, tenantID, cutoff)
	case domain.SelectionExplicit:
		customers, err = r.resolveExplicit(ctx, tenantID, rule.CustomerIDs)
	}
	if err != nil {
		return nil, err
	}

	return dedupeRecipients(customers), nil
}

// resolveBirthdays matches day and month of now. Customers born on Feb 29 are greeted on Feb 28
// in non-leap years.
func (r *RecipientResolver) resolveBirthdays(ctx context.Context, tenantID string, now time.Time) ([]domain.Customer, error) {
	customers, err := r.customers.FindByBirthday(ctx, tenantID, now.Day(), int(now.Month()))
	if err != nil {
		return nil, err
	}

	if isLeapDayStandIn(now) {
		leapDay, err := r.customers.FindByBirthday(ctx, tenantID, 29, int(time.February))
		if err != nil {
			return nil, err
		}
		customers = append(customers, leapDay...)
	}

	return customers, nil
}

func (r *RecipientResolver) resolveExplicit(ctx context.Context, tenantID string, ids []string) ([]domain.Customer, error) {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, id)
		}
	}

	found, err := r.customers.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Customer, len(found))
	for _, c := range found {
		if c.SalonID != tenantID {
			continue
		}
		byID[c.ID] = c
	}

	ordered := make([]domain.Customer, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, id)
		}
		ordered = append(ordered, c)
	}
	return ordered, nil
}

func dedupeRecipients(customers []domain.Customer) []domain.Customer {
	seenIDs := make(map[string]struct{}, len(customers))
	seenPhones := make(map[string]struct{}, len(customers))
	out := make([]domain.Customer, 0, len(customers))

	for _, c := range customers {
		phone := domain.NormalizePhone(c.Phone)
		if _, dup := seenIDs[c.ID]; dup {
			continue
		}
		if _, dup := seenPhones[phone]; dup {
			continue
		}
		seenIDs[c.ID] = struct{}{}
		seenPhones[phone] = struct{}{}
		out = append(out, c)
	}
	return out
}

func isLeapDayStandIn(t time.Time) bool {
	if t.Month() != time.February || t.Day() != 28 {
		return false
	}
	year := t.Year()
	leap := year%4 == 0 && (year%100 != 0 || year%400 == 0)
	return !leap
}
