package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Customer is a salon client. VisitCount is derived from the visit log and is never written directly.
type Customer struct {
	ID          string
	SalonID     string
	Name        string
	Phone       string
	BirthDay    *int
	BirthMonth  *int
	VisitCount  int
	LastVisitAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Customer) Validate() error {
	if strings.TrimSpace(c.SalonID) == "" {
		return fmt.Errorf("%w: salon id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !phonePattern.MatchString(c.Phone) {
		return fmt.Errorf("%w: invalid phone %q", ErrValidation, c.Phone)
	}
	return ValidateBirthDate(c.BirthDay, c.BirthMonth)
}

// HasBirthdayOn reports whether the stored day and month match t. The year is ignored.
func (c Customer) HasBirthdayOn(t time.Time) bool {
	if c.BirthDay == nil || c.BirthMonth == nil {
		return false
	}
	return *c.BirthDay == t.Day() && *c.BirthMonth == int(t.Month())
}

func (c Customer) Loyalty() LoyaltyStatus {
	return LoyaltyFor(c.VisitCount)
}

// NormalizePhone strips common separators so "+90 555-111 22 33" and "+905551112233" compare equal.
func NormalizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

var daysInMonth = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// ValidateBirthDate checks an optional day/month pair. Both must be set or both empty; Feb 29 is allowed.
func ValidateBirthDate(day, month *int) error {
	if day == nil && month == nil {
		return nil
	}
	if day == nil || month == nil {
		return fmt.Errorf("%w: birth day and birth month must be provided together", ErrValidation)
	}
	if *month < 1 || *month > 12 {
		return fmt.Errorf("%w: birth month must be between 1 and 12 (got %d)", ErrValidation, *month)
	}
	if *day < 1 || *day > daysInMonth[*month] {
		return fmt.Errorf("%w: birth day %d is out of range for month %d", ErrValidation, *day, *month)
	}
	return nil
}
