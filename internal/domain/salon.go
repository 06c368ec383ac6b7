package domain

import (
	"strings"
	"time"
)

const DefaultBirthdayTemplate = "Happy birthday, {name}! Enjoy a treat on your next visit."

// Salon is a tenant.
type Salon struct {
	ID               string
	Name             string
	Phone            string
	BirthdayTemplate string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BirthdayMessage returns the salon's birthday template, falling back to the default one.
func (s Salon) BirthdayMessage() string {
	if tpl := strings.TrimSpace(s.BirthdayTemplate); tpl != "" {
		return tpl
	}
	return DefaultBirthdayTemplate
}
