package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/salon-crm/internal/domain"
	"gorm.io/gorm"
)

func dataAccessError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrDataAccess, op, err)
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
