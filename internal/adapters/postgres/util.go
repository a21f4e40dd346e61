package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"gorm.io/gorm"
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// mapError translates driver errors into domain errors. Anything not
// otherwise recognized is reported as retryable storage unavailability.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case isUniqueViolation(err):
		return domain.ErrConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrConflict):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
}
