package ports

import (
	"context"

	"github.com/bhavishyjain/SevaAI/internal/domain"
)

// CalendarSource yields the current ordered list of calendar events.
type CalendarSource interface {
	Events(ctx context.Context) ([]domain.CalendarEvent, error)
}
