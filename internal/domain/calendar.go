package domain

import (
	"fmt"
	"strings"
	"time"
)

const CalendarDateLayout = "2006-01-02"

type CalendarEvent struct {
	Date      string   `json:"date" yaml:"date"`
	Name      string   `json:"name" yaml:"name"`
	Priority  Priority `json:"priority" yaml:"priority"`
	Locations []string `json:"locations" yaml:"locations"`
}

// OccursOn compares the event date with the calendar day of now in now's
// location.
func (e CalendarEvent) OccursOn(now time.Time) bool {
	return strings.TrimSpace(e.Date) == now.Format(CalendarDateLayout)
}

func (e CalendarEvent) Validate() error {
	if _, err := time.Parse(CalendarDateLayout, strings.TrimSpace(e.Date)); err != nil {
		return fmt.Errorf("%w: event %q has invalid date %q", ErrInvalidInput, e.Name, e.Date)
	}
	if _, err := ParsePriority(string(e.Priority)); err != nil || strings.TrimSpace(string(e.Priority)) == "" {
		return fmt.Errorf("%w: event %q has invalid priority %q", ErrInvalidInput, e.Name, e.Priority)
	}
	return nil
}
