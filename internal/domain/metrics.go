package domain

import (
	"math"
	"time"
)

const (
	maxCompletionHours      = 8760.0
	fallbackCompletionHours = 1.0
)

// CompletionHours measures from assignment, or creation when the ticket was
// never stamped with an assignment time. Values outside [0, 8760] are
// replaced by a one hour sentinel.
func CompletionHours(assignedAt *time.Time, createdAt, now time.Time) float64 {
	start := createdAt
	if assignedAt != nil && !assignedAt.IsZero() {
		start = *assignedAt
	}
	hours := now.Sub(start).Hours()
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 || hours > maxCompletionHours {
		return fallbackCompletionHours
	}
	return hours
}

// RecordCompletion folds one completion into the running metrics.
func (m WorkerMetrics) RecordCompletion(hours float64) WorkerMetrics {
	m.TotalCompleted++
	if m.TotalCompleted == 1 {
		m.AverageCompletionHours = hours
	} else {
		n := float64(m.TotalCompleted)
		m.AverageCompletionHours = (m.AverageCompletionHours*(n-1) + hours) / n
	}
	if math.IsNaN(m.AverageCompletionHours) || math.IsInf(m.AverageCompletionHours, 0) {
		m.AverageCompletionHours = hours
	}
	m.CurrentWindowCompleted++
	return m
}
