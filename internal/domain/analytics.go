package domain

import (
	"fmt"
	"strings"
	"time"
)

type Timeframe string

const (
	Timeframe7Days   Timeframe = "7days"
	Timeframe30Days  Timeframe = "30days"
	Timeframe90Days  Timeframe = "90days"
	Timeframe6Months Timeframe = "6months"
	Timeframe1Year   Timeframe = "1year"
	TimeframeAll     Timeframe = "all"
)

// ParseTimeframe defaults an empty value to 30days.
func ParseTimeframe(raw string) (Timeframe, error) {
	switch v := Timeframe(strings.ToLower(strings.TrimSpace(raw))); v {
	case "":
		return Timeframe30Days, nil
	case Timeframe7Days, Timeframe30Days, Timeframe90Days, Timeframe6Months, Timeframe1Year, TimeframeAll:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown timeframe %q", ErrInvalidInput, raw)
	}
}

// shift moves t back by n timeframe lengths using calendar arithmetic.
func (tf Timeframe) shift(t time.Time, n int) time.Time {
	switch tf {
	case Timeframe7Days:
		return t.AddDate(0, 0, -7*n)
	case Timeframe30Days:
		return t.AddDate(0, 0, -30*n)
	case Timeframe90Days:
		return t.AddDate(0, 0, -90*n)
	case Timeframe6Months:
		return t.AddDate(0, -6*n, 0)
	case Timeframe1Year:
		return t.AddDate(-n, 0, 0)
	default:
		return t
	}
}

// Window is a half-open [From, To) range. A nil From has no lower bound.
type Window struct {
	From *time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	return t.Before(w.To)
}

// Current returns the window ending at now. The all timeframe has no lower
// bound.
func (tf Timeframe) Current(now time.Time) Window {
	if tf == TimeframeAll {
		return Window{To: now}
	}
	from := tf.shift(now, 1)
	return Window{From: &from, To: now}
}

// Previous returns the window of equal length immediately preceding Current.
// It reports false for the all timeframe.
func (tf Timeframe) Previous(now time.Time) (Window, bool) {
	if tf == TimeframeAll {
		return Window{}, false
	}
	from := tf.shift(now, 2)
	return Window{From: &from, To: tf.shift(now, 1)}, true
}

// PctChange is the period-over-period percentage change. A zero previous
// value yields 100 when current is positive and 0 otherwise.
func PctChange(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// PerformanceScore clamps 90 - 5*active + 10*completedToday into [60, 100].
func PerformanceScore(activeCases, completedToday int) int {
	score := 90 - activeCases*5 + completedToday*10
	if score > 100 {
		return 100
	}
	if score < 60 {
		return 60
	}
	return score
}
