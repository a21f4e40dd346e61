package domain

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		from, to TicketStatus
		ok       bool
	}{
		{StatusPending, StatusAssigned, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusInProgress, false},
		{StatusPending, StatusResolved, false},
		{StatusAssigned, StatusInProgress, true},
		{StatusAssigned, StatusResolved, false},
		{StatusInProgress, StatusResolved, true},
		{StatusInProgress, StatusRejected, true},
		{StatusResolved, StatusClosed, true},
		{StatusResolved, StatusInProgress, false},
		{StatusClosed, StatusPending, false},
		{StatusRejected, StatusPending, false},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestParseEnumsRejectUnknown(t *testing.T) {
	t.Parallel()
	d, err := ParseDepartment(" Road ")
	require.NoError(t, err)
	assert.Equal(t, DepartmentRoad, d)

	_, err = ParseDepartment("parks")
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := ParsePriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	_, err = ParseTicketStatus("done")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseWorkStatus("sleeping")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompletionHours(t *testing.T) {
	t.Parallel()
	created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	assigned := created.Add(time.Hour)

	assert.InDelta(t, 3.0, CompletionHours(&assigned, created, created.Add(4*time.Hour)), 1e-9)
	assert.InDelta(t, 4.0, CompletionHours(nil, created, created.Add(4*time.Hour)), 1e-9)
	assert.Equal(t, 1.0, CompletionHours(&assigned, created, created.Add(-time.Hour)))
	assert.Equal(t, 1.0, CompletionHours(nil, created, created.Add(9000*time.Hour)))
}

func TestRecordCompletionRunningAverage(t *testing.T) {
	t.Parallel()
	var m WorkerMetrics
	m = m.RecordCompletion(3)
	assert.Equal(t, 1, m.TotalCompleted)
	assert.Equal(t, 3.0, m.AverageCompletionHours)

	m = m.RecordCompletion(5)
	assert.Equal(t, 2, m.TotalCompleted)
	assert.Equal(t, 4.0, m.AverageCompletionHours)
	assert.Equal(t, 2, m.CurrentWindowCompleted)
	assert.False(t, math.IsNaN(m.AverageCompletionHours))
}

func TestWorkerEligibility(t *testing.T) {
	t.Parallel()
	w := Worker{Department: DepartmentRoad, WorkStatus: WorkStatusAvailable, IsActive: true}
	assert.True(t, w.Eligible(DepartmentRoad))
	assert.False(t, w.Eligible(DepartmentWater))

	for i := 0; i < MaxActiveTickets; i++ {
		require.True(t, w.AddActiveTicket(strings.Repeat("x", i+1)))
	}
	assert.False(t, w.Eligible(DepartmentRoad))
	assert.False(t, w.AddActiveTicket("x"))

	assert.True(t, w.RemoveActiveTicket("x"))
	assert.False(t, w.RemoveActiveTicket("x"))
	assert.True(t, w.Eligible(DepartmentRoad))
}

func TestWorkerRecentlyActive(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -8)
	recent := now.AddDate(0, 0, -2)

	assert.True(t, Worker{IsActive: true, WorkStatus: WorkStatusBusy}.RecentlyActive(now))
	assert.True(t, Worker{IsActive: true, WorkStatus: WorkStatusAvailable, LastActiveAt: &recent}.RecentlyActive(now))
	assert.False(t, Worker{IsActive: true, WorkStatus: WorkStatusAvailable, LastActiveAt: &old}.RecentlyActive(now))
	assert.False(t, Worker{IsActive: true, WorkStatus: WorkStatusOffline}.RecentlyActive(now))
	assert.False(t, Worker{IsActive: false, WorkStatus: WorkStatusAvailable}.RecentlyActive(now))
}

func TestNewTicketIDFormat(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := NewTicketID("cmp", now)
	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "CMP", parts[0])
	assert.Equal(t, strings.ToUpper(id), id)
	assert.Len(t, parts[2], 4)
}

func TestCalendarEventOccursOn(t *testing.T) {
	t.Parallel()
	ev := CalendarEvent{Date: "2026-10-20", Name: "Diwali", Priority: PriorityHigh, Locations: []string{"Main Square"}}
	require.NoError(t, ev.Validate())
	assert.True(t, ev.OccursOn(time.Date(2026, 10, 20, 2, 0, 0, 0, time.UTC)))
	assert.False(t, ev.OccursOn(time.Date(2026, 10, 21, 2, 0, 0, 0, time.UTC)))

	bad := CalendarEvent{Date: "20-10-2026", Priority: PriorityHigh}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
}
