package application

import (
	"context"
	"testing"

	"github.com/bhavishyjain/SevaAI/internal/adapters/calendar"
	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tickets at a listed location are raised, others keep their priority.
func TestSweepEscalationsRaisesMatchingLocations(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.CalendarEvent{
		Date:      baseTime.Format(domain.CalendarDateLayout),
		Name:      "Dussehra fair",
		Priority:  domain.PriorityHigh,
		Locations: []string{"Main Square"},
	})
	a := f.ticket(t, domain.DepartmentRoad, "Main Square")
	b := f.ticket(t, domain.DepartmentWaste, "Main Square")
	c := f.ticket(t, domain.DepartmentRoad, "Station Road")

	res, err := f.svc.SweepEscalations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.EventsMatched)
	assert.ElementsMatch(t, []string{a.TicketID, b.TicketID}, res.TicketsUpdated)

	assert.Equal(t, domain.PriorityHigh, f.getTicket(t, a.TicketID).Priority)
	assert.Equal(t, domain.PriorityHigh, f.getTicket(t, b.TicketID).Priority)
	assert.Equal(t, domain.PriorityMedium, f.getTicket(t, c.TicketID).Priority)
	assert.Equal(t, domain.StatusPending, f.getTicket(t, a.TicketID).Status)

	again, err := f.svc.SweepEscalations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, again.EventsSkipped)
	assert.Empty(t, again.TicketsUpdated)
}

func TestSweepEscalationsRerunWithoutLeaseIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.CalendarEvent{
		Date:      baseTime.Format(domain.CalendarDateLayout),
		Name:      "Fair",
		Priority:  domain.PriorityHigh,
		Locations: []string{"Main Square"},
	})
	f.ticket(t, domain.DepartmentRoad, "Main Square")

	_, err := f.svc.SweepEscalations(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.cache.Delete(context.Background(), "escalation:lease:"+baseTime.Format(domain.CalendarDateLayout)+":Fair"))

	res, err := f.svc.SweepEscalations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.EventsSkipped)
	assert.Empty(t, res.TicketsUpdated)
}

func TestSweepEscalationsIsolatesBadEvent(t *testing.T) {
	t.Parallel()
	today := baseTime.Format(domain.CalendarDateLayout)
	f := newFixture(t,
		domain.CalendarEvent{Date: today, Name: "broken", Priority: "Urgent", Locations: []string{"Main Square"}},
		domain.CalendarEvent{Date: today, Name: "market day", Priority: domain.PriorityHigh, Locations: []string{"Old Market"}},
		domain.CalendarEvent{Date: "2026-12-25", Name: "later", Priority: domain.PriorityHigh, Locations: []string{"Station Road"}},
	)
	square := f.ticket(t, domain.DepartmentRoad, "Main Square")
	market := f.ticket(t, domain.DepartmentRoad, "Old Market")
	station := f.ticket(t, domain.DepartmentRoad, "Station Road")

	res, err := f.svc.SweepEscalations(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 2, res.EventsMatched)
	assert.Equal(t, []string{market.TicketID}, res.TicketsUpdated)

	assert.Equal(t, domain.PriorityMedium, f.getTicket(t, square.TicketID).Priority)
	assert.Equal(t, domain.PriorityHigh, f.getTicket(t, market.TicketID).Priority)
	assert.Equal(t, domain.PriorityMedium, f.getTicket(t, station.TicketID).Priority)

	retry, err := f.svc.SweepEscalations(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, retry.EventsSkipped)
	assert.Empty(t, retry.TicketsUpdated)
}

func TestSweepEscalationsPicksUpEventAddedLater(t *testing.T) {
	t.Parallel()
	today := baseTime.Format(domain.CalendarDateLayout)
	fair := domain.CalendarEvent{Date: today, Name: "fair", Priority: domain.PriorityHigh, Locations: []string{"Main Square"}}
	f := newFixture(t, fair)
	square := f.ticket(t, domain.DepartmentRoad, "Main Square")
	market := f.ticket(t, domain.DepartmentRoad, "Old Market")

	first, err := f.svc.SweepEscalations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{square.TicketID}, first.TicketsUpdated)

	f.svc.calendar = calendar.NewStaticSource(fair,
		domain.CalendarEvent{Date: today, Name: "procession", Priority: domain.PriorityHigh, Locations: []string{"Old Market"}},
	)
	second, err := f.svc.SweepEscalations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.EventsMatched)
	assert.Equal(t, 1, second.EventsSkipped)
	assert.Equal(t, []string{market.TicketID}, second.TicketsUpdated)
	assert.Equal(t, domain.PriorityHigh, f.getTicket(t, market.TicketID).Priority)
}

func TestSweepEscalationsMatchesLocationExactly(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.CalendarEvent{
		Date:      baseTime.Format(domain.CalendarDateLayout),
		Name:      "fair",
		Priority:  domain.PriorityHigh,
		Locations: []string{" Main Square"},
	})
	padded := f.ticket(t, domain.DepartmentRoad, "Main Square")

	res, err := f.svc.SweepEscalations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.TicketsUpdated)
	assert.Equal(t, domain.PriorityMedium, f.getTicket(t, padded.TicketID).Priority)
}
