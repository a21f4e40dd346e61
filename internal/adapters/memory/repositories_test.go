package memory

import (
	"context"
	"testing"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRepository_UpdateRejectsStaleVersion(t *testing.T) {
	t.Parallel()
	repos := NewRepositories()
	ctx := context.Background()

	require.NoError(t, repos.Tickets.Create(ctx, domain.Ticket{TicketID: "CMP-1", Status: domain.StatusPending}))
	got, err := repos.Tickets.Get(ctx, "CMP-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Version)

	got.Priority = domain.PriorityHigh
	updated, err := repos.Tickets.Update(ctx, got, got.Version)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)

	_, err = repos.Tickets.Update(ctx, got, got.Version)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestTicketRepository_CreateDuplicate(t *testing.T) {
	t.Parallel()
	repos := NewRepositories()
	ctx := context.Background()

	require.NoError(t, repos.Tickets.Create(ctx, domain.Ticket{TicketID: "CMP-1"}))
	assert.ErrorIs(t, repos.Tickets.Create(ctx, domain.Ticket{TicketID: "CMP-1"}), domain.ErrConflict)
}

func TestTicketRepository_GetReturnsCopy(t *testing.T) {
	t.Parallel()
	repos := NewRepositories()
	ctx := context.Background()

	require.NoError(t, repos.Tickets.Create(ctx, domain.Ticket{
		TicketID: "CMP-1",
		History:  []domain.HistoryEntry{{Status: domain.StatusPending}},
	}))
	got, err := repos.Tickets.Get(ctx, "CMP-1")
	require.NoError(t, err)
	got.History[0].Status = domain.StatusClosed

	again, err := repos.Tickets.Get(ctx, "CMP-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, again.History[0].Status)
}

func TestTicketRepository_ListFilters(t *testing.T) {
	t.Parallel()
	repos := NewRepositories()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, tk := range []domain.Ticket{
		{TicketID: "A", Department: domain.DepartmentRoad, Status: domain.StatusPending},
		{TicketID: "B", Department: domain.DepartmentRoad, Status: domain.StatusResolved},
		{TicketID: "C", Department: domain.DepartmentWater, Status: domain.StatusPending},
	} {
		tk.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repos.Tickets.Create(ctx, tk))
	}

	items, err := repos.Tickets.List(ctx, domain.TicketFilter{Department: domain.DepartmentRoad, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].TicketID)

	items, err = repos.Tickets.List(ctx, domain.TicketFilter{Statuses: []domain.TicketStatus{domain.StatusPending}})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].TicketID)

	to := base.Add(time.Hour)
	items, err = repos.Tickets.List(ctx, domain.TicketFilter{CreatedTo: &to})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].TicketID)
}

func TestTicketRepository_UpdatePriorityByLocationIsIdempotent(t *testing.T) {
	t.Parallel()
	repos := NewRepositories()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Tickets.Create(ctx, domain.Ticket{TicketID: "A", Location: "Main Square", Priority: domain.PriorityLow}))
	require.NoError(t, repos.Tickets.Create(ctx, domain.Ticket{TicketID: "B", Location: "main square", Priority: domain.PriorityLow}))

	ids, err := repos.Tickets.UpdatePriorityByLocation(ctx, "Main Square", domain.PriorityHigh, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids)

	ids, err = repos.Tickets.UpdatePriorityByLocation(ctx, "Main Square", domain.PriorityHigh, now)
	require.NoError(t, err)
	assert.Empty(t, ids)

	b, err := repos.Tickets.Get(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityLow, b.Priority)
}

func TestWorkerRepository_UsernameUnique(t *testing.T) {
	t.Parallel()
	repos := NewRepositories()
	ctx := context.Background()

	require.NoError(t, repos.Workers.Create(ctx, domain.Worker{WorkerID: "w1", Username: "ravi"}))
	assert.ErrorIs(t, repos.Workers.Create(ctx, domain.Worker{WorkerID: "w2", Username: "RAVI"}), domain.ErrConflict)

	got, err := repos.Workers.GetByUsername(ctx, "Ravi")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.WorkerID)
}
