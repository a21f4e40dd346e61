package application

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/bhavishyjain/SevaAI/internal/ports"
	"golang.org/x/sync/errgroup"
)

type windowCounts struct {
	total      int
	pending    int
	inProgress int
	resolved   int
	byStatus   map[string]int
	byDept     map[string]int
	byPriority map[string]int
	avgHours   float64
}

// Stats aggregates the ticket set over a timeframe and compares it with the
// preceding window. Concurrent identical requests share one computation and
// results may be served from cache for AnalyticsCacheTTL.
func (s *Service) Stats(ctx context.Context, actor Actor, input StatsInput) (Stats, error) {
	if err := requireOperator(actor); err != nil {
		return Stats{}, err
	}
	tf, err := domain.ParseTimeframe(input.Timeframe)
	if err != nil {
		return Stats{}, err
	}
	var dept domain.Department
	if raw := strings.TrimSpace(input.Department); raw != "" && !strings.EqualFold(raw, "all") {
		if dept, err = domain.ParseDepartment(raw); err != nil {
			return Stats{}, err
		}
	}

	key := "stats:" + string(tf) + ":" + deptKey(dept)
	if cached, ok := s.cachedStats(ctx, key); ok {
		return cached, nil
	}
	v, err, _ := s.statsGroup.Do(key, func() (any, error) {
		stats, err := s.computeStats(ctx, tf, dept)
		if err != nil {
			return Stats{}, err
		}
		s.storeStats(ctx, key, stats)
		return stats, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

func (s *Service) computeStats(ctx context.Context, tf domain.Timeframe, dept domain.Department) (Stats, error) {
	now := s.now()
	current := tf.Current(now)
	previous, hasPrevious := tf.Previous(now)

	var curTickets, prevTickets []domain.Ticket
	var workers []domain.Worker
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		curTickets, err = s.tickets.List(gctx, domain.TicketFilter{Department: dept, CreatedFrom: current.From})
		return err
	})
	if hasPrevious {
		g.Go(func() error {
			to := previous.To
			var err error
			prevTickets, err = s.tickets.List(gctx, domain.TicketFilter{Department: dept, CreatedFrom: previous.From, CreatedTo: &to})
			return err
		})
	}
	g.Go(func() error {
		var err error
		workers, err = s.workers.List(gctx, domain.WorkerFilter{Department: dept})
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	cur := summarize(curTickets)
	activeNow := 0
	for _, w := range workers {
		if w.RecentlyActive(now) {
			activeNow++
		}
	}

	stats := Stats{
		Timeframe:            tf,
		Department:           deptKey(dept),
		TotalComplaints:      cur.total,
		PendingComplaints:    cur.pending,
		InProgressComplaints: cur.inProgress,
		ResolvedComplaints:   cur.resolved,
		TotalWorkers:         len(workers),
		ActiveWorkers:        activeNow,
		AvgResolutionHours:   cur.avgHours,
		ByStatus:             cur.byStatus,
		ByDepartment:         cur.byDept,
		ByPriority:           cur.byPriority,
		GeneratedAt:          now,
	}
	if hasPrevious {
		prev := summarize(prevTickets)
		activePrev := 0
		for _, w := range workers {
			if activeInWindow(w, previous) {
				activePrev++
			}
		}
		stats.PctChange = PctChanges{
			TotalComplaints:    domain.PctChange(cur.total, prev.total),
			ResolvedComplaints: domain.PctChange(cur.resolved, prev.resolved),
			PendingComplaints:  domain.PctChange(cur.pending, prev.pending),
			ActiveWorkers:      domain.PctChange(activeNow, activePrev),
		}
	}
	return stats, nil
}

// summarize counts pending together with assigned, as both are still
// waiting on field work to start.
func summarize(tickets []domain.Ticket) windowCounts {
	out := windowCounts{
		byStatus:   map[string]int{},
		byDept:     map[string]int{},
		byPriority: map[string]int{},
	}
	var resolvedHours float64
	resolvedN := 0
	for _, t := range tickets {
		out.total++
		out.byStatus[string(t.Status)]++
		out.byDept[string(t.Department)]++
		out.byPriority[string(t.Priority)]++
		switch t.Status {
		case domain.StatusPending, domain.StatusAssigned:
			out.pending++
		case domain.StatusInProgress:
			out.inProgress++
		case domain.StatusResolved:
			out.resolved++
			end := t.UpdatedAt
			if t.ResolvedAt != nil {
				end = *t.ResolvedAt
			}
			if d := end.Sub(t.CreatedAt); d >= 0 {
				resolvedHours += d.Hours()
				resolvedN++
			}
		}
	}
	if resolvedN > 0 {
		out.avgHours = resolvedHours / float64(resolvedN)
	}
	return out
}

// activeInWindow counts a worker as active in a past window when it was
// seen or created inside it.
func activeInWindow(w domain.Worker, win domain.Window) bool {
	if w.WorkStatus == domain.WorkStatusOffline || !w.IsActive {
		return false
	}
	if w.LastActiveAt != nil && win.Contains(*w.LastActiveAt) {
		return true
	}
	return win.Contains(w.CreatedAt)
}

func deptKey(d domain.Department) string {
	if d == "" {
		return "all"
	}
	return string(d)
}

func (s *Service) cachedStats(ctx context.Context, key string) (Stats, bool) {
	if s.cache == nil || s.cfg.AnalyticsCacheTTL <= 0 {
		return Stats{}, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "analytics cache read failed",
				"module", "application",
				"layer", "service",
				"operation", "stats",
				"outcome", "degraded",
				"error", err,
			)
		}
		return Stats{}, false
	}
	var stats Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return Stats{}, false
	}
	return stats, true
}

func (s *Service) storeStats(ctx context.Context, key string, stats Stats) {
	if s.cache == nil || s.cfg.AnalyticsCacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, key, string(raw), s.cfg.AnalyticsCacheTTL)
}

// RecentTickets returns the newest tickets, optionally for one department.
func (s *Service) RecentTickets(ctx context.Context, actor Actor, department string, limit int) ([]domain.Ticket, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}
	filter := domain.TicketFilter{NewestFirst: true, Limit: limit}
	if raw := strings.TrimSpace(department); raw != "" && !strings.EqualFold(raw, "all") {
		dept, err := domain.ParseDepartment(raw)
		if err != nil {
			return nil, err
		}
		filter.Department = dept
	}
	return s.tickets.List(ctx, filter)
}

// WorkerStats reports per worker load and today's completions.
func (s *Service) WorkerStats(ctx context.Context, actor Actor, department string, availableOnly bool) ([]WorkerStat, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	var dept domain.Department
	if raw := strings.TrimSpace(department); raw != "" && !strings.EqualFold(raw, "all") {
		var err error
		if dept, err = domain.ParseDepartment(raw); err != nil {
			return nil, err
		}
	}
	now := s.now()
	today := s.dayStart(now)

	var workers []domain.Worker
	var resolvedToday []domain.Ticket
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		workers, err = s.workers.List(gctx, domain.WorkerFilter{Department: dept})
		return err
	})
	g.Go(func() error {
		var err error
		resolvedToday, err = s.tickets.List(gctx, domain.TicketFilter{
			Department:  dept,
			Statuses:    []domain.TicketStatus{domain.StatusResolved},
			UpdatedFrom: &today,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doneToday := map[string]int{}
	for _, t := range resolvedToday {
		if t.ResolvedAt != nil && !t.ResolvedAt.Before(today) {
			doneToday[t.AssignedWorkerID]++
		}
	}

	out := make([]WorkerStat, 0, len(workers))
	for _, w := range workers {
		available := w.IsActive && w.WorkStatus == domain.WorkStatusAvailable && w.ActiveCount() < s.cfg.MaxActiveTickets
		if availableOnly && !available {
			continue
		}
		name := w.FullName
		if name == "" {
			name = w.Username
		}
		out = append(out, WorkerStat{
			WorkerID:         w.WorkerID,
			Name:             name,
			Username:         w.Username,
			Department:       w.Department,
			WorkStatus:       w.WorkStatus,
			ActiveCases:      w.ActiveCount(),
			CompletedCases:   w.Metrics.TotalCompleted,
			CompletedToday:   doneToday[w.WorkerID],
			Rating:           w.Rating,
			PerformanceScore: domain.PerformanceScore(w.ActiveCount(), doneToday[w.WorkerID]),
			IsAvailable:      available,
			LastActiveAt:     w.LastActiveAt,
		})
	}
	return out, nil
}

// WorkerDashboard is the worker's own view. Operators may open any worker's.
func (s *Service) WorkerDashboard(ctx context.Context, actor Actor, workerID string) (WorkerDashboard, error) {
	if err := requireActor(actor); err != nil {
		return WorkerDashboard{}, err
	}
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		workerID = actor.SubjectID
	}
	if actor.Role == RoleWorker && workerID != actor.SubjectID {
		return WorkerDashboard{}, domain.ErrForbidden
	}
	if actor.Role != RoleWorker {
		if err := requireOperator(actor); err != nil {
			return WorkerDashboard{}, err
		}
	}

	worker, err := s.workers.Get(ctx, workerID)
	if err != nil {
		return WorkerDashboard{}, err
	}
	tickets, err := s.tickets.List(ctx, domain.TicketFilter{WorkerID: workerID, NewestFirst: true})
	if err != nil {
		return WorkerDashboard{}, err
	}

	now := s.now()
	today := s.dayStart(now)
	week := s.weekStart(now)
	dash := WorkerDashboard{
		Worker:         worker,
		ActiveTickets:  []domain.Ticket{},
		CompletedToday: []domain.Ticket{},
		TotalAssigned:  len(tickets),
	}
	for _, t := range tickets {
		switch {
		case t.Status.IsActive():
			dash.ActiveTickets = append(dash.ActiveTickets, t)
		case t.Status == domain.StatusResolved:
			dash.TotalCompleted++
			if t.ResolvedAt == nil {
				continue
			}
			if !t.ResolvedAt.Before(today) {
				dash.CompletedToday = append(dash.CompletedToday, t)
			}
			if !t.ResolvedAt.Before(week) {
				dash.WeekCompleted++
			}
		}
	}
	sort.SliceStable(dash.ActiveTickets, func(i, j int) bool {
		return priorityRank(dash.ActiveTickets[i].Priority) > priorityRank(dash.ActiveTickets[j].Priority)
	})
	dash.ActiveCount = len(dash.ActiveTickets)
	dash.CompletedCount = len(dash.CompletedToday)
	return dash, nil
}

func priorityRank(p domain.Priority) int {
	switch p {
	case domain.PriorityHigh:
		return 3
	case domain.PriorityMedium:
		return 2
	default:
		return 1
	}
}
