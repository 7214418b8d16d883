package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/robfig/cron/v3"
)

// Scheduler loads gateway_schedules from the store and registers them with
// robfig/cron. When a schedule fires it records last_run_at and hands the
// schedule to runFn, which dispatches on its kind.
type Scheduler struct {
	st        *store.Store
	cron      *cron.Cron
	runFn     func(store.Schedule)
	broadcast func(SSEEvent)

	mu      sync.Mutex
	entries map[int64]cron.EntryID // schedule row id to cron entry id
}

func newScheduler(st *store.Store, runFn func(store.Schedule), broadcast func(SSEEvent)) *Scheduler {
	return &Scheduler{
		st:        st,
		cron:      cron.New(),
		runFn:     runFn,
		broadcast: broadcast,
		entries:   make(map[int64]cron.EntryID),
	}
}

// Start loads all enabled schedules and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	schedules, err := s.st.ListSchedules(ctx, true)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}
	for _, sched := range schedules {
		if err := s.register(sched); err != nil {
			slog.Warn("scheduler: skipping invalid schedule",
				"id", sched.ID, "name", sched.Name, "expr", sched.Expr, "error", err)
		}
	}
	s.cron.Start()
	slog.Info("gateway scheduler started", "schedules_loaded", len(schedules))
	return nil
}

// Stop halts the cron runner.
func (s *Scheduler) Stop() { s.cron.Stop() }

func (s *Scheduler) register(sched store.Schedule) error {
	if err := validateKind(sched); err != nil {
		return err
	}
	entryID, err := s.cron.AddFunc(sched.Expr, func() {
		if err := s.runSchedule(context.Background(), sched, "schedule.fired"); err != nil {
			slog.Warn("scheduler: schedule run failed",
				"id", sched.ID, "name", sched.Name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", sched.Expr, err)
	}
	s.mu.Lock()
	s.entries[sched.ID] = entryID
	s.mu.Unlock()
	return nil
}

// validateExpr checks that expr parses as a cron expression without
// registering it with any running instance.
func validateExpr(expr string) error {
	tmp := cron.New()
	id, err := tmp.AddFunc(expr, func() {})
	if err != nil {
		return err
	}
	tmp.Remove(id)
	return nil
}

// validateKind checks the schedule kind and the fields that kind requires.
func validateKind(sched store.Schedule) error {
	switch sched.Kind {
	case store.ScheduleDiscover, store.ScheduleUpdates:
		return nil
	case store.ScheduleIntegrate:
		if sched.Query == "" {
			return fmt.Errorf("integrate schedule %q needs a search query", sched.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown schedule kind %q", sched.Kind)
	}
}

// Add validates, persists and registers a new schedule, returning its id.
func (s *Scheduler) Add(ctx context.Context, sched store.Schedule) (int64, error) {
	if err := validateExpr(sched.Expr); err != nil {
		return 0, fmt.Errorf("invalid schedule expression %q: %w", sched.Expr, err)
	}
	if err := validateKind(sched); err != nil {
		return 0, err
	}
	id, err := s.st.CreateSchedule(ctx, &sched)
	if err != nil {
		return 0, err
	}
	sched.ID = id
	if sched.Enabled {
		if err := s.register(sched); err != nil {
			slog.Warn("scheduler: persisted but could not register schedule",
				"id", id, "error", err)
		}
	}
	return id, nil
}

// Update validates, persists and re-registers an existing schedule.
func (s *Scheduler) Update(ctx context.Context, id int64, sched store.Schedule) error {
	if err := validateExpr(sched.Expr); err != nil {
		return fmt.Errorf("invalid schedule expression %q: %w", sched.Expr, err)
	}
	if err := validateKind(sched); err != nil {
		return err
	}
	existing, err := s.st.GetSchedule(ctx, id)
	if err != nil {
		return fmt.Errorf("loading schedule %d: %w", id, err)
	}

	sched.ID = id
	sched.CreatedAt = existing.CreatedAt
	sched.LastRunAt = existing.LastRunAt
	if err := s.st.UpdateSchedule(ctx, &sched); err != nil {
		return err
	}

	s.mu.Lock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if sched.Enabled {
		return s.register(sched)
	}
	return nil
}

// Delete removes a schedule from cron and the store, reporting whether it
// existed.
func (s *Scheduler) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.mu.Unlock()
	return s.st.DeleteSchedule(ctx, id)
}

// List returns all schedules ordered by id.
func (s *Scheduler) List(ctx context.Context) ([]store.Schedule, error) {
	return s.st.ListSchedules(ctx, false)
}

// TriggerNow runs a schedule immediately regardless of its cron expression.
func (s *Scheduler) TriggerNow(ctx context.Context, id int64) error {
	sched, err := s.st.GetSchedule(ctx, id)
	if err != nil {
		return fmt.Errorf("loading schedule %d: %w", id, err)
	}
	return s.runSchedule(ctx, *sched, "schedule.triggered")
}

func (s *Scheduler) runSchedule(ctx context.Context, sched store.Schedule, eventType string) error {
	if err := validateKind(sched); err != nil {
		return err
	}
	if err := s.st.TouchSchedule(ctx, sched.ID); err != nil {
		return err
	}
	s.runFn(sched)

	payload := map[string]any{"id": sched.ID, "name": sched.Name, "kind": sched.Kind}
	if eventType == "schedule.triggered" {
		payload["manual"] = true
	}
	s.broadcast(SSEEvent{Type: eventType, Payload: payload})
	return nil
}
