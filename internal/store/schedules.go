package store

import (
	"context"
	"errors"
)

// Schedule is a recurring gateway job: a discovery sweep, an update check or
// a full integration run against a saved search query.
type Schedule struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Expr      string  `db:"expr" json:"expr"`
	Kind      string  `db:"kind" json:"kind"`
	Query     string  `db:"query" json:"query,omitempty"`
	Enabled   bool    `db:"enabled" json:"enabled"`
	LastRunAt *string `db:"last_run_at" json:"last_run_at,omitempty"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	UpdatedAt string  `db:"updated_at" json:"updated_at"`
}

const scheduleColumns = `id, name, expr, kind, query, enabled, last_run_at, created_at, updated_at`

// Schedule kinds understood by the gateway scheduler.
const (
	ScheduleDiscover  = "discover"
	ScheduleUpdates   = "updates"
	ScheduleIntegrate = "integrate"
)

func (s *Store) CreateSchedule(ctx context.Context, sc *Schedule) (int64, error) {
	sc.CreatedAt = now()
	sc.UpdatedAt = sc.CreatedAt
	return s.db.Insert(ctx, "gateway_schedules", sc)
}

func (s *Store) GetSchedule(ctx context.Context, id int64) (*Schedule, error) {
	var sc Schedule
	err := s.db.Get(ctx, &sc, `SELECT `+scheduleColumns+` FROM gateway_schedules WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &sc, nil
}

func (s *Store) ListSchedules(ctx context.Context, enabledOnly bool) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM gateway_schedules ORDER BY id`
	if enabledOnly {
		query = `SELECT ` + scheduleColumns + ` FROM gateway_schedules WHERE enabled = 1 ORDER BY id`
	}
	var out []Schedule
	if err := s.db.Select(ctx, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, sc *Schedule) error {
	sc.UpdatedAt = now()
	return s.db.Exec(ctx,
		`UPDATE gateway_schedules SET name = ?, expr = ?, kind = ?, query = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		sc.Name, sc.Expr, sc.Kind, sc.Query, boolInt(sc.Enabled), sc.UpdatedAt, sc.ID)
}

func (s *Store) TouchSchedule(ctx context.Context, id int64) error {
	ts := now()
	return s.db.Exec(ctx, `UPDATE gateway_schedules SET last_run_at = ? WHERE id = ?`, ts, id)
}

// DeleteSchedule removes a schedule and reports whether it existed.
func (s *Store) DeleteSchedule(ctx context.Context, id int64) (bool, error) {
	if _, err := s.GetSchedule(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.db.Exec(ctx, `DELETE FROM gateway_schedules WHERE id = ?`, id); err != nil {
		return false, err
	}
	return true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
