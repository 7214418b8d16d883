package store

import (
	"context"
	"errors"
	"time"

	"github.com/CosmoTheDev/repogate/models"
)

type approvalRow struct {
	ID         int64  `db:"id"`
	RepoName   string `db:"repo_name"`
	ApprovedBy string `db:"approved_by"`
	CreatedAt  string `db:"created_at"`
}

// Approve records that a human cleared repoName for installation despite an
// elevated risk level. Approving twice keeps the latest approver.
func (s *Store) Approve(ctx context.Context, repoName, approvedBy string) error {
	row := approvalRow{RepoName: repoName, ApprovedBy: approvedBy, CreatedAt: now()}
	return s.db.Upsert(ctx, "approvals", &row, []string{"repo_name"})
}

func (s *Store) IsApproved(ctx context.Context, repoName string) (bool, error) {
	var count struct {
		N int `db:"n"`
	}
	err := s.db.Get(ctx, &count, `SELECT COUNT(*) AS n FROM approvals WHERE repo_name = ?`, repoName)
	if err != nil {
		return false, err
	}
	return count.N > 0, nil
}

// RevokeApproval removes a standing approval and reports whether one existed.
func (s *Store) RevokeApproval(ctx context.Context, repoName string) (bool, error) {
	approved, err := s.IsApproved(ctx, repoName)
	if err != nil || !approved {
		return false, err
	}
	if err := s.db.Exec(ctx, `DELETE FROM approvals WHERE repo_name = ?`, repoName); err != nil {
		return false, err
	}
	return true, nil
}

type scanRow struct {
	ID        int64  `db:"id"`
	RepoName  string `db:"repo_name"`
	RiskLevel string `db:"risk_level"`
	Malware   bool   `db:"malware"`
	Findings  int    `db:"findings"`
	Safe      bool   `db:"safe"`
	CreatedAt string `db:"created_at"`
}

// RecordScan appends a security scan outcome to the history.
func (s *Store) RecordScan(ctx context.Context, r *models.SecurityReport) error {
	row := scanRow{
		RepoName:  r.RepoName,
		RiskLevel: string(r.RiskLevel),
		Malware:   r.MalwareDetected,
		Findings:  len(r.Findings),
		Safe:      r.SafeToInstall,
		CreatedAt: now(),
	}
	_, err := s.db.Insert(ctx, "security_scans", &row)
	return err
}

// RiskSummary aggregates scan history into safe and risky counts.
func (s *Store) RiskSummary(ctx context.Context) (*models.RiskSummary, error) {
	var agg struct {
		Total int `db:"total"`
		Safe  int `db:"safe"`
	}
	err := s.db.Get(ctx, &agg,
		`SELECT COUNT(*) AS total, COALESCE(SUM(safe), 0) AS safe FROM security_scans`)
	if err != nil {
		return nil, err
	}
	return &models.RiskSummary{
		TotalScans: agg.Total,
		SafeCount:  agg.Safe,
		RiskyCount: agg.Total - agg.Safe,
	}, nil
}

type eventRow struct {
	ID        int64  `db:"id"`
	RepoName  string `db:"repo_name"`
	Status    string `db:"status"`
	Detail    string `db:"detail"`
	CreatedAt string `db:"created_at"`
}

// Event is one entry in the pipeline audit trail.
type Event struct {
	RepoName  string    `json:"repo_name"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendEvent writes a pipeline transition to the audit trail.
func (s *Store) AppendEvent(ctx context.Context, repoName, status, detail string) error {
	row := eventRow{RepoName: repoName, Status: status, Detail: detail, CreatedAt: now()}
	_, err := s.db.Insert(ctx, "integration_events", &row)
	return err
}

// Events returns the audit trail for one repository, oldest first. A limit
// of zero returns everything.
func (s *Store) Events(ctx context.Context, repoName string, limit int) ([]Event, error) {
	query := `SELECT id, repo_name, status, detail, created_at FROM integration_events WHERE repo_name = ? ORDER BY id`
	var rows []eventRow
	if err := s.db.Select(ctx, &rows, query, repoName); err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return eventsFromRows(rows), nil
}

// RecentEvents returns the newest events across all repositories.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []eventRow
	err := s.db.Select(ctx, &rows,
		`SELECT id, repo_name, status, detail, created_at FROM integration_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return eventsFromRows(rows), nil
}

func eventsFromRows(rows []eventRow) []Event {
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, Event{
			RepoName:  row.RepoName,
			Status:    row.Status,
			Detail:    row.Detail,
			CreatedAt: parseTime(row.CreatedAt),
		})
	}
	return out
}

type adapterRow struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	Type       string `db:"type"`
	ConfigJSON string `db:"config_json"`
	CreatedAt  string `db:"created_at"`
}

func fromAdapterRow(row adapterRow) *models.AdapterConfig {
	a := &models.AdapterConfig{
		Name:      row.Name,
		Type:      models.WrapperType(row.Type),
		CreatedAt: parseTime(row.CreatedAt),
	}
	if settings := unmarshal[map[string]string](row.ConfigJSON); settings != nil {
		a.Settings = *settings
	}
	return a
}

// PutAdapter stores an adapter configuration keyed by adapter name.
func (s *Store) PutAdapter(ctx context.Context, a *models.AdapterConfig) error {
	row := adapterRow{
		Name:       a.Name,
		Type:       string(a.Type),
		ConfigJSON: marshal(a.Settings),
		CreatedAt:  a.CreatedAt.UTC().Format(timeLayout),
	}
	if a.CreatedAt.IsZero() {
		row.CreatedAt = now()
	}
	return s.db.Upsert(ctx, "adapters", &row, []string{"name"})
}

func (s *Store) GetAdapter(ctx context.Context, name string) (*models.AdapterConfig, error) {
	var row adapterRow
	err := s.db.Get(ctx, &row, `SELECT id, name, type, config_json, created_at FROM adapters WHERE name = ?`, name)
	if err != nil {
		return nil, notFound(err)
	}
	return fromAdapterRow(row), nil
}

// DeleteAdapter removes an adapter and reports whether it existed.
func (s *Store) DeleteAdapter(ctx context.Context, name string) (bool, error) {
	if _, err := s.GetAdapter(ctx, name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.db.Exec(ctx, `DELETE FROM adapters WHERE name = ?`, name); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListAdapters(ctx context.Context) ([]*models.AdapterConfig, error) {
	var rows []adapterRow
	if err := s.db.Select(ctx, &rows, `SELECT id, name, type, config_json, created_at FROM adapters ORDER BY name`); err != nil {
		return nil, err
	}
	out := make([]*models.AdapterConfig, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromAdapterRow(row))
	}
	return out, nil
}
