package store

import (
	"context"
	"fmt"

	"github.com/CosmoTheDev/repogate/models"
)

type reportRow struct {
	ID             int64   `db:"id"`
	RepoName       string  `db:"repo_name"`
	Status         string  `db:"status"`
	RepoJSON       string  `db:"repo_json"`
	AnalysisJSON   string  `db:"analysis_json"`
	CompatJSON     string  `db:"compat_json"`
	SecurityJSON   string  `db:"security_json"`
	CloneJSON      string  `db:"clone_json"`
	InstallJSON    string  `db:"install_json"`
	WrapperJSON    string  `db:"wrapper_json"`
	ProcessingMS   int64   `db:"processing_ms"`
	Recommendation string  `db:"recommendation"`
	Active         bool    `db:"active"`
	StartedAt      string  `db:"started_at"`
	CompletedAt    *string `db:"completed_at"`
}

const reportColumns = `id, repo_name, status, repo_json, analysis_json, compat_json, security_json, clone_json, install_json, wrapper_json, processing_ms, recommendation, active, started_at, completed_at`

func toReportRow(r *models.IntegrationReport) reportRow {
	row := reportRow{
		RepoName:       r.RepoName,
		Status:         string(r.Status),
		RepoJSON:       marshal(r.Repo),
		AnalysisJSON:   marshal(r.Analysis),
		CompatJSON:     marshal(r.Compatibility),
		SecurityJSON:   marshal(r.Security),
		CloneJSON:      marshal(r.Clone),
		InstallJSON:    marshal(r.Install),
		WrapperJSON:    marshal(r.Wrapper),
		ProcessingMS:   r.ProcessingMS,
		Recommendation: r.Recommendation,
		StartedAt:      r.StartedAt.UTC().Format(timeLayout),
	}
	if r.CompletedAt != nil {
		done := r.CompletedAt.UTC().Format(timeLayout)
		row.CompletedAt = &done
	}
	return row
}

func fromReportRow(row reportRow) *models.IntegrationReport {
	r := &models.IntegrationReport{
		RepoName:       row.RepoName,
		Status:         models.RepoStatus(row.Status),
		Repo:           unmarshal[models.Repository](row.RepoJSON),
		Analysis:       unmarshal[models.Analysis](row.AnalysisJSON),
		Compatibility:  unmarshal[models.CompatibilityResult](row.CompatJSON),
		Security:       unmarshal[models.SecurityReport](row.SecurityJSON),
		Clone:          unmarshal[models.CloneResult](row.CloneJSON),
		Install:        unmarshal[models.InstallResult](row.InstallJSON),
		Wrapper:        unmarshal[models.WrapperConfig](row.WrapperJSON),
		ProcessingMS:   row.ProcessingMS,
		Recommendation: row.Recommendation,
		StartedAt:      parseTime(row.StartedAt),
	}
	if row.CompletedAt != nil {
		done := parseTime(*row.CompletedAt)
		r.CompletedAt = &done
	}
	return r
}

// SaveReport records the outcome of an integration run. A registered report
// becomes the single active record for its repository; earlier active rows
// for the same name are retired first.
func (s *Store) SaveReport(ctx context.Context, r *models.IntegrationReport) (int64, error) {
	row := toReportRow(r)
	row.Active = r.Status == models.StatusRegistered
	if row.Active {
		if err := s.db.Exec(ctx, `UPDATE integrations SET active = 0 WHERE repo_name = ?`, r.RepoName); err != nil {
			return 0, fmt.Errorf("retire previous reports: %w", err)
		}
	}
	return s.db.Insert(ctx, "integrations", &row)
}

// GetReport returns the active report for name, falling back to the most
// recent attempt when the repository never registered.
func (s *Store) GetReport(ctx context.Context, name string) (*models.IntegrationReport, error) {
	var row reportRow
	err := s.db.Get(ctx, &row,
		`SELECT `+reportColumns+` FROM integrations WHERE repo_name = ? ORDER BY active DESC, id DESC LIMIT 1`, name)
	if err != nil {
		return nil, notFound(err)
	}
	return fromReportRow(row), nil
}

// ListReports returns reports newest first. With activeOnly set it returns
// only the currently registered integrations.
func (s *Store) ListReports(ctx context.Context, activeOnly bool) ([]*models.IntegrationReport, error) {
	query := `SELECT ` + reportColumns + ` FROM integrations ORDER BY id DESC`
	if activeOnly {
		query = `SELECT ` + reportColumns + ` FROM integrations WHERE active = 1 ORDER BY id DESC`
	}
	var rows []reportRow
	if err := s.db.Select(ctx, &rows, query); err != nil {
		return nil, err
	}
	out := make([]*models.IntegrationReport, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromReportRow(row))
	}
	return out, nil
}

// RetireReport clears the active flag after a rollback and marks the report
// failed so the repository no longer counts as integrated.
func (s *Store) RetireReport(ctx context.Context, name, reason string) error {
	return s.db.Exec(ctx,
		`UPDATE integrations SET active = 0, status = ?, recommendation = ? WHERE repo_name = ? AND active = 1`,
		string(models.StatusFailed), reason, name)
}

// Stats aggregates integration history together with clone disk usage.
func (s *Store) Stats(ctx context.Context) (*models.IntegrationStats, error) {
	var counts []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := s.db.Select(ctx, &counts, `SELECT status, COUNT(*) AS n FROM integrations GROUP BY status`); err != nil {
		return nil, err
	}
	stats := &models.IntegrationStats{}
	for _, c := range counts {
		stats.TotalIntegrations += c.N
		switch models.RepoStatus(c.Status) {
		case models.StatusRegistered:
			stats.Successful += c.N
		case models.StatusFailed:
			stats.Failed += c.N
		case models.StatusIncompatible:
			stats.Incompatible += c.N
		}
	}
	if stats.TotalIntegrations > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.TotalIntegrations) * 100
	}
	var active struct {
		N int `db:"n"`
	}
	if err := s.db.Get(ctx, &active, `SELECT COUNT(*) AS n FROM integrations WHERE active = 1`); err != nil {
		return nil, err
	}
	stats.ActiveIntegrations = active.N
	size, err := s.TotalCloneMB(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalClonesMB = size
	return stats, nil
}
