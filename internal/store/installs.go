package store

import (
	"context"

	"github.com/CosmoTheDev/repogate/models"
)

type installRow struct {
	ID              int64  `db:"id"`
	RepoName        string `db:"repo_name"`
	Method          string `db:"method"`
	StepsJSON       string `db:"steps_json"`
	PackagesJSON    string `db:"packages_json"`
	ConfigGenerated bool   `db:"config_generated"`
	Success         bool   `db:"success"`
	ErrorMsg        string `db:"error_msg"`
	CreatedAt       string `db:"created_at"`
}

const installColumns = `id, repo_name, method, steps_json, packages_json, config_generated, success, error_msg, created_at`

func fromInstallRow(row installRow) *models.InstallResult {
	r := &models.InstallResult{
		RepoName:        row.RepoName,
		Method:          models.InstallMethod(row.Method),
		ConfigGenerated: row.ConfigGenerated,
		Success:         row.Success,
		Error:           row.ErrorMsg,
		InstalledAt:     parseTime(row.CreatedAt),
	}
	if steps := unmarshal[[]models.InstallStep](row.StepsJSON); steps != nil {
		r.Steps = *steps
	}
	if pkgs := unmarshal[[]string](row.PackagesJSON); pkgs != nil {
		r.InstalledPackages = *pkgs
	}
	return r
}

// RecordInstall appends an install attempt to the history. Every attempt is
// kept, successful or not, so success rates can be computed later.
func (s *Store) RecordInstall(ctx context.Context, r *models.InstallResult) error {
	row := installRow{
		RepoName:        r.RepoName,
		Method:          string(r.Method),
		StepsJSON:       marshal(r.Steps),
		PackagesJSON:    marshal(r.InstalledPackages),
		ConfigGenerated: r.ConfigGenerated,
		Success:         r.Success,
		ErrorMsg:        r.Error,
		CreatedAt:       now(),
	}
	_, err := s.db.Insert(ctx, "installs", &row)
	return err
}

// LatestInstall returns the most recent install attempt for repoName.
func (s *Store) LatestInstall(ctx context.Context, repoName string) (*models.InstallResult, error) {
	var row installRow
	err := s.db.Get(ctx, &row,
		`SELECT `+installColumns+` FROM installs WHERE repo_name = ? ORDER BY id DESC LIMIT 1`, repoName)
	if err != nil {
		return nil, notFound(err)
	}
	return fromInstallRow(row), nil
}

// InstallSuccessRate reports the percentage of install attempts that
// succeeded, or zero when nothing was attempted yet.
func (s *Store) InstallSuccessRate(ctx context.Context) (float64, error) {
	var agg struct {
		Total int `db:"total"`
		OK    int `db:"ok"`
	}
	err := s.db.Get(ctx, &agg,
		`SELECT COUNT(*) AS total, COALESCE(SUM(success), 0) AS ok FROM installs`)
	if err != nil {
		return 0, err
	}
	if agg.Total == 0 {
		return 0, nil
	}
	return float64(agg.OK) / float64(agg.Total) * 100, nil
}
