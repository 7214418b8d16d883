package store

import (
	"context"
	"errors"

	"github.com/CosmoTheDev/repogate/models"
)

type cloneRow struct {
	ID          int64   `db:"id"`
	RepoName    string  `db:"repo_name"`
	LocalPath   string  `db:"local_path"`
	Branch      string  `db:"branch"`
	CommitSHA   string  `db:"commit_sha"`
	Sparse      bool    `db:"sparse"`
	SparsePaths string  `db:"sparse_paths"`
	Submodules  bool    `db:"submodules"`
	SizeMB      float64 `db:"size_mb"`
	CreatedAt   string  `db:"created_at"`
}

const cloneColumns = `id, repo_name, local_path, branch, commit_sha, sparse, sparse_paths, submodules, size_mb, created_at`

func fromCloneRow(row cloneRow) *models.CloneResult {
	paths := unmarshal[[]string](row.SparsePaths)
	c := &models.CloneResult{
		RepoName:   row.RepoName,
		LocalPath:  row.LocalPath,
		Branch:     row.Branch,
		Commit:     row.CommitSHA,
		Sparse:     row.Sparse,
		Submodules: row.Submodules,
		SizeMB:     row.SizeMB,
		Success:    true,
		ClonedAt:   parseTime(row.CreatedAt),
	}
	if paths != nil {
		c.SparsePaths = *paths
	}
	return c
}

// PutClone records a successful clone, replacing any previous clone of the
// same repository.
func (s *Store) PutClone(ctx context.Context, c *models.CloneResult) error {
	row := cloneRow{
		RepoName:    c.RepoName,
		LocalPath:   c.LocalPath,
		Branch:      c.Branch,
		CommitSHA:   c.Commit,
		Sparse:      c.Sparse,
		SparsePaths: marshal(c.SparsePaths),
		Submodules:  c.Submodules,
		SizeMB:      c.SizeMB,
		CreatedAt:   c.ClonedAt.UTC().Format(timeLayout),
	}
	if row.CreatedAt == "" || c.ClonedAt.IsZero() {
		row.CreatedAt = now()
	}
	return s.db.Upsert(ctx, "clones", &row, []string{"repo_name"})
}

func (s *Store) GetClone(ctx context.Context, repoName string) (*models.CloneResult, error) {
	var row cloneRow
	err := s.db.Get(ctx, &row, `SELECT `+cloneColumns+` FROM clones WHERE repo_name = ?`, repoName)
	if err != nil {
		return nil, notFound(err)
	}
	return fromCloneRow(row), nil
}

// DeleteClone removes the clone record for repoName. It reports whether a
// record existed, so a second delete for the same name returns false.
func (s *Store) DeleteClone(ctx context.Context, repoName string) (bool, error) {
	if _, err := s.GetClone(ctx, repoName); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.db.Exec(ctx, `DELETE FROM clones WHERE repo_name = ?`, repoName); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListClones(ctx context.Context) ([]*models.CloneResult, error) {
	var rows []cloneRow
	if err := s.db.Select(ctx, &rows, `SELECT `+cloneColumns+` FROM clones ORDER BY repo_name`); err != nil {
		return nil, err
	}
	out := make([]*models.CloneResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromCloneRow(row))
	}
	return out, nil
}

// TotalCloneMB reports disk used by all tracked clones.
func (s *Store) TotalCloneMB(ctx context.Context) (float64, error) {
	var sum struct {
		MB float64 `db:"mb"`
	}
	if err := s.db.Get(ctx, &sum, `SELECT COALESCE(SUM(size_mb), 0) AS mb FROM clones`); err != nil {
		return 0, err
	}
	return sum.MB, nil
}
