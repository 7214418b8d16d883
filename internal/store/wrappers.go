package store

import (
	"context"
	"errors"

	"github.com/CosmoTheDev/repogate/models"
)

type wrapperRow struct {
	ID            int64  `db:"id"`
	Name          string `db:"name"`
	RepoName      string `db:"repo_name"`
	Type          string `db:"type"`
	EntryPoint    string `db:"entry_point"`
	InputJSON     string `db:"input_json"`
	OutputJSON    string `db:"output_json"`
	ErrorHandling string `db:"error_handling"`
	Registered    bool   `db:"registered"`
	CreatedAt     string `db:"created_at"`
}

const wrapperColumns = `id, name, repo_name, type, entry_point, input_json, output_json, error_handling, registered, created_at`

func fromWrapperRow(row wrapperRow) *models.WrapperConfig {
	w := &models.WrapperConfig{
		Type:          models.WrapperType(row.Type),
		Name:          row.Name,
		RepoName:      row.RepoName,
		EntryPoint:    row.EntryPoint,
		ErrorHandling: row.ErrorHandling,
		Registered:    row.Registered,
		CreatedAt:     parseTime(row.CreatedAt),
	}
	if in := unmarshal[map[string]string](row.InputJSON); in != nil {
		w.InputMapping = *in
	}
	if out := unmarshal[map[string]string](row.OutputJSON); out != nil {
		w.OutputMapping = *out
	}
	return w
}

// PutWrapper stores a wrapper configuration keyed by wrapper name.
func (s *Store) PutWrapper(ctx context.Context, w *models.WrapperConfig) error {
	created := w.CreatedAt
	row := wrapperRow{
		Name:          w.Name,
		RepoName:      w.RepoName,
		Type:          string(w.Type),
		EntryPoint:    w.EntryPoint,
		InputJSON:     marshal(w.InputMapping),
		OutputJSON:    marshal(w.OutputMapping),
		ErrorHandling: w.ErrorHandling,
		Registered:    w.Registered,
		CreatedAt:     created.UTC().Format(timeLayout),
	}
	if created.IsZero() {
		row.CreatedAt = now()
	}
	return s.db.Upsert(ctx, "wrappers", &row, []string{"name"})
}

func (s *Store) GetWrapper(ctx context.Context, name string) (*models.WrapperConfig, error) {
	var row wrapperRow
	err := s.db.Get(ctx, &row, `SELECT `+wrapperColumns+` FROM wrappers WHERE name = ?`, name)
	if err != nil {
		return nil, notFound(err)
	}
	return fromWrapperRow(row), nil
}

// WrapperForRepo returns the wrapper generated for a repository, independent
// of the wrapper's own name.
func (s *Store) WrapperForRepo(ctx context.Context, repoName string) (*models.WrapperConfig, error) {
	var row wrapperRow
	err := s.db.Get(ctx, &row,
		`SELECT `+wrapperColumns+` FROM wrappers WHERE repo_name = ? ORDER BY id DESC LIMIT 1`, repoName)
	if err != nil {
		return nil, notFound(err)
	}
	return fromWrapperRow(row), nil
}

// SetWrapperRegistered flips the registration flag. It reports false when no
// wrapper with that name exists.
func (s *Store) SetWrapperRegistered(ctx context.Context, name string, registered bool) (bool, error) {
	if _, err := s.GetWrapper(ctx, name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	flag := 0
	if registered {
		flag = 1
	}
	if err := s.db.Exec(ctx, `UPDATE wrappers SET registered = ? WHERE name = ?`, flag, name); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteWrapper removes a wrapper and reports whether it existed.
func (s *Store) DeleteWrapper(ctx context.Context, name string) (bool, error) {
	if _, err := s.GetWrapper(ctx, name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.db.Exec(ctx, `DELETE FROM wrappers WHERE name = ?`, name); err != nil {
		return false, err
	}
	return true, nil
}

// ListWrappers returns wrappers ordered by name. With registeredOnly set it
// returns only wrappers currently registered with the platform.
func (s *Store) ListWrappers(ctx context.Context, registeredOnly bool) ([]*models.WrapperConfig, error) {
	query := `SELECT ` + wrapperColumns + ` FROM wrappers ORDER BY name`
	if registeredOnly {
		query = `SELECT ` + wrapperColumns + ` FROM wrappers WHERE registered = 1 ORDER BY name`
	}
	var rows []wrapperRow
	if err := s.db.Select(ctx, &rows, query); err != nil {
		return nil, err
	}
	out := make([]*models.WrapperConfig, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromWrapperRow(row))
	}
	return out, nil
}
