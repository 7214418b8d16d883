package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/CosmoTheDev/repogate/models"
)

// StaticProvider serves repository contents from an in-memory path → content
// map. It backs one-off evaluations where the caller already holds the files,
// so no hosting platform is contacted.
type StaticProvider struct {
	files map[string]string
}

// NewStatic creates a StaticProvider over the given file map. Keys are
// slash-separated paths relative to the repository root.
func NewStatic(files map[string]string) *StaticProvider {
	return &StaticProvider{files: files}
}

func (s *StaticProvider) Name() string      { return "static" }
func (s *StaticProvider) AuthToken() string { return "" }

func (s *StaticProvider) SearchRepos(ctx context.Context, query string, limit int) ([]models.Repository, error) {
	return nil, nil
}

func (s *StaticProvider) GetRepo(ctx context.Context, owner, name string) (*models.Repository, error) {
	return nil, fmt.Errorf("repository: static provider holds no metadata for %s/%s", owner, name)
}

func (s *StaticProvider) FileContents(_ context.Context, _, path, _ string) (string, error) {
	content, ok := s.files[path]
	if !ok {
		return "", ErrFileNotFound
	}
	return content, nil
}

// ListDir returns the entry names directly under dir, with nested paths
// collapsed to their first segment so directories appear as single entries.
func (s *StaticProvider) ListDir(_ context.Context, _, dir, _ string) ([]string, error) {
	prefix := ""
	if dir != "" {
		prefix = strings.TrimSuffix(dir, "/") + "/"
	}
	seen := make(map[string]bool)
	var names []string
	for path := range s.files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(path, prefix), "/")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if len(names) == 0 && dir != "" {
		return nil, ErrFileNotFound
	}
	sort.Strings(names)
	return names, nil
}

func (s *StaticProvider) LatestCommit(_ context.Context, fullName, _ string) (string, error) {
	return "", fmt.Errorf("repository: static provider holds no commits for %s", fullName)
}
