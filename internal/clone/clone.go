// Package clone materialises admitted repositories into the local working
// store. Every working copy is tracked in the registry so a partially
// completed onboarding can always be rolled back.
package clone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// Options controls one clone operation. The zero value clones the default
// branch at the configured depth.
type Options struct {
	Branch      string
	SparsePaths []string
	Depth       int
	Submodules  bool
	// PinVersion pins the working copy to a tag or commit hash.
	PinVersion string
}

// Cloner owns the working-copy store.
type Cloner struct {
	vcs VCS
	st  *store.Store
	cfg *config.Config
}

func New(vcs VCS, st *store.Store, cfg *config.Config) *Cloner {
	return &Cloner{vcs: vcs, st: st, cfg: cfg}
}

// Clone materialises repo under the clone directory and registers the
// working copy. A repository that is already cloned is returned as-is
// rather than cloned twice.
func (c *Cloner) Clone(ctx context.Context, repo *models.Repository, opts Options) (*models.CloneResult, error) {
	if existing, err := c.st.GetClone(ctx, repo.Name); err == nil {
		if _, statErr := os.Stat(existing.LocalPath); statErr == nil {
			slog.Debug("clone: reusing working copy", "repo", repo.Name, "path", existing.LocalPath)
			return existing, nil
		}
		// Stale registry row: the directory is gone, so clone fresh.
		if _, err := c.st.DeleteClone(ctx, repo.Name); err != nil {
			return nil, fmt.Errorf("clone: dropping stale registry row for %s: %w", repo.Name, err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("clone: checking registry for %s: %w", repo.Name, err)
	}

	if opts.Branch == "" {
		opts.Branch = repo.DefaultBranch
	}
	if opts.Depth == 0 {
		opts.Depth = c.cfg.Clone.Depth
	}
	if c.cfg.Clone.Submodules {
		opts.Submodules = true
	}

	dest := filepath.Join(c.cfg.Clone.Dir, repo.Name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("clone: creating clone directory: %w", err)
	}

	token := repository.TokenForProvider(c.cfg, repo.Provider)

	slog.Debug("clone: starting",
		"repo", repo.FullName,
		"branch", opts.Branch,
		"depth", opts.Depth,
		"sparse", len(opts.SparsePaths) > 0,
		"dest", dest,
	)

	branch, commit, err := c.vcs.Clone(ctx, repo.CloneURL, dest, token, opts)
	if err != nil {
		os.RemoveAll(dest)
		return nil, err
	}

	result := &models.CloneResult{
		RepoName:    repo.Name,
		LocalPath:   dest,
		Branch:      branch,
		Commit:      commit,
		Sparse:      len(opts.SparsePaths) > 0,
		SparsePaths: opts.SparsePaths,
		Submodules:  opts.Submodules,
		SizeMB:      estimateSizeMB(repo.Stars, len(opts.SparsePaths)),
		Success:     true,
		ClonedAt:    time.Now().UTC(),
	}

	if err := c.st.PutClone(ctx, result); err != nil {
		os.RemoveAll(dest)
		return nil, fmt.Errorf("clone: registering working copy for %s: %w", repo.Name, err)
	}

	slog.Info("clone: materialised",
		"repo", repo.Name,
		"branch", result.Branch,
		"commit", short(result.Commit),
		"size_mb", result.SizeMB,
	)
	return result, nil
}

// RemoveClone deletes the working copy and its registry row. Idempotent:
// the first call returns true, later calls false.
func (c *Cloner) RemoveClone(ctx context.Context, repoName string) (bool, error) {
	existing, err := c.st.GetClone(ctx, repoName)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := os.RemoveAll(existing.LocalPath); err != nil {
		return false, fmt.Errorf("clone: removing %s: %w", existing.LocalPath, err)
	}

	removed, err := c.st.DeleteClone(ctx, repoName)
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("clone: removed working copy", "repo", repoName, "path", existing.LocalPath)
	}
	return removed, nil
}

// GetClone returns the registered working copy for repoName.
func (c *Cloner) GetClone(ctx context.Context, repoName string) (*models.CloneResult, error) {
	return c.st.GetClone(ctx, repoName)
}

// ListClones returns every registered working copy.
func (c *Cloner) ListClones(ctx context.Context) ([]*models.CloneResult, error) {
	return c.st.ListClones(ctx)
}

// TotalSizeMB sums the estimated size of all working copies.
func (c *Cloner) TotalSizeMB(ctx context.Context) (float64, error) {
	return c.st.TotalCloneMB(ctx)
}

// estimateSizeMB guesses a working-copy size from the star tier. Actual
// sizes vary wildly; the estimate only feeds capacity reporting. Sparse
// clones shrink proportionally to the number of requested paths.
func estimateSizeMB(stars, sparsePaths int) float64 {
	var size float64
	switch {
	case stars >= 10000:
		size = 250
	case stars >= 1000:
		size = 120
	case stars >= 100:
		size = 50
	case stars >= 10:
		size = 20
	default:
		size = 5
	}

	if sparsePaths > 0 {
		reduced := size * 0.15 * float64(sparsePaths)
		if reduced < size {
			size = reduced
		}
		if size < 1 {
			size = 1
		}
	}
	return size
}

func short(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
