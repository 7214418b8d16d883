package clone

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// VCS performs the actual network clone. GitVCS is the production
// implementation; tests substitute a fake that touches no network.
type VCS interface {
	// Clone materialises url into dest and returns the resolved branch and
	// commit. token may be empty for public repositories.
	Clone(ctx context.Context, url, dest, token string, opts Options) (branch, commit string, err error)
}

// GitVCS clones over HTTPS using go-git.
type GitVCS struct{}

func NewGitVCS() *GitVCS {
	return &GitVCS{}
}

func (g *GitVCS) Clone(ctx context.Context, url, dest, token string, opts Options) (string, string, error) {
	cloneOpts := &gogit.CloneOptions{
		URL:   url,
		Depth: opts.Depth,
	}

	if token != "" {
		cloneOpts.Auth = &githttp.BasicAuth{
			Username: "repogate",
			Password: token,
		}
	}

	switch {
	case isCommitHash(opts.PinVersion):
		// Pinning to a commit needs the full history to resolve the hash.
		cloneOpts.Depth = 0
	case opts.PinVersion != "":
		cloneOpts.ReferenceName = plumbing.NewTagReferenceName(opts.PinVersion)
		cloneOpts.SingleBranch = true
	case opts.Branch != "":
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		cloneOpts.SingleBranch = true
	}

	if opts.Submodules {
		cloneOpts.RecurseSubmodules = gogit.DefaultSubmoduleRecursionDepth
	}
	if len(opts.SparsePaths) > 0 {
		cloneOpts.NoCheckout = true
	}

	repo, err := gogit.PlainCloneContext(ctx, dest, false, cloneOpts)
	if err != nil {
		return "", "", fmt.Errorf("cloning %s: %w", url, err)
	}

	if isCommitHash(opts.PinVersion) {
		wt, err := repo.Worktree()
		if err != nil {
			return "", "", fmt.Errorf("opening worktree: %w", err)
		}
		if err := wt.Checkout(&gogit.CheckoutOptions{Hash: plumbing.NewHash(opts.PinVersion)}); err != nil {
			return "", "", fmt.Errorf("pinning to %s: %w", opts.PinVersion, err)
		}
	} else if len(opts.SparsePaths) > 0 {
		wt, err := repo.Worktree()
		if err != nil {
			return "", "", fmt.Errorf("opening worktree: %w", err)
		}
		if err := wt.Checkout(&gogit.CheckoutOptions{SparseCheckoutDirectories: opts.SparsePaths}); err != nil {
			return "", "", fmt.Errorf("sparse checkout: %w", err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("resolving HEAD: %w", err)
	}

	branch := head.Name().Short()
	if branch == "" || branch == "HEAD" {
		branch = opts.Branch
	}
	return branch, head.Hash().String(), nil
}

// isCommitHash reports whether s looks like an abbreviated or full git
// commit hash.
func isCommitHash(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
