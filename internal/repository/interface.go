// Package repository abstracts the Git hosting platforms candidate
// repositories are discovered on. Implementations: GitHub, GitLab.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/models"
)

// ErrFileNotFound is returned by FileContents and ListDir when the path does
// not exist in the repository. Callers probe for manifests with it.
var ErrFileNotFound = errors.New("repository: file not found")

// Provider abstracts read operations against a Git hosting platform.
type Provider interface {
	// Name identifies the provider ("github" or "gitlab").
	Name() string

	// SearchRepos searches for repositories matching the query, most
	// relevant first. limit caps the result count; 0 means provider default.
	SearchRepos(ctx context.Context, query string, limit int) ([]models.Repository, error)

	// GetRepo returns a single repository with its metadata populated.
	GetRepo(ctx context.Context, owner, name string) (*models.Repository, error)

	// FileContents returns the decoded contents of one file at ref.
	// Empty ref means the default branch.
	FileContents(ctx context.Context, fullName, path, ref string) (string, error)

	// ListDir returns the entry names directly under dir at ref.
	ListDir(ctx context.Context, fullName, dir, ref string) ([]string, error)

	// LatestCommit returns the head commit SHA of branch.
	LatestCommit(ctx context.Context, fullName, branch string) (string, error)

	// AuthToken returns the credential used for git clone.
	AuthToken() string
}

// DetectProvider infers the hosting platform from a repository URL.
func DetectProvider(repoURL string) (string, error) {
	lower := strings.ToLower(repoURL)
	switch {
	case strings.Contains(lower, "github.com"):
		return "github", nil
	case strings.Contains(lower, "gitlab.com") || strings.Contains(lower, "gitlab."):
		return "gitlab", nil
	default:
		// Try to guess from common enterprise patterns.
		if strings.Contains(lower, "github.") {
			return "github", nil
		}
		return "", fmt.Errorf("cannot detect provider from URL %q; use --provider flag", repoURL)
	}
}

// TokenForProvider returns the auth token for the named provider from cfg.
func TokenForProvider(cfg *config.Config, provider string) string {
	switch provider {
	case "github":
		for _, g := range cfg.Git.GitHub {
			if g.Token != "" {
				return g.Token
			}
		}
	case "gitlab":
		for _, g := range cfg.Git.GitLab {
			if g.Token != "" {
				return g.Token
			}
		}
	}
	return ""
}

// New returns the appropriate Provider for the given platform.
func New(provider string, cfg *config.Config) (Provider, error) {
	switch provider {
	case "github", "":
		var gh config.GitHubConfig
		if len(cfg.Git.GitHub) > 0 {
			gh = cfg.Git.GitHub[0]
		}
		// Anonymous GitHub access works for public repos at a low rate limit.
		return NewGitHub(gh)
	case "gitlab":
		if len(cfg.Git.GitLab) == 0 || cfg.Git.GitLab[0].Token == "" {
			return nil, fmt.Errorf("no GitLab token configured; run 'repogate onboard'")
		}
		return NewGitLab(cfg.Git.GitLab[0])
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

// splitFullName breaks an "owner/name" pair into its parts.
func splitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository: invalid full name %q (want owner/name)", fullName)
	}
	return parts[0], parts[1], nil
}
