package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/models"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLabProvider implements Provider for GitLab (cloud and self-hosted).
type GitLabProvider struct {
	client *gitlab.Client
	token  string
	host   string
}

// NewGitLab creates a GitLabProvider from the given configuration.
func NewGitLab(cfg config.GitLabConfig) (*GitLabProvider, error) {
	opts := []gitlab.ClientOptionFunc{}
	if cfg.Host != "" && cfg.Host != "gitlab.com" {
		base := fmt.Sprintf("https://%s/api/v4/", cfg.Host)
		opts = append(opts, gitlab.WithBaseURL(base))
	}

	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitLab client: %w", err)
	}

	return &GitLabProvider{client: client, token: cfg.Token, host: cfg.Host}, nil
}

func (g *GitLabProvider) Name() string      { return "gitlab" }
func (g *GitLabProvider) AuthToken() string { return g.token }

func (g *GitLabProvider) SearchRepos(ctx context.Context, query string, limit int) ([]models.Repository, error) {
	perPage := limit
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	projects, _, err := g.client.Projects.ListProjects(&gitlab.ListProjectsOptions{
		Search:      &query,
		ListOptions: gitlab.ListOptions{PerPage: int64(perPage)},
	})
	if err != nil {
		return nil, fmt.Errorf("searching GitLab projects: %w", err)
	}
	repos := g.convertProjects(projects)
	if limit > 0 && len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}

func (g *GitLabProvider) GetRepo(ctx context.Context, owner, name string) (*models.Repository, error) {
	nameWithNS := owner + "/" + name
	proj, _, err := g.client.Projects.GetProject(nameWithNS, nil)
	if err != nil {
		return nil, fmt.Errorf("getting GitLab project %s: %w", nameWithNS, err)
	}
	repos := g.convertProjects([]*gitlab.Project{proj})
	return &repos[0], nil
}

func (g *GitLabProvider) FileContents(ctx context.Context, fullName, path, ref string) (string, error) {
	opts := &gitlab.GetRawFileOptions{}
	if ref != "" {
		opts.Ref = &ref
	}
	data, resp, err := g.client.RepositoryFiles.GetRawFile(fullName, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return "", ErrFileNotFound
		}
		return "", fmt.Errorf("getting %s from %s: %w", path, fullName, err)
	}
	return string(data), nil
}

func (g *GitLabProvider) ListDir(ctx context.Context, fullName, dir, ref string) ([]string, error) {
	opts := &gitlab.ListTreeOptions{}
	if dir != "" {
		opts.Path = &dir
	}
	if ref != "" {
		opts.Ref = &ref
	}
	nodes, resp, err := g.client.Repositories.ListTree(fullName, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("listing %s in %s: %w", dir, fullName, err)
	}
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n != nil && n.Name != "" {
			names = append(names, n.Name)
		}
	}
	return names, nil
}

func (g *GitLabProvider) LatestCommit(ctx context.Context, fullName, branch string) (string, error) {
	opts := &gitlab.ListCommitsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 1},
	}
	if branch != "" {
		opts.RefName = &branch
	}
	commits, _, err := g.client.Commits.ListCommits(fullName, opts)
	if err != nil {
		return "", fmt.Errorf("listing commits for %s@%s: %w", fullName, branch, err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits on %s@%s", fullName, branch)
	}
	return commits[0].ID, nil
}

func (g *GitLabProvider) convertProjects(projects []*gitlab.Project) []models.Repository {
	repos := make([]models.Repository, 0, len(projects))
	host := g.host
	if host == "" {
		host = "gitlab.com"
	}
	for _, p := range projects {
		if p == nil {
			continue
		}
		parts := strings.SplitN(p.PathWithNamespace, "/", 2)
		owner, name := "", p.Name
		if len(parts) == 2 {
			owner = parts[0]
			name = parts[1]
		}
		branch := p.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		repo := models.Repository{
			Name:          name,
			FullName:      p.PathWithNamespace,
			Owner:         owner,
			Provider:      "gitlab",
			URL:           p.WebURL,
			CloneURL:      p.HTTPURLToRepo,
			DefaultBranch: branch,
			Description:   p.Description,
			Topics:        p.Topics,
			Stars:         int(p.StarCount),
			Forks:         int(p.ForksCount),
			OpenIssues:    int(p.OpenIssuesCount),
			License:       models.LicenseUnknown,
			Archived:      p.Archived,
		}
		if p.LastActivityAt != nil {
			repo.PushedAt = *p.LastActivityAt
		}
		repos = append(repos, repo)
	}
	return repos
}
