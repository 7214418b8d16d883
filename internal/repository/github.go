package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/models"
	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// GitHubProvider implements Provider for GitHub and GitHub Enterprise.
type GitHubProvider struct {
	client *gogithub.Client
	token  string
	host   string
}

// NewGitHub creates a GitHubProvider from the given configuration. An empty
// token yields an unauthenticated client limited to public repositories.
func NewGitHub(cfg config.GitHubConfig) (*GitHubProvider, error) {
	client := gogithub.NewClient(nil)
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = gogithub.NewClient(oauth2.NewClient(context.Background(), ts))
	}

	// Support GitHub Enterprise by overriding the base URL.
	if cfg.Host != "" && cfg.Host != "github.com" {
		base := fmt.Sprintf("https://%s/api/v3/", cfg.Host)
		upload := fmt.Sprintf("https://%s/api/uploads/", cfg.Host)
		var err error
		client, err = client.WithEnterpriseURLs(base, upload)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub enterprise URLs: %w", err)
		}
	}

	return &GitHubProvider{client: client, token: cfg.Token, host: cfg.Host}, nil
}

func (g *GitHubProvider) Name() string      { return "github" }
func (g *GitHubProvider) AuthToken() string { return g.token }

func (g *GitHubProvider) SearchRepos(ctx context.Context, query string, limit int) ([]models.Repository, error) {
	perPage := limit
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	result, _, err := g.client.Search.Repositories(ctx, query, &gogithub.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gogithub.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("searching GitHub repos: %w", err)
	}
	repos := g.convertRepos(result.Repositories)
	if limit > 0 && len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}

func (g *GitHubProvider) GetRepo(ctx context.Context, owner, name string) (*models.Repository, error) {
	r, _, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("getting GitHub repo %s/%s: %w", owner, name, err)
	}
	repos := g.convertRepos([]*gogithub.Repository{r})
	return &repos[0], nil
}

func (g *GitHubProvider) FileContents(ctx context.Context, fullName, path, ref string) (string, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return "", err
	}
	var opts *gogithub.RepositoryContentGetOptions
	if ref != "" {
		opts = &gogithub.RepositoryContentGetOptions{Ref: ref}
	}
	file, _, resp, err := g.client.Repositories.GetContents(ctx, owner, name, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return "", ErrFileNotFound
		}
		return "", fmt.Errorf("getting %s from %s: %w", path, fullName, err)
	}
	if file == nil {
		// Path resolved to a directory.
		return "", ErrFileNotFound
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s from %s: %w", path, fullName, err)
	}
	return content, nil
}

func (g *GitHubProvider) ListDir(ctx context.Context, fullName, dir, ref string) ([]string, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	var opts *gogithub.RepositoryContentGetOptions
	if ref != "" {
		opts = &gogithub.RepositoryContentGetOptions{Ref: ref}
	}
	_, entries, resp, err := g.client.Repositories.GetContents(ctx, owner, name, dir, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("listing %s in %s: %w", dir, fullName, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.GetName() != "" {
			names = append(names, e.GetName())
		}
	}
	return names, nil
}

func (g *GitHubProvider) LatestCommit(ctx context.Context, fullName, branch string) (string, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return "", err
	}
	commits, _, err := g.client.Repositories.ListCommits(ctx, owner, name, &gogithub.CommitsListOptions{
		SHA:         branch,
		ListOptions: gogithub.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("listing commits for %s@%s: %w", fullName, branch, err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits on %s@%s", fullName, branch)
	}
	return commits[0].GetSHA(), nil
}

func (g *GitHubProvider) convertRepos(ghRepos []*gogithub.Repository) []models.Repository {
	repos := make([]models.Repository, 0, len(ghRepos))
	for _, r := range ghRepos {
		if r == nil {
			continue
		}
		branch := r.GetDefaultBranch()
		if branch == "" {
			branch = "main"
		}
		repos = append(repos, models.Repository{
			Name:          r.GetName(),
			FullName:      r.GetFullName(),
			Owner:         r.GetOwner().GetLogin(),
			Provider:      "github",
			URL:           r.GetHTMLURL(),
			CloneURL:      r.GetCloneURL(),
			DefaultBranch: branch,
			Description:   r.GetDescription(),
			Language:      strings.ToLower(r.GetLanguage()),
			Topics:        r.Topics,
			Stars:         r.GetStargazersCount(),
			Forks:         r.GetForksCount(),
			OpenIssues:    r.GetOpenIssuesCount(),
			License:       models.ParseLicense(r.GetLicense().GetSPDXID()),
			Archived:      r.GetArchived(),
			PushedAt:      r.GetPushedAt().Time,
		})
	}
	return repos
}
