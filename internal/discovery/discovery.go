// Package discovery finds candidate repositories on hosting providers and
// scores them for admission: an activity score from stars, forks and push
// recency, and a relevance score that blends keyword matches with activity.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/models"
)

// Service discovers and ranks candidate repositories.
type Service struct {
	provider repository.Provider
	cfg      config.DiscoveryConfig
	weights  policy.RelevanceWeights
	now      func() time.Time
}

func New(provider repository.Provider, cfg config.DiscoveryConfig, pol *policy.Policy) *Service {
	return &Service{
		provider: provider,
		cfg:      cfg,
		weights:  pol.Weights.Relevance,
		now:      time.Now,
	}
}

// Discover runs every configured search query, merges the results and
// returns them filtered, scored and ranked best first.
func (s *Service) Discover(ctx context.Context) ([]models.Repository, error) {
	queries := s.cfg.Queries
	if len(queries) == 0 {
		queries = s.defaultQueries()
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("discovery: no search queries configured")
	}

	seen := make(map[string]bool)
	var merged []models.Repository
	for _, q := range queries {
		repos, err := s.provider.SearchRepos(ctx, s.buildQuery(q), s.cfg.MaxResults)
		if err != nil {
			slog.Warn("discovery: search failed", "query", q, "error", err)
			continue
		}
		for _, r := range repos {
			if seen[r.FullName] {
				continue
			}
			seen[r.FullName] = true
			merged = append(merged, r)
		}
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("discovery: all %d searches returned nothing", len(queries))
	}
	return s.prepare(merged), nil
}

// Search runs a single ad-hoc query and returns filtered, ranked results.
func (s *Service) Search(ctx context.Context, query string) ([]models.Repository, error) {
	repos, err := s.provider.SearchRepos(ctx, s.buildQuery(query), s.cfg.MaxResults)
	if err != nil {
		return nil, err
	}
	return s.prepare(repos), nil
}

// Trending returns repositories created within the window that already
// accumulated stars, ranked by relevance.
func (s *Service) Trending(ctx context.Context, language string, days int) ([]models.Repository, error) {
	if days <= 0 {
		days = 30
	}
	since := s.now().AddDate(0, 0, -days).Format("2006-01-02")
	parts := []string{fmt.Sprintf("created:>%s", since), "stars:>=50"}
	if language != "" {
		parts = append(parts, "language:"+language)
	}
	repos, err := s.provider.SearchRepos(ctx, strings.Join(parts, " "), s.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("discovery: trending search: %w", err)
	}
	return s.prepare(repos), nil
}

// prepare scores, filters and ranks a raw search result set.
func (s *Service) prepare(repos []models.Repository) []models.Repository {
	for i := range repos {
		s.Evaluate(&repos[i])
	}
	repos = s.Filter(repos)
	s.Rank(repos)
	if s.cfg.MaxResults > 0 && len(repos) > s.cfg.MaxResults {
		repos = repos[:s.cfg.MaxResults]
	}
	return repos
}

// Evaluate fills in the activity and relevance scores of repo in place.
func (s *Service) Evaluate(repo *models.Repository) {
	repo.ActivityScore = s.activityScore(repo)
	repo.RelevanceScore = s.relevanceScore(repo)
}

// activityScore rates maintenance health in [0,1]. Stars saturate
// logarithmically so mega-projects do not drown out everything else, forks
// weigh less than stars, and the push recency bands dominate. Archived
// repositories are clamped near zero regardless of their numbers.
func (s *Service) activityScore(repo *models.Repository) float64 {
	score := logScale(repo.Stars, 5) * 0.4
	score += logScale(repo.Forks, 4) * 0.2

	if !repo.PushedAt.IsZero() {
		age := s.now().Sub(repo.PushedAt)
		switch {
		case age <= 7*24*time.Hour:
			score += 0.4
		case age <= 30*24*time.Hour:
			score += 0.3
		case age <= 90*24*time.Hour:
			score += 0.2
		case age <= 365*24*time.Hour:
			score += 0.1
		}
	}

	// A large open-issue backlog relative to popularity suggests neglect.
	if repo.Stars > 0 && float64(repo.OpenIssues)/float64(repo.Stars) > 0.5 {
		score -= 0.1
	}

	if repo.Archived {
		score = math.Min(score, 0.1)
	}
	return clamp01(score)
}

// relevanceScore blends keyword matches against the configured interest
// list with activity and popularity. With no keywords configured the
// keyword component contributes nothing.
func (s *Service) relevanceScore(repo *models.Repository) float64 {
	kw := 0.0
	if len(s.cfg.Keywords) > 0 {
		haystack := strings.ToLower(repo.Name + " " + repo.Description + " " + strings.Join(repo.Topics, " "))
		matched := 0
		for _, k := range s.cfg.Keywords {
			if k != "" && strings.Contains(haystack, strings.ToLower(k)) {
				matched++
			}
		}
		kw = float64(matched) / float64(len(s.cfg.Keywords))
	}

	score := s.weights.Keywords*kw +
		s.weights.Activity*repo.ActivityScore +
		s.weights.Stars*logScale(repo.Stars, 5)
	return clamp01(score)
}

// Filter drops repositories failing the configured admission floor.
func (s *Service) Filter(repos []models.Repository) []models.Repository {
	out := repos[:0]
	for _, r := range repos {
		if r.Stars < s.cfg.MinStars {
			continue
		}
		if s.cfg.ExcludeArchived && r.Archived {
			continue
		}
		if s.cfg.Language != "" && !strings.EqualFold(r.Language, s.cfg.Language) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Rank sorts repos in place, highest relevance first. Ties fall back to
// stars so ordering stays deterministic.
func (s *Service) Rank(repos []models.Repository) {
	sort.SliceStable(repos, func(i, j int) bool {
		if repos[i].RelevanceScore != repos[j].RelevanceScore {
			return repos[i].RelevanceScore > repos[j].RelevanceScore
		}
		return repos[i].Stars > repos[j].Stars
	})
}

// buildQuery appends the configured qualifiers to a search term.
func (s *Service) buildQuery(base string) string {
	parts := []string{strings.TrimSpace(base)}
	if s.cfg.MinStars > 0 {
		parts = append(parts, fmt.Sprintf("stars:>=%d", s.cfg.MinStars))
	}
	if s.cfg.Language != "" {
		parts = append(parts, "language:"+s.cfg.Language)
	}
	if s.cfg.ExcludeArchived {
		parts = append(parts, "archived:false")
	}
	return strings.Join(parts, " ")
}

func (s *Service) defaultQueries() []string {
	queries := make([]string, 0, len(s.cfg.Keywords))
	for _, k := range s.cfg.Keywords {
		if k != "" {
			queries = append(queries, k)
		}
	}
	return queries
}

// logScale maps a count to [0,1] on a log10 scale saturating at 10^decades.
func logScale(n int, decades float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(math.Log10(float64(n)+1)/decades, 1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
