package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/models"
)

type fakeProvider struct {
	repos   []models.Repository
	err     error
	queries []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) SearchRepos(ctx context.Context, query string, limit int) ([]models.Repository, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Repository, len(f.repos))
	copy(out, f.repos)
	return out, nil
}

func (f *fakeProvider) GetRepo(ctx context.Context, owner, name string) (*models.Repository, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) FileContents(ctx context.Context, fullName, path, ref string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeProvider) ListDir(ctx context.Context, fullName, dir, ref string) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) LatestCommit(ctx context.Context, fullName, branch string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeProvider) AuthToken() string { return "" }

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestService(cfg config.DiscoveryConfig, fp *fakeProvider) *Service {
	s := New(fp, cfg, policy.Default())
	s.now = func() time.Time { return testNow }
	return s
}

func TestActivityScoreArchivedClamped(t *testing.T) {
	s := newTestService(config.DiscoveryConfig{}, &fakeProvider{})

	lively := models.Repository{Stars: 50000, Forks: 3000, PushedAt: testNow.Add(-24 * time.Hour)}
	archived := lively
	archived.Archived = true

	if got := s.activityScore(&lively); got < 0.7 {
		t.Fatalf("activity(lively) = %v, want >= 0.7", got)
	}
	if got := s.activityScore(&archived); got > 0.1 {
		t.Fatalf("activity(archived) = %v, want <= 0.1", got)
	}
}

func TestActivityScoreRecencyBands(t *testing.T) {
	s := newTestService(config.DiscoveryConfig{}, &fakeProvider{})

	base := models.Repository{Stars: 100}
	ages := []time.Duration{
		3 * 24 * time.Hour,
		20 * 24 * time.Hour,
		60 * 24 * time.Hour,
		200 * 24 * time.Hour,
		500 * 24 * time.Hour,
	}
	var prev float64 = 2
	for _, age := range ages {
		r := base
		r.PushedAt = testNow.Add(-age)
		got := s.activityScore(&r)
		if got >= prev {
			t.Fatalf("activity at age %v = %v, want < %v (older pushes must score lower)", age, got, prev)
		}
		prev = got
	}
}

func TestActivityScoreIssueBacklogPenalty(t *testing.T) {
	s := newTestService(config.DiscoveryConfig{}, &fakeProvider{})

	healthy := models.Repository{Stars: 100, OpenIssues: 10, PushedAt: testNow.Add(-24 * time.Hour)}
	neglected := healthy
	neglected.OpenIssues = 80

	h, n := s.activityScore(&healthy), s.activityScore(&neglected)
	if n >= h {
		t.Fatalf("activity(neglected) = %v, want < activity(healthy) = %v", n, h)
	}
}

func TestRelevanceWithoutKeywords(t *testing.T) {
	s := newTestService(config.DiscoveryConfig{}, &fakeProvider{})

	r := models.Repository{
		Name:        "agent-framework",
		Description: "an agent framework",
		Stars:       1000,
		PushedAt:    testNow.Add(-24 * time.Hour),
	}
	s.Evaluate(&r)
	// With no keywords only the activity and star terms remain, so the
	// score stays below the keyword weight ceiling.
	if r.RelevanceScore <= 0 || r.RelevanceScore > 0.5 {
		t.Fatalf("relevance without keywords = %v, want (0, 0.5]", r.RelevanceScore)
	}
}

func TestRelevanceKeywordMatching(t *testing.T) {
	cfg := config.DiscoveryConfig{Keywords: []string{"agent", "scraper"}}
	s := newTestService(cfg, &fakeProvider{})

	full := models.Repository{Name: "agent-scraper", Description: "an agent that scrapes", Stars: 100}
	half := models.Repository{Name: "agent-kit", Description: "toolkit", Stars: 100}
	none := models.Repository{Name: "parser", Description: "a yaml parser", Stars: 100}

	s.Evaluate(&full)
	s.Evaluate(&half)
	s.Evaluate(&none)

	if !(full.RelevanceScore > half.RelevanceScore && half.RelevanceScore > none.RelevanceScore) {
		t.Fatalf("relevance ordering = %v, %v, %v", full.RelevanceScore, half.RelevanceScore, none.RelevanceScore)
	}
}

func TestFilter(t *testing.T) {
	cfg := config.DiscoveryConfig{MinStars: 50, Language: "Python", ExcludeArchived: true}
	s := newTestService(cfg, &fakeProvider{})

	repos := []models.Repository{
		{FullName: "a/starved", Stars: 10, Language: "python"},
		{FullName: "b/wrong-lang", Stars: 500, Language: "go"},
		{FullName: "c/archived", Stars: 500, Language: "python", Archived: true},
		{FullName: "d/keeper", Stars: 500, Language: "python"},
		{FullName: "e/case", Stars: 500, Language: "PYTHON"},
	}
	got := s.Filter(repos)
	if len(got) != 2 {
		t.Fatalf("filtered = %d repos, want 2", len(got))
	}
	if got[0].FullName != "d/keeper" || got[1].FullName != "e/case" {
		t.Fatalf("filtered = %v", got)
	}
}

func TestRankOrdering(t *testing.T) {
	s := newTestService(config.DiscoveryConfig{}, &fakeProvider{})

	repos := []models.Repository{
		{FullName: "a/low", RelevanceScore: 0.2, Stars: 900},
		{FullName: "b/high", RelevanceScore: 0.9, Stars: 10},
		{FullName: "c/tie-more-stars", RelevanceScore: 0.5, Stars: 500},
		{FullName: "d/tie-fewer-stars", RelevanceScore: 0.5, Stars: 50},
	}
	s.Rank(repos)

	want := []string{"b/high", "c/tie-more-stars", "d/tie-fewer-stars", "a/low"}
	for i, name := range want {
		if repos[i].FullName != name {
			t.Fatalf("rank[%d] = %s, want %s", i, repos[i].FullName, name)
		}
	}
}

func TestDiscoverMergesAndDedupes(t *testing.T) {
	fp := &fakeProvider{repos: []models.Repository{
		{FullName: "acme/widget", Name: "widget", Stars: 100, PushedAt: testNow.Add(-48 * time.Hour)},
		{FullName: "acme/gadget", Name: "gadget", Stars: 80, PushedAt: testNow.Add(-48 * time.Hour)},
	}}
	cfg := config.DiscoveryConfig{Queries: []string{"widget", "gadget"}, MaxResults: 10}
	s := newTestService(cfg, fp)

	got, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("discover = %d repos, want 2 (deduped)", len(got))
	}
	if len(fp.queries) != 2 {
		t.Fatalf("provider queried %d times, want 2", len(fp.queries))
	}
	for _, r := range got {
		if r.RelevanceScore == 0 && r.ActivityScore == 0 {
			t.Fatalf("repo %s was not scored", r.FullName)
		}
	}
}

func TestDiscoverAllSearchesFail(t *testing.T) {
	fp := &fakeProvider{err: errors.New("rate limited")}
	s := newTestService(config.DiscoveryConfig{Queries: []string{"a", "b"}}, fp)

	if _, err := s.Discover(context.Background()); err == nil {
		t.Fatal("discover with failing provider = nil error")
	}
}

func TestBuildQueryQualifiers(t *testing.T) {
	cfg := config.DiscoveryConfig{MinStars: 25, Language: "go", ExcludeArchived: true}
	s := newTestService(cfg, &fakeProvider{})

	got := s.buildQuery("http client")
	want := "http client stars:>=25 language:go archived:false"
	if got != want {
		t.Fatalf("buildQuery = %q, want %q", got, want)
	}
}
