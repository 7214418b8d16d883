package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/database"
	"github.com/CosmoTheDev/repogate/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func sampleReport(name string, status models.RepoStatus) *models.IntegrationReport {
	return &models.IntegrationReport{
		RepoName:  name,
		Status:    status,
		Repo:      &models.Repository{Name: name, FullName: "acme/" + name, Stars: 120},
		StartedAt: time.Now().UTC(),
	}
}

func TestSaveReportKeepsSingleActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveReport(ctx, sampleReport("payments", models.StatusFailed)); err != nil {
		t.Fatalf("save failed report: %v", err)
	}
	if _, err := s.SaveReport(ctx, sampleReport("payments", models.StatusRegistered)); err != nil {
		t.Fatalf("save registered report: %v", err)
	}
	if _, err := s.SaveReport(ctx, sampleReport("payments", models.StatusRegistered)); err != nil {
		t.Fatalf("save second registered report: %v", err)
	}

	active, err := s.ListReports(ctx, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active reports = %d, want 1", len(active))
	}
	all, err := s.ListReports(ctx, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("total reports = %d, want 3", len(all))
	}
}

func TestGetReportPrefersActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveReport(ctx, sampleReport("search", models.StatusRegistered)); err != nil {
		t.Fatalf("save registered: %v", err)
	}
	if _, err := s.SaveReport(ctx, sampleReport("search", models.StatusFailed)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.GetReport(ctx, "search")
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if got.Status != models.StatusRegistered {
		t.Fatalf("status = %s, want %s", got.Status, models.StatusRegistered)
	}
	if got.Repo == nil || got.Repo.FullName != "acme/search" {
		t.Fatalf("repo payload not restored: %+v", got.Repo)
	}

	if _, err := s.GetReport(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing report err = %v, want ErrNotFound", err)
	}
}

func TestRetireReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveReport(ctx, sampleReport("legacy", models.StatusRegistered)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.RetireReport(ctx, "legacy", "rolled back"); err != nil {
		t.Fatalf("retire: %v", err)
	}
	active, err := s.ListReports(ctx, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active after retire = %d, want 0", len(active))
	}
	got, err := s.GetReport(ctx, "legacy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusFailed || got.Recommendation != "rolled back" {
		t.Fatalf("retired report = %s %q", got.Status, got.Recommendation)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, st := range []models.RepoStatus{
		models.StatusRegistered,
		models.StatusFailed,
		models.StatusIncompatible,
		models.StatusRegistered,
	} {
		if _, err := s.SaveReport(ctx, sampleReport("repo-"+string(st), st)); err != nil {
			t.Fatalf("save %s: %v", st, err)
		}
	}
	if err := s.PutClone(ctx, &models.CloneResult{RepoName: "repo-registered", LocalPath: "/tmp/x", SizeMB: 12.5}); err != nil {
		t.Fatalf("put clone: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalIntegrations != 4 || stats.Successful != 2 || stats.Failed != 1 || stats.Incompatible != 1 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.SuccessRate != 50 {
		t.Fatalf("success rate = %v, want 50", stats.SuccessRate)
	}
	if stats.TotalClonesMB != 12.5 {
		t.Fatalf("clones mb = %v, want 12.5", stats.TotalClonesMB)
	}
}

func TestDeleteCloneIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	clone := &models.CloneResult{
		RepoName:  "vector-db",
		LocalPath: "/tmp/clones/vector-db",
		Branch:    "main",
		Commit:    "abc123",
		SizeMB:    3.2,
		Success:   true,
		ClonedAt:  time.Now().UTC(),
	}
	if err := s.PutClone(ctx, clone); err != nil {
		t.Fatalf("put clone: %v", err)
	}

	removed, err := s.DeleteClone(ctx, "vector-db")
	if err != nil || !removed {
		t.Fatalf("first delete = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = s.DeleteClone(ctx, "vector-db")
	if err != nil || removed {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", removed, err)
	}
	if _, err := s.GetClone(ctx, "vector-db"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestWrapperRegistrationFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := &models.WrapperConfig{
		Type:       models.WrapperAgent,
		Name:       "scraper_agent",
		RepoName:   "scraper",
		EntryPoint: "main",
		InputMapping: map[string]string{
			"task": "string",
		},
	}
	if err := s.PutWrapper(ctx, w); err != nil {
		t.Fatalf("put wrapper: %v", err)
	}

	found, err := s.SetWrapperRegistered(ctx, "scraper_agent", true)
	if err != nil || !found {
		t.Fatalf("register = (%v, %v), want (true, nil)", found, err)
	}
	found, err = s.SetWrapperRegistered(ctx, "ghost_agent", true)
	if err != nil || found {
		t.Fatalf("register missing = (%v, %v), want (false, nil)", found, err)
	}

	registered, err := s.ListWrappers(ctx, true)
	if err != nil {
		t.Fatalf("list registered: %v", err)
	}
	if len(registered) != 1 || registered[0].Name != "scraper_agent" {
		t.Fatalf("registered = %+v", registered)
	}
	if registered[0].InputMapping["task"] != "string" {
		t.Fatalf("input mapping not restored: %+v", registered[0].InputMapping)
	}

	byRepo, err := s.WrapperForRepo(ctx, "scraper")
	if err != nil || byRepo.Name != "scraper_agent" {
		t.Fatalf("wrapper for repo = (%+v, %v)", byRepo, err)
	}
}

func TestApprovals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.IsApproved(ctx, "sketchy")
	if err != nil || ok {
		t.Fatalf("initial approval = (%v, %v), want (false, nil)", ok, err)
	}
	if err := s.Approve(ctx, "sketchy", "ops"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	ok, err = s.IsApproved(ctx, "sketchy")
	if err != nil || !ok {
		t.Fatalf("approval after approve = (%v, %v), want (true, nil)", ok, err)
	}
	revoked, err := s.RevokeApproval(ctx, "sketchy")
	if err != nil || !revoked {
		t.Fatalf("revoke = (%v, %v), want (true, nil)", revoked, err)
	}
	revoked, err = s.RevokeApproval(ctx, "sketchy")
	if err != nil || revoked {
		t.Fatalf("second revoke = (%v, %v), want (false, nil)", revoked, err)
	}
}

func TestInstallSuccessRate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rate, err := s.InstallSuccessRate(ctx)
	if err != nil || rate != 0 {
		t.Fatalf("empty rate = (%v, %v), want (0, nil)", rate, err)
	}
	if err := s.RecordInstall(ctx, &models.InstallResult{RepoName: "a", Method: models.MethodPip, Success: true}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordInstall(ctx, &models.InstallResult{RepoName: "b", Method: models.MethodNpm, Success: false, Error: "exit 1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	rate, err = s.InstallSuccessRate(ctx)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rate != 50 {
		t.Fatalf("rate = %v, want 50", rate)
	}

	latest, err := s.LatestInstall(ctx, "b")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Success || latest.Error != "exit 1" {
		t.Fatalf("latest = %+v", latest)
	}
}

func TestRiskSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	reports := []*models.SecurityReport{
		{RepoName: "clean", RiskLevel: models.RiskSafe, SafeToInstall: true},
		{RepoName: "meh", RiskLevel: models.RiskMedium},
		{RepoName: "bad", RiskLevel: models.RiskCritical, MalwareDetected: true},
	}
	for _, r := range reports {
		if err := s.RecordScan(ctx, r); err != nil {
			t.Fatalf("record scan: %v", err)
		}
	}
	sum, err := s.RiskSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalScans != 3 || sum.SafeCount != 1 || sum.RiskyCount != 2 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestEventTrail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, status := range []string{"discovered", "analyzed", "cloned"} {
		if err := s.AppendEvent(ctx, "pipeline-repo", status, ""); err != nil {
			t.Fatalf("append %s: %v", status, err)
		}
	}
	events, err := s.Events(ctx, "pipeline-repo", 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 3 || events[0].Status != "discovered" || events[2].Status != "cloned" {
		t.Fatalf("events = %+v", events)
	}
	last, err := s.Events(ctx, "pipeline-repo", 1)
	if err != nil || len(last) != 1 || last[0].Status != "cloned" {
		t.Fatalf("limited events = (%+v, %v)", last, err)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSchedule(ctx, &Schedule{
		Name:    "nightly sweep",
		Expr:    "0 3 * * *",
		Kind:    ScheduleDiscover,
		Query:   "language:go stars:>100",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetSchedule(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastRunAt != nil {
		t.Fatalf("new schedule has last_run_at = %v", *got.LastRunAt)
	}
	if err := s.TouchSchedule(ctx, id); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, err = s.GetSchedule(ctx, id)
	if err != nil || got.LastRunAt == nil {
		t.Fatalf("after touch = (%+v, %v)", got, err)
	}

	enabled, err := s.ListSchedules(ctx, true)
	if err != nil || len(enabled) != 1 {
		t.Fatalf("enabled = (%d, %v), want 1", len(enabled), err)
	}

	deleted, err := s.DeleteSchedule(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("delete = (%v, %v), want (true, nil)", deleted, err)
	}
	deleted, err = s.DeleteSchedule(ctx, id)
	if err != nil || deleted {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}
}
