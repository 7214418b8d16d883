package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/CosmoTheDev/repogate/internal/clone"
	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/database"
	"github.com/CosmoTheDev/repogate/internal/notify"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// pipeProvider is an in-memory hosting platform: canned search results,
// a root file map, and a fixed head commit.
type pipeProvider struct {
	repos []models.Repository
	files map[string]string
	head  string
}

func (p *pipeProvider) Name() string      { return "fake" }
func (p *pipeProvider) AuthToken() string { return "" }

func (p *pipeProvider) SearchRepos(ctx context.Context, query string, limit int) ([]models.Repository, error) {
	if limit > 0 && limit < len(p.repos) {
		return p.repos[:limit], nil
	}
	return p.repos, nil
}

func (p *pipeProvider) GetRepo(ctx context.Context, owner, name string) (*models.Repository, error) {
	return nil, errors.New("not implemented")
}

func (p *pipeProvider) FileContents(ctx context.Context, fullName, path, ref string) (string, error) {
	if content, ok := p.files[path]; ok {
		return content, nil
	}
	return "", repository.ErrFileNotFound
}

func (p *pipeProvider) ListDir(ctx context.Context, fullName, dir, ref string) ([]string, error) {
	if dir != "" {
		return nil, repository.ErrFileNotFound
	}
	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	return names, nil
}

func (p *pipeProvider) LatestCommit(ctx context.Context, fullName, branch string) (string, error) {
	if p.head == "" {
		return "", errors.New("no head configured")
	}
	return p.head, nil
}

// pipeVCS fakes git: it creates the destination and returns a canned
// branch and commit. panics simulates a crashing collaborator.
type pipeVCS struct {
	mu     sync.Mutex
	calls  int
	err    error
	panics bool
}

func (v *pipeVCS) Clone(ctx context.Context, url, dest, token string, opts clone.Options) (string, string, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	if v.panics {
		panic("vcs exploded")
	}
	if v.err != nil {
		return "", "", v.err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", "", err
	}
	return "main", "feedbeefcafe0123", nil
}

func (v *pipeVCS) cloneCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// pipeExecutor fails any command containing failOn.
type pipeExecutor struct {
	failOn string
	ran    []string
}

func (e *pipeExecutor) Run(ctx context.Context, dir, command string) error {
	e.ran = append(e.ran, command)
	if e.failOn != "" && strings.Contains(command, e.failOn) {
		return errors.New("command exited 1")
	}
	return nil
}

type pipeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *pipeNotifier) Notify(_ context.Context, evt notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *pipeNotifier) byType(typ string) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, e := range n.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type noAdvisories struct{}

func (noAdvisories) CheckDependencies(ctx context.Context, ecosystem string, deps []models.Dependency) []models.SecurityFinding {
	return nil
}

func newOrchestrator(t *testing.T, prov repository.Provider, opts Options) (*Orchestrator, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewSQLite(config.DatabaseConfig{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(db)

	cfg := &config.Config{}
	cfg.Clone.Dir = filepath.Join(dir, "clones")
	cfg.Pipeline.Workers = 2
	cfg.Discovery.MinStars = 10
	cfg.Discovery.Queries = []string{"topic:automation"}

	if opts.Advisories == nil {
		opts.Advisories = noAdvisories{}
	}
	return New(cfg, st, policy.Default(), prov, opts), st
}

func candidate() *models.Repository {
	return &models.Repository{
		Name:          "taskrunner",
		FullName:      "acme/taskrunner",
		Owner:         "acme",
		Provider:      "github",
		URL:           "https://github.com/acme/taskrunner",
		CloneURL:      "https://github.com/acme/taskrunner.git",
		DefaultBranch: "main",
		Description:   "a friendly task runner",
		Language:      "Python",
		Stars:         500,
		License:       models.LicenseMIT,
	}
}

func cleanFiles() map[string]string {
	return map[string]string{
		"requirements.txt": "fastapi==0.100.0\nredis>=4.0\n",
		"main.py":          "import json\n\nprint(json.dumps({\"ok\": True}))\n",
		"README.md":        "# Taskrunner\n\n## Usage\n\nRun main.py\n",
	}
}

func dangerousFiles() map[string]string {
	files := cleanFiles()
	files["main.py"] = "def run(data):\n    return eval(data)\n"
	return files
}

func TestIntegrateHappyPath(t *testing.T) {
	vcs := &pipeVCS{}
	notifier := &pipeNotifier{}
	o, st := newOrchestrator(t, &pipeProvider{files: cleanFiles()}, Options{VCS: vcs, Notifier: notifier})
	ctx := context.Background()

	report := o.Integrate(ctx, IntegrateRequest{Repo: candidate(), Approved: true})

	if report.Status != models.StatusRegistered {
		t.Fatalf("status = %s (recommendation %q)", report.Status, report.Recommendation)
	}
	if report.Recommendation != "Integration successful" {
		t.Errorf("recommendation = %q", report.Recommendation)
	}
	if report.Wrapper == nil || !report.Wrapper.Registered {
		t.Fatalf("wrapper = %+v, want registered", report.Wrapper)
	}
	if report.Wrapper.Name != "taskrunner_agent" {
		t.Errorf("wrapper name = %q", report.Wrapper.Name)
	}
	if report.Security == nil || report.Security.RiskLevel != models.RiskSafe {
		t.Errorf("security = %+v, want safe", report.Security)
	}
	if report.Clone == nil || report.Install == nil {
		t.Fatal("clone and install results must be attached")
	}
	if report.CompletedAt == nil {
		t.Error("completed timestamp not set")
	}

	stored, err := st.GetReport(ctx, "taskrunner")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if stored.Status != models.StatusRegistered {
		t.Errorf("stored status = %s", stored.Status)
	}

	events, err := st.Events(ctx, "taskrunner", 0)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	want := []string{"discovered", "analyzed", "compatible", "cloned", "installed", "wrapped", "registered"}
	if len(events) != len(want) {
		t.Fatalf("recorded %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, w := range want {
		if events[i].Status != w {
			t.Errorf("event[%d] = %s, want %s", i, events[i].Status, w)
		}
	}

	if got := notifier.byType(notify.EventRegistered); len(got) != 1 {
		t.Errorf("registered notifications = %d, want 1", len(got))
	}
}

func TestIntegrateIncompatibleStopsBeforeScanAndClone(t *testing.T) {
	vcs := &pipeVCS{}
	o, _ := newOrchestrator(t, &pipeProvider{files: cleanFiles()}, Options{VCS: vcs})

	repo := candidate()
	repo.License = models.LicenseProprietary
	report := o.Integrate(context.Background(), IntegrateRequest{Repo: repo, Approved: true})

	if report.Status != models.StatusIncompatible {
		t.Fatalf("status = %s", report.Status)
	}
	if !strings.HasPrefix(report.Recommendation, "Incompatible: ") {
		t.Errorf("recommendation = %q", report.Recommendation)
	}
	if !strings.Contains(report.Recommendation, "proprietary") {
		t.Errorf("recommendation should name the license issue, got %q", report.Recommendation)
	}
	if report.Security != nil {
		t.Error("security scan must not run for incompatible repositories")
	}
	if report.Clone != nil || vcs.cloneCalls() != 0 {
		t.Errorf("clone ran for an incompatible repository (calls=%d)", vcs.cloneCalls())
	}
}

func TestIntegrateCriticalRiskGate(t *testing.T) {
	vcs := &pipeVCS{}
	notifier := &pipeNotifier{}
	o, _ := newOrchestrator(t, &pipeProvider{files: dangerousFiles()}, Options{VCS: vcs, Notifier: notifier})

	report := o.Integrate(context.Background(), IntegrateRequest{Repo: candidate()})

	if report.Status != models.StatusFailed {
		t.Fatalf("status = %s", report.Status)
	}
	if !strings.Contains(report.Recommendation, "manual approval") {
		t.Errorf("recommendation = %q, want manual approval mention", report.Recommendation)
	}
	if report.Clone != nil || vcs.cloneCalls() != 0 {
		t.Error("no clone may be attempted for unapproved critical risk")
	}
	if report.Security == nil || report.Security.RiskLevel != models.RiskCritical {
		t.Errorf("security = %+v, want critical", report.Security)
	}
	if got := notifier.byType(notify.EventApprovalRequired); len(got) != 1 {
		t.Fatalf("approval notifications = %d, want 1", len(got))
	}
}

func TestIntegrateCriticalRiskWithApprovalProceeds(t *testing.T) {
	o, _ := newOrchestrator(t, &pipeProvider{files: dangerousFiles()}, Options{VCS: &pipeVCS{}})

	report := o.Integrate(context.Background(), IntegrateRequest{Repo: candidate(), Approved: true})

	if report.Status != models.StatusRegistered {
		t.Fatalf("status = %s (recommendation %q)", report.Status, report.Recommendation)
	}
	if report.Security.RiskLevel != models.RiskCritical {
		t.Errorf("risk = %s, want critical preserved in the report", report.Security.RiskLevel)
	}
}

func TestIntegrateStoredApprovalPassesGate(t *testing.T) {
	o, _ := newOrchestrator(t, &pipeProvider{files: dangerousFiles()}, Options{VCS: &pipeVCS{}})
	ctx := context.Background()

	if err := o.Approve(ctx, "taskrunner", "tester"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	report := o.Integrate(ctx, IntegrateRequest{Repo: candidate()})

	if report.Status != models.StatusRegistered {
		t.Fatalf("status = %s (recommendation %q)", report.Status, report.Recommendation)
	}
}

func TestIntegrateInstallFailureRemovesClone(t *testing.T) {
	vcs := &pipeVCS{}
	exec := &pipeExecutor{failOn: "pip install"}
	o, st := newOrchestrator(t, &pipeProvider{files: cleanFiles()}, Options{VCS: vcs, Executor: exec})
	ctx := context.Background()

	report := o.Integrate(ctx, IntegrateRequest{Repo: candidate(), Approved: true})

	if report.Status != models.StatusFailed {
		t.Fatalf("status = %s", report.Status)
	}
	if !strings.HasPrefix(report.Recommendation, "Install failed: ") {
		t.Errorf("recommendation = %q", report.Recommendation)
	}
	if vcs.cloneCalls() != 1 {
		t.Errorf("clone calls = %d, want exactly 1", vcs.cloneCalls())
	}
	if _, err := st.GetClone(ctx, "taskrunner"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("clone registry entry should be removed, got err=%v", err)
	}
	if report.Clone == nil {
		t.Error("report keeps the clone record for the audit trail")
	}
	if _, err := os.Stat(report.Clone.LocalPath); !os.IsNotExist(err) {
		t.Errorf("clone directory should be deleted, stat err=%v", err)
	}
}

func TestIntegratePanicBecomesFailedReport(t *testing.T) {
	o, _ := newOrchestrator(t, &pipeProvider{files: cleanFiles()}, Options{VCS: &pipeVCS{panics: true}})

	report := o.Integrate(context.Background(), IntegrateRequest{Repo: candidate(), Approved: true})

	if report.Status != models.StatusFailed {
		t.Fatalf("status = %s", report.Status)
	}
	if !strings.Contains(report.Recommendation, "vcs exploded") {
		t.Errorf("recommendation = %q, want panic message", report.Recommendation)
	}
}

func TestIntegrateNoRepoSupplied(t *testing.T) {
	o, _ := newOrchestrator(t, &pipeProvider{}, Options{VCS: &pipeVCS{}})

	report := o.Integrate(context.Background(), IntegrateRequest{})

	if report.Status != models.StatusFailed {
		t.Fatalf("status = %s", report.Status)
	}
	if report.Recommendation == "" {
		t.Error("failed report must carry a recommendation")
	}
}

func TestIntegrateSameNameKeepsSingleActive(t *testing.T) {
	o, st := newOrchestrator(t, &pipeProvider{files: cleanFiles()}, Options{VCS: &pipeVCS{}})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Integrate(ctx, IntegrateRequest{Repo: candidate(), Approved: true})
		}()
	}
	wg.Wait()

	active, err := st.ListReports(ctx, true)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active reports = %d, want exactly 1", len(active))
	}
	if active[0].RepoName != "taskrunner" || active[0].Status != models.StatusRegistered {
		t.Errorf("active report = %s/%s", active[0].RepoName, active[0].Status)
	}
}

func TestIntegrateFilesOverrideProvider(t *testing.T) {
	// The provider would report dangerous content; the supplied files are
	// clean and must win.
	o, _ := newOrchestrator(t, &pipeProvider{files: dangerousFiles()}, Options{VCS: &pipeVCS{}})

	report := o.Integrate(context.Background(), IntegrateRequest{
		Repo:     candidate(),
		Files:    cleanFiles(),
		Approved: true,
	})

	if report.Status != models.StatusRegistered {
		t.Fatalf("status = %s (recommendation %q)", report.Status, report.Recommendation)
	}
	if report.Security.RiskLevel != models.RiskSafe {
		t.Errorf("risk = %s, want safe from the supplied files", report.Security.RiskLevel)
	}
}

func TestIntegrateWrapAsTool(t *testing.T) {
	o, _ := newOrchestrator(t, &pipeProvider{files: cleanFiles()}, Options{VCS: &pipeVCS{}})

	report := o.Integrate(context.Background(), IntegrateRequest{
		Repo:     candidate(),
		Approved: true,
		WrapAs:   models.WrapperTool,
	})

	if report.Status != models.StatusRegistered {
		t.Fatalf("status = %s", report.Status)
	}
	if report.Wrapper.Type != models.WrapperTool || report.Wrapper.Name != "taskrunner_tool" {
		t.Errorf("wrapper = %s/%s", report.Wrapper.Type, report.Wrapper.Name)
	}
}
