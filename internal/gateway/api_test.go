package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CosmoTheDev/repogate/internal/clone"
	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/database"
	"github.com/CosmoTheDev/repogate/internal/pipeline"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// gwProvider is an in-memory hosting platform for handler tests.
type gwProvider struct {
	repos []models.Repository
	files map[string]string
	head  string
}

func (p *gwProvider) Name() string      { return "fake" }
func (p *gwProvider) AuthToken() string { return "" }

func (p *gwProvider) SearchRepos(ctx context.Context, query string, limit int) ([]models.Repository, error) {
	if limit > 0 && limit < len(p.repos) {
		return p.repos[:limit], nil
	}
	return p.repos, nil
}

func (p *gwProvider) GetRepo(ctx context.Context, owner, name string) (*models.Repository, error) {
	full := owner + "/" + name
	for i := range p.repos {
		if p.repos[i].FullName == full {
			return &p.repos[i], nil
		}
	}
	return nil, fmt.Errorf("repo %s not found", full)
}

func (p *gwProvider) FileContents(ctx context.Context, fullName, path, ref string) (string, error) {
	if content, ok := p.files[path]; ok {
		return content, nil
	}
	return "", repository.ErrFileNotFound
}

func (p *gwProvider) ListDir(ctx context.Context, fullName, dir, ref string) ([]string, error) {
	if dir != "" {
		return nil, repository.ErrFileNotFound
	}
	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	return names, nil
}

func (p *gwProvider) LatestCommit(ctx context.Context, fullName, branch string) (string, error) {
	if p.head == "" {
		return "", errors.New("no head configured")
	}
	return p.head, nil
}

// gwVCS fakes git clones with a canned branch and commit.
type gwVCS struct {
	mu    sync.Mutex
	calls int
}

func (v *gwVCS) Clone(ctx context.Context, url, dest, token string, opts clone.Options) (string, string, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", "", err
	}
	return "main", "feedbeefcafe0123", nil
}

type gwNoAdvisories struct{}

func (gwNoAdvisories) CheckDependencies(ctx context.Context, ecosystem string, deps []models.Dependency) []models.SecurityFinding {
	return nil
}

func testRepo() models.Repository {
	return models.Repository{
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

func testFiles() map[string]string {
	return map[string]string{
		"requirements.txt": "fastapi==0.100.0\nredis>=4.0\n",
		"main.py":          "import json\n\nprint(json.dumps({\"ok\": True}))\n",
		"README.md":        "# Taskrunner\n\n## Usage\n\nRun main.py\n",
	}
}

func newTestGateway(t *testing.T, prov repository.Provider) (*Gateway, *store.Store) {
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

	gw := New(cfg, st, policy.Default(), prov, pipeline.Options{
		VCS:        &gwVCS{},
		Advisories: gwNoAdvisories{},
	})
	return gw, st
}

func doRequest(t *testing.T, gw *Gateway, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	rr := httptest.NewRecorder()
	buildHandler(gw).ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHealthAndRoot(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{})

	rr := doRequest(t, gw, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health = %d", rr.Code)
	}
	var health map[string]string
	decodeJSON(t, rr, &health)
	if health["status"] != "ok" {
		t.Errorf("health body = %v", health)
	}

	rr = doRequest(t, gw, "GET", "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("root = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "endpoints") {
		t.Errorf("root body = %s", rr.Body.String())
	}
}

func TestStatusAndHeartbeat(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{})

	rr := doRequest(t, gw, "GET", "/api/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var status GatewayStatus
	decodeJSON(t, rr, &status)
	if status.Running {
		t.Errorf("running before Start")
	}
	if status.Workers != 2 {
		t.Errorf("workers = %d", status.Workers)
	}

	rr = doRequest(t, gw, "GET", "/api/heartbeat", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("heartbeat = %d", rr.Code)
	}
	var hb HeartbeatStatus
	decodeJSON(t, rr, &hb)
	if hb.State != "idle" {
		t.Errorf("heartbeat state = %q", hb.State)
	}
}

func TestIntegrateSyncAndFetch(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{repos: []models.Repository{testRepo()}, files: testFiles()})

	rr := doRequest(t, gw, "POST", "/api/integrations?wait=1", map[string]any{
		"full_name": "acme/taskrunner",
		"approved":  true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("integrate = %d: %s", rr.Code, rr.Body.String())
	}
	var report models.IntegrationReport
	decodeJSON(t, rr, &report)
	if report.Status != models.StatusRegistered {
		t.Fatalf("status = %s (recommendation %q)", report.Status, report.Recommendation)
	}

	rr = doRequest(t, gw, "GET", "/api/integrations/taskrunner", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get integration = %d", rr.Code)
	}
	decodeJSON(t, rr, &report)
	if report.RepoName != "taskrunner" || report.Status != models.StatusRegistered {
		t.Errorf("fetched report = %s/%s", report.RepoName, report.Status)
	}

	rr = doRequest(t, gw, "GET", "/api/integrations", nil)
	var list struct {
		Count        int                        `json:"count"`
		Integrations []models.IntegrationReport `json:"integrations"`
	}
	decodeJSON(t, rr, &list)
	if list.Count != 1 {
		t.Errorf("list count = %d", list.Count)
	}

	rr = doRequest(t, gw, "GET", "/api/integrations/taskrunner/events", nil)
	var events struct {
		Count  int           `json:"count"`
		Events []store.Event `json:"events"`
	}
	decodeJSON(t, rr, &events)
	if events.Count != 7 {
		t.Errorf("events = %d, want full audit trail", events.Count)
	}
	if events.Count > 0 && events.Events[0].Status != "discovered" {
		t.Errorf("first event = %s", events.Events[0].Status)
	}

	rr = doRequest(t, gw, "GET", "/api/stats", nil)
	var stats models.IntegrationStats
	decodeJSON(t, rr, &stats)
	if stats.TotalIntegrations != 1 || stats.Successful != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestIntegrateResolutionErrors(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{repos: []models.Repository{testRepo()}, files: testFiles()})

	rr := doRequest(t, gw, "POST", "/api/integrations", map[string]any{"full_name": "nodash"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad full_name = %d", rr.Code)
	}

	rr = doRequest(t, gw, "POST", "/api/integrations", map[string]any{"full_name": "acme/ghost"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown repo = %d", rr.Code)
	}

	rr = doRequest(t, gw, "POST", "/api/integrations", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty body = %d", rr.Code)
	}

	rr = doRequest(t, gw, "GET", "/api/integrations/ghost", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get unknown integration = %d", rr.Code)
	}
}

func TestIntegrateAsync(t *testing.T) {
	gw, st := newTestGateway(t, &gwProvider{repos: []models.Repository{testRepo()}, files: testFiles()})

	rr := doRequest(t, gw, "POST", "/api/integrations", map[string]any{
		"full_name": "acme/taskrunner",
		"approved":  true,
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("async integrate = %d: %s", rr.Code, rr.Body.String())
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		report, err := st.GetReport(context.Background(), "taskrunner")
		if err == nil && report.Status == models.StatusRegistered {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("async integration did not register (last err %v)", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRollbackEndpoint(t *testing.T) {
	gw, st := newTestGateway(t, &gwProvider{repos: []models.Repository{testRepo()}, files: testFiles()})

	rr := doRequest(t, gw, "POST", "/api/integrations?wait=1", map[string]any{
		"full_name": "acme/taskrunner",
		"approved":  true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("setup integrate = %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, gw, "POST", "/api/integrations/taskrunner/rollback", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("rollback = %d: %s", rr.Code, rr.Body.String())
	}
	var rb models.RollbackReport
	decodeJSON(t, rr, &rb)
	if !rb.Success || len(rb.Steps) != 4 {
		t.Errorf("rollback = %+v", rb)
	}
	if _, err := st.GetClone(context.Background(), "taskrunner"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("clone record survived rollback: %v", err)
	}

	rr = doRequest(t, gw, "DELETE", "/api/integrations/ghost", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("rollback unknown = %d", rr.Code)
	}
}

func TestApprovalEndpoints(t *testing.T) {
	gw, st := newTestGateway(t, &gwProvider{})

	rr := doRequest(t, gw, "POST", "/api/integrations/sketchy/approve", map[string]any{
		"approved_by": "alice",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("approve = %d: %s", rr.Code, rr.Body.String())
	}
	ok, err := st.IsApproved(context.Background(), "sketchy")
	if err != nil || !ok {
		t.Fatalf("IsApproved = %v, %v", ok, err)
	}

	rr = doRequest(t, gw, "DELETE", "/api/integrations/sketchy/approve", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("revoke = %d", rr.Code)
	}
	rr = doRequest(t, gw, "DELETE", "/api/integrations/sketchy/approve", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second revoke = %d", rr.Code)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{repos: []models.Repository{testRepo()}, files: testFiles()})

	rr := doRequest(t, gw, "POST", "/api/evaluate", map[string]any{"full_name": "acme/taskrunner"})
	if rr.Code != http.StatusOK {
		t.Fatalf("evaluate = %d: %s", rr.Code, rr.Body.String())
	}
	var ev pipeline.Evaluation
	decodeJSON(t, rr, &ev)
	if !ev.Recommended {
		t.Errorf("evaluation = %+v, want recommended", ev)
	}
	if ev.Security == nil || !ev.Security.SafeToInstall {
		t.Errorf("security = %+v", ev.Security)
	}

	// Inline dangerous files push the verdict to not recommended.
	rr = doRequest(t, gw, "POST", "/api/evaluate", map[string]any{
		"full_name": "acme/taskrunner",
		"files": map[string]string{
			"requirements.txt": "fastapi==0.100.0\n",
			"main.py":          "def run(data):\n    return eval(data)\n",
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("evaluate dangerous = %d", rr.Code)
	}
	decodeJSON(t, rr, &ev)
	if ev.Recommended {
		t.Errorf("dangerous evaluation still recommended")
	}
}

func TestSweepPauseResume(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{})

	rr := doRequest(t, gw, "POST", "/api/pause", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pause = %d", rr.Code)
	}
	rr = doRequest(t, gw, "POST", "/api/sweep", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("sweep while paused = %d", rr.Code)
	}

	rr = doRequest(t, gw, "POST", "/api/resume", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("resume = %d", rr.Code)
	}
	rr = doRequest(t, gw, "POST", "/api/sweep", nil)
	if rr.Code != http.StatusAccepted {
		t.Errorf("sweep = %d", rr.Code)
	}
	if gw.currentStatus().LastTriggerAt == "" {
		t.Errorf("last trigger not recorded")
	}
}

func TestDiscoverEndpoint(t *testing.T) {
	second := testRepo()
	second.Name = "othertool"
	second.FullName = "acme/othertool"
	second.Stars = 50
	gw, _ := newTestGateway(t, &gwProvider{
		repos: []models.Repository{testRepo(), second},
		files: testFiles(),
	})

	rr := doRequest(t, gw, "GET", "/api/discover?query=task+runner", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("discover = %d: %s", rr.Code, rr.Body.String())
	}
	var res struct {
		Count int                 `json:"count"`
		Repos []models.Repository `json:"repos"`
	}
	decodeJSON(t, rr, &res)
	if res.Count != 2 {
		t.Fatalf("count = %d", res.Count)
	}
	if res.Repos[0].Name != "taskrunner" {
		t.Errorf("first ranked = %s", res.Repos[0].Name)
	}

	rr = doRequest(t, gw, "GET", "/api/discover?query=task&limit=1", nil)
	decodeJSON(t, rr, &res)
	if res.Count != 1 {
		t.Errorf("limited count = %d", res.Count)
	}

	rr = doRequest(t, gw, "GET", "/api/discover?limit=banana", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", rr.Code)
	}
}

func TestUpdatesEndpoints(t *testing.T) {
	prov := &gwProvider{repos: []models.Repository{testRepo()}, files: testFiles()}
	gw, _ := newTestGateway(t, prov)

	rr := doRequest(t, gw, "POST", "/api/integrations?wait=1", map[string]any{
		"full_name": "acme/taskrunner",
		"approved":  true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("setup integrate = %d", rr.Code)
	}

	prov.head = "aaaabbbbccccdddd"
	rr = doRequest(t, gw, "GET", "/api/updates", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("updates = %d: %s", rr.Code, rr.Body.String())
	}
	var batch struct {
		Checked int                  `json:"checked"`
		Updates int                  `json:"updates"`
		Checks  []models.UpdateCheck `json:"checks"`
	}
	decodeJSON(t, rr, &batch)
	if batch.Checked != 1 || batch.Updates != 1 {
		t.Errorf("batch = %+v", batch)
	}

	rr = doRequest(t, gw, "GET", "/api/updates/taskrunner", nil)
	var check models.UpdateCheck
	decodeJSON(t, rr, &check)
	if !check.HasUpdate || check.LatestCommit != "aaaabbbbccccdddd" {
		t.Errorf("check = %+v", check)
	}

	rr = doRequest(t, gw, "GET", "/api/updates/ghost", nil)
	var unknown models.UpdateCheck
	decodeJSON(t, rr, &unknown)
	if unknown.HasUpdate || !strings.Contains(unknown.Reason, "no integration") {
		t.Errorf("unknown = %+v", unknown)
	}
}

func TestSchedulesCRUD(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{})

	rr := doRequest(t, gw, "POST", "/api/schedules", map[string]any{
		"name": "nightly", "expr": "@daily",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rr.Code, rr.Body.String())
	}
	var created store.Schedule
	decodeJSON(t, rr, &created)
	if created.ID == 0 || created.Kind != store.ScheduleDiscover || !created.Enabled {
		t.Errorf("created = %+v", created)
	}

	rr = doRequest(t, gw, "POST", "/api/schedules", map[string]any{
		"name": "bad", "expr": "not a cron",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid expr = %d", rr.Code)
	}
	rr = doRequest(t, gw, "POST", "/api/schedules", map[string]any{
		"name": "sweep", "expr": "@hourly", "kind": "integrate",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("integrate without query = %d", rr.Code)
	}
	rr = doRequest(t, gw, "POST", "/api/schedules", map[string]any{
		"name": "odd", "expr": "@hourly", "kind": "banana",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown kind = %d", rr.Code)
	}

	rr = doRequest(t, gw, "GET", "/api/schedules", nil)
	var list struct {
		Count     int              `json:"count"`
		Schedules []store.Schedule `json:"schedules"`
	}
	decodeJSON(t, rr, &list)
	if list.Count != 1 {
		t.Fatalf("count = %d", list.Count)
	}

	rr = doRequest(t, gw, "PUT", fmt.Sprintf("/api/schedules/%d", created.ID), map[string]any{
		"expr": "@every 6h", "kind": "integrate", "query": "topic:automation",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rr.Code, rr.Body.String())
	}
	var updated store.Schedule
	decodeJSON(t, rr, &updated)
	if updated.Expr != "@every 6h" || updated.Kind != store.ScheduleIntegrate || updated.Query != "topic:automation" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Name != "nightly" {
		t.Errorf("partial update clobbered name: %q", updated.Name)
	}

	rr = doRequest(t, gw, "PUT", "/api/schedules/9999", map[string]any{"expr": "@daily"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("update unknown = %d", rr.Code)
	}

	rr = doRequest(t, gw, "DELETE", fmt.Sprintf("/api/schedules/%d", created.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete = %d", rr.Code)
	}
	rr = doRequest(t, gw, "DELETE", fmt.Sprintf("/api/schedules/%d", created.ID), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", rr.Code)
	}
}

func TestScheduleTriggerNow(t *testing.T) {
	gw, st := newTestGateway(t, &gwProvider{})

	rr := doRequest(t, gw, "POST", "/api/schedules", map[string]any{
		"name": "update-check", "expr": "@hourly", "kind": "updates",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rr.Code, rr.Body.String())
	}
	var created store.Schedule
	decodeJSON(t, rr, &created)
	if created.LastRunAt != nil {
		t.Fatalf("fresh schedule has last_run_at")
	}

	rr = doRequest(t, gw, "POST", fmt.Sprintf("/api/schedules/%d/trigger", created.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("trigger = %d: %s", rr.Code, rr.Body.String())
	}
	after, err := st.GetSchedule(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if after.LastRunAt == nil || *after.LastRunAt == "" {
		t.Errorf("last_run_at not recorded")
	}

	rr = doRequest(t, gw, "POST", "/api/schedules/999/trigger", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("trigger unknown = %d", rr.Code)
	}
}

func TestConfigEndpoints(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{})
	gw.cfg.Platform.Token = "sekret"
	gw.cfg.Git.GitHub = []config.GitHubConfig{{Token: "gh-sekret"}}
	path := filepath.Join(t.TempDir(), "config.json")
	gw.SetConfigPath(path)

	rr := doRequest(t, gw, "GET", "/api/config", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get config = %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "sekret") {
		t.Fatalf("credentials leaked: %s", body)
	}
	if !strings.Contains(body, maskValue) {
		t.Errorf("mask missing: %s", body)
	}

	rr = doRequest(t, gw, "PUT", "/api/config", map[string]any{
		"gateway":  map[string]any{"port": 7099},
		"platform": map[string]any{"token": maskValue, "url": "https://platform.example"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("put config = %d: %s", rr.Code, rr.Body.String())
	}
	if gw.cfg.Gateway.Port != 7099 {
		t.Errorf("port = %d", gw.cfg.Gateway.Port)
	}
	if gw.cfg.Platform.Token != "sekret" {
		t.Errorf("masked token overwrote secret: %q", gw.cfg.Platform.Token)
	}
	if gw.cfg.Platform.URL != "https://platform.example" {
		t.Errorf("url = %q", gw.cfg.Platform.URL)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config not saved: %v", err)
	}
}

func TestEventsStream(t *testing.T) {
	gw, _ := newTestGateway(t, &gwProvider{})
	srv := httptest.NewServer(buildHandler(gw))
	defer srv.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	readEvent := func() SSEEvent {
		t.Helper()
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev SSEEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatalf("bad frame %q: %v", line, err)
			}
			return ev
		}
		t.Fatalf("stream ended early: %v", scanner.Err())
		return SSEEvent{}
	}

	if ev := readEvent(); ev.Type != "connected" {
		t.Fatalf("first event = %q", ev.Type)
	}

	gw.broadcaster.send(SSEEvent{Type: "gateway.test", Payload: map[string]string{"ping": "pong"}})
	if ev := readEvent(); ev.Type != "gateway.test" {
		t.Errorf("second event = %q", ev.Type)
	}
}
