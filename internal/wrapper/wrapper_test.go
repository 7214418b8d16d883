package wrapper

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/database"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(db)
}

type fakeRegistry struct {
	registered   []string
	unregistered []string
	err          error
}

func (f *fakeRegistry) RegisterCapability(ctx context.Context, w *models.WrapperConfig) error {
	f.registered = append(f.registered, w.Name)
	return f.err
}

func (f *fakeRegistry) UnregisterCapability(ctx context.Context, name string) error {
	f.unregistered = append(f.unregistered, name)
	return f.err
}

func TestWrapAgentDefaults(t *testing.T) {
	w := New(newTestStore(t), nil)
	ctx := context.Background()

	cfg, err := w.WrapAgent(ctx, "taskrunner", "main.py", &models.Analysis{RepoName: "taskrunner"})
	if err != nil {
		t.Fatalf("WrapAgent: %v", err)
	}
	if cfg.Name != "taskrunner_agent" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Type != models.WrapperAgent {
		t.Errorf("type = %q", cfg.Type)
	}
	if cfg.Registered {
		t.Error("new wrapper must start unregistered")
	}
	if cfg.InputMapping["task"] != "string" || cfg.InputMapping["parameters"] != "object" {
		t.Errorf("input mapping = %v", cfg.InputMapping)
	}
	if _, ok := cfg.InputMapping["endpoint"]; ok {
		t.Error("non-API repo should not get endpoint fields")
	}
	if cfg.OutputMapping["success"] != "bool" || cfg.OutputMapping["error"] != "string" {
		t.Errorf("output mapping = %v", cfg.OutputMapping)
	}

	got, err := w.GetWrapper(ctx, "taskrunner_agent")
	if err != nil {
		t.Fatalf("GetWrapper: %v", err)
	}
	if got.RepoName != "taskrunner" || got.EntryPoint != "main.py" {
		t.Errorf("stored wrapper = %+v", got)
	}
}

func TestWrapToolWidensForAPI(t *testing.T) {
	w := New(newTestStore(t), nil)

	cfg, err := w.WrapTool(context.Background(), "webhooks", "server.py", &models.Analysis{RepoName: "webhooks", HasAPI: true})
	if err != nil {
		t.Fatalf("WrapTool: %v", err)
	}
	if cfg.Name != "webhooks_tool" {
		t.Errorf("name = %q", cfg.Name)
	}
	for _, field := range []string{"endpoint", "method", "body"} {
		if cfg.InputMapping[field] == "" {
			t.Errorf("missing API input field %q", field)
		}
	}
	if cfg.OutputMapping["status_code"] != "int" || cfg.OutputMapping["response_body"] != "object" {
		t.Errorf("output mapping = %v", cfg.OutputMapping)
	}
}

func TestWrapCustomName(t *testing.T) {
	w := New(newTestStore(t), nil)

	cfg, err := w.Wrap(context.Background(), models.WrapperAgent, "orchestra", "taskrunner", "main.py", nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if cfg.Name != "orchestra" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	registry := &fakeRegistry{}
	w := New(newTestStore(t), registry)
	ctx := context.Background()

	if _, err := w.WrapAgent(ctx, "taskrunner", "main.py", nil); err != nil {
		t.Fatalf("WrapAgent: %v", err)
	}
	if err := w.Register(ctx, "taskrunner_agent"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := w.GetWrapper(ctx, "taskrunner_agent")
	if err != nil {
		t.Fatalf("GetWrapper: %v", err)
	}
	if !got.Registered {
		t.Error("wrapper should be registered")
	}
	if len(registry.registered) != 1 || registry.registered[0] != "taskrunner_agent" {
		t.Errorf("platform notifications = %v", registry.registered)
	}

	ok, err := w.Unregister(ctx, "taskrunner_agent")
	if err != nil || !ok {
		t.Fatalf("Unregister = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = w.Unregister(ctx, "taskrunner_agent")
	if err != nil || ok {
		t.Fatalf("second Unregister = (%v, %v), want (false, nil)", ok, err)
	}
	if len(registry.unregistered) != 1 {
		t.Errorf("platform unregistrations = %v", registry.unregistered)
	}
}

func TestRemoveDeletesDescriptor(t *testing.T) {
	registry := &fakeRegistry{}
	w := New(newTestStore(t), registry)
	ctx := context.Background()

	if _, err := w.WrapAgent(ctx, "taskrunner", "main.py", nil); err != nil {
		t.Fatalf("WrapAgent: %v", err)
	}
	if err := w.Register(ctx, "taskrunner_agent"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ok, err := w.Remove(ctx, "taskrunner_agent")
	if err != nil || !ok {
		t.Fatalf("Remove = (%v, %v), want (true, nil)", ok, err)
	}
	if len(registry.unregistered) != 1 {
		t.Errorf("platform unregistrations = %v", registry.unregistered)
	}
	if _, err := w.GetWrapper(ctx, "taskrunner_agent"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("descriptor should be gone, got err=%v", err)
	}

	ok, err = w.Remove(ctx, "taskrunner_agent")
	if err != nil || ok {
		t.Fatalf("second Remove = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestRegisterUnknownWrapper(t *testing.T) {
	w := New(newTestStore(t), nil)

	if err := w.Register(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for unknown capability")
	}
}

func TestRegisterSurvivesPlatformOutage(t *testing.T) {
	registry := &fakeRegistry{err: errors.New("connection refused")}
	w := New(newTestStore(t), registry)
	ctx := context.Background()

	if _, err := w.WrapAgent(ctx, "taskrunner", "main.py", nil); err != nil {
		t.Fatalf("WrapAgent: %v", err)
	}
	if err := w.Register(ctx, "taskrunner_agent"); err != nil {
		t.Fatalf("Register should tolerate a platform outage, got %v", err)
	}

	got, _ := w.GetWrapper(ctx, "taskrunner_agent")
	if got == nil || !got.Registered {
		t.Error("local registration flag should be set despite the outage")
	}
}

func TestListWrappersRegisteredOnly(t *testing.T) {
	w := New(newTestStore(t), nil)
	ctx := context.Background()

	if _, err := w.WrapAgent(ctx, "alpha", "main.py", nil); err != nil {
		t.Fatalf("wrap alpha: %v", err)
	}
	if _, err := w.WrapTool(ctx, "beta", "cli.py", nil); err != nil {
		t.Fatalf("wrap beta: %v", err)
	}
	if err := w.Register(ctx, "alpha_agent"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	all, err := w.ListWrappers(ctx, false)
	if err != nil {
		t.Fatalf("ListWrappers: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	registered, err := w.ListWrappers(ctx, true)
	if err != nil {
		t.Fatalf("ListWrappers(registered): %v", err)
	}
	if len(registered) != 1 || registered[0].Name != "alpha_agent" {
		t.Errorf("registered = %+v", registered)
	}
}

func TestGenerateAgentCode(t *testing.T) {
	cfg := &models.WrapperConfig{
		Type:       models.WrapperAgent,
		Name:       "taskrunner_agent",
		RepoName:   "taskrunner",
		EntryPoint: "main.py",
		InputMapping: map[string]string{
			"task":       "string",
			"parameters": "object",
		},
		OutputMapping: map[string]string{
			"result":  "object",
			"success": "bool",
		},
	}

	code, err := GenerateAgentCode(cfg)
	if err != nil {
		t.Fatalf("GenerateAgentCode: %v", err)
	}

	for _, want := range []string{
		"package capabilities",
		"type TaskrunnerAgent struct",
		"func NewTaskrunnerAgent()",
		`"main.py"`,
		`"taskrunner_agent"`,
		"task (string)",
		"success (bool)",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q", want)
		}
	}

	first := strings.Index(code, "parameters (object)")
	second := strings.Index(code, "task (string)")
	if first == -1 || second == -1 || first > second {
		t.Error("input fields should be documented in sorted order")
	}
}
