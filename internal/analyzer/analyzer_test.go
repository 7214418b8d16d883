package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/models"
)

type fakeHost struct {
	root  []string
	files map[string]string
	err   error
}

func (f *fakeHost) Name() string { return "fake" }

func (f *fakeHost) SearchRepos(ctx context.Context, query string, limit int) ([]models.Repository, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHost) GetRepo(ctx context.Context, owner, name string) (*models.Repository, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHost) FileContents(ctx context.Context, fullName, path, ref string) (string, error) {
	if content, ok := f.files[path]; ok {
		return content, nil
	}
	return "", repository.ErrFileNotFound
}

func (f *fakeHost) ListDir(ctx context.Context, fullName, dir, ref string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if dir == "" {
		return f.root, nil
	}
	return nil, repository.ErrFileNotFound
}

func (f *fakeHost) LatestCommit(ctx context.Context, fullName, branch string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeHost) AuthToken() string { return "" }

func TestAnalyzePythonService(t *testing.T) {
	host := &fakeHost{
		root: []string{
			"requirements.txt", "pyproject.toml", "Dockerfile", "docker-compose.yml",
			"tests", "README.md", ".github", "main.py",
		},
		files: map[string]string{
			"requirements.txt": "fastapi>=0.100\npsycopg2-binary==2.9.9\nredis\ncelery==5.3\n# comment\n-r extra.txt\n",
			"pyproject.toml": `[tool.poetry]
name = "svc"

[tool.poetry.dependencies]
python = "^3.10"
fastapi = "^0.100"
uvicorn = {version = "^0.23", extras = ["standard"]}
`,
			"main.py": `from fastapi import FastAPI
app = FastAPI()

@app.get("/health")
def health(): ...

@app.post("/tasks")
def create(): ...

@app.get("/health")
def dup(): ...
`,
		},
	}
	a := New(host, policy.Default())
	repo := &models.Repository{
		Name: "svc", FullName: "acme/svc", DefaultBranch: "main",
		Language: "Python", Stars: 1500, ActivityScore: 0.8,
	}

	got, err := a.Analyze(context.Background(), repo)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	wantMethods := []models.InstallMethod{models.MethodPip, models.MethodPoetry, models.MethodDocker}
	if len(got.InstallMethods) != len(wantMethods) {
		t.Fatalf("install methods = %v, want %v", got.InstallMethods, wantMethods)
	}
	for i, m := range wantMethods {
		if got.InstallMethods[i] != m {
			t.Fatalf("install methods = %v, want %v", got.InstallMethods, wantMethods)
		}
	}
	if models.PreferredMethod(got.InstallMethods) != models.MethodPip {
		t.Fatalf("preferred method = %s, want pip", models.PreferredMethod(got.InstallMethods))
	}

	// fastapi appears in both manifests; the requirements.txt entry wins.
	var fastapi *models.Dependency
	for i := range got.Dependencies {
		if got.Dependencies[i].Name == "fastapi" {
			if fastapi != nil {
				t.Fatal("fastapi recorded twice")
			}
			fastapi = &got.Dependencies[i]
		}
	}
	if fastapi == nil || fastapi.Version != ">=0.100" {
		t.Fatalf("fastapi dep = %+v, want version >=0.100", fastapi)
	}

	if !contains(got.Frameworks, "fastapi") {
		t.Fatalf("frameworks = %v, want fastapi", got.Frameworks)
	}
	if !contains(got.Databases, "postgresql") || !contains(got.Databases, "redis") {
		t.Fatalf("databases = %v, want postgresql and redis", got.Databases)
	}
	if !contains(got.Tools, "docker") || !contains(got.Tools, "docker-compose") || !contains(got.Tools, "celery") {
		t.Fatalf("tools = %v", got.Tools)
	}
	if !contains(got.Languages, "python") {
		t.Fatalf("languages = %v, want python", got.Languages)
	}
	if got.RuntimeVersion != "^3.10" {
		t.Fatalf("runtime = %q, want ^3.10", got.RuntimeVersion)
	}

	if !got.HasTests || !got.HasDocs || !got.HasCI || !got.HasAPI {
		t.Fatalf("flags = tests:%v docs:%v ci:%v api:%v, want all true",
			got.HasTests, got.HasDocs, got.HasCI, got.HasAPI)
	}
	if len(got.APIEndpoints) != 2 {
		t.Fatalf("endpoints = %v, want /health and /tasks once each", got.APIEndpoints)
	}

	// tests + docs + ci + full stars tier + 0.8 activity + lean deps.
	if got.QualityScore < 0.9 {
		t.Fatalf("quality = %v, want >= 0.9", got.QualityScore)
	}
	if got.QualityGrade != models.GradeExcellent {
		t.Fatalf("grade = %s, want excellent", got.QualityGrade)
	}
}

func TestAnalyzeNodeProject(t *testing.T) {
	host := &fakeHost{
		root: []string{"package.json", "index.js"},
		files: map[string]string{
			"package.json": `{
  "dependencies": {"express": "^4.18.0", "mongoose": "^7.0.0"},
  "devDependencies": {"jest": "^29.0.0"},
  "engines": {"node": ">=18"},
  "scripts": {"test": "jest"}
}`,
			"index.js": "const app = require('express')();\napp.get('/items', handler);\n",
		},
	}
	a := New(host, policy.Default())
	repo := &models.Repository{Name: "shop", FullName: "acme/shop", DefaultBranch: "main", Language: "JavaScript", Stars: 50}

	got, err := a.Analyze(context.Background(), repo)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(got.InstallMethods) != 1 || got.InstallMethods[0] != models.MethodNpm {
		t.Fatalf("install methods = %v, want [npm]", got.InstallMethods)
	}
	if !contains(got.Frameworks, "express") {
		t.Fatalf("frameworks = %v, want express", got.Frameworks)
	}
	if !contains(got.Databases, "mongodb") {
		t.Fatalf("databases = %v, want mongodb", got.Databases)
	}
	if got.RuntimeVersion != ">=18" {
		t.Fatalf("runtime = %q, want >=18", got.RuntimeVersion)
	}
	if !got.HasTests {
		t.Fatal("test script not detected")
	}
	if !got.HasAPI || len(got.APIEndpoints) != 1 || got.APIEndpoints[0] != "/items" {
		t.Fatalf("api = %v %v", got.HasAPI, got.APIEndpoints)
	}

	// jest is a dev dependency and must not be required.
	for _, d := range got.Dependencies {
		if d.Name == "jest" && d.Required {
			t.Fatal("dev dependency marked required")
		}
	}
}

func TestAnalyzeBareRepo(t *testing.T) {
	host := &fakeHost{root: []string{"LICENSE", "notes.txt"}}
	a := New(host, policy.Default())
	repo := &models.Repository{Name: "bare", FullName: "acme/bare", DefaultBranch: "main"}

	got, err := a.Analyze(context.Background(), repo)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(got.InstallMethods) != 0 {
		t.Fatalf("install methods = %v, want none", got.InstallMethods)
	}
	if models.PreferredMethod(got.InstallMethods) != models.MethodManual {
		t.Fatal("bare repo must fall back to manual install")
	}
	if got.HasTests || got.HasDocs || got.HasCI || got.HasAPI {
		t.Fatalf("flags unexpectedly set: %+v", got)
	}
	if got.QualityGrade != models.GradePoor {
		t.Fatalf("grade = %s, want poor", got.QualityGrade)
	}
}

func TestAnalyzeListFailure(t *testing.T) {
	host := &fakeHost{err: errors.New("api down")}
	a := New(host, policy.Default())
	repo := &models.Repository{Name: "x", FullName: "acme/x", DefaultBranch: "main"}

	if _, err := a.Analyze(context.Background(), repo); err == nil {
		t.Fatal("analyze with unlistable repo = nil error")
	}
}

func TestSplitRequirement(t *testing.T) {
	cases := []struct {
		raw, name, version string
	}{
		{"fastapi>=0.100.0", "fastapi", ">=0.100.0"},
		{"uvicorn[standard]==0.23.1", "uvicorn", "==0.23.1"},
		{"requests", "requests", ""},
		{"numpy~=1.24", "numpy", "~=1.24"},
		{"tomli; python_version < '3.11'", "tomli", ""},
		{"  flask == 2.0  ", "flask", "== 2.0"},
	}
	for _, tc := range cases {
		name, version := splitRequirement(tc.raw)
		if name != tc.name || version != tc.version {
			t.Errorf("splitRequirement(%q) = (%q, %q), want (%q, %q)", tc.raw, name, version, tc.name, tc.version)
		}
	}
}

func TestParseGoMod(t *testing.T) {
	content := `module example.com/svc

go 1.22

require (
	github.com/spf13/cobra v1.8.0
	golang.org/x/sys v0.1.0 // indirect
)

require github.com/pkg/errors v0.9.1
`
	deps, runtime := parseGoMod(content)
	if runtime != "1.22" {
		t.Fatalf("runtime = %q, want 1.22", runtime)
	}
	if len(deps) != 3 {
		t.Fatalf("deps = %d, want 3", len(deps))
	}
	if deps[0].Name != "github.com/spf13/cobra" || !deps[0].Required {
		t.Fatalf("deps[0] = %+v", deps[0])
	}
	if deps[1].Required {
		t.Fatalf("indirect dep marked required: %+v", deps[1])
	}
}

func TestParseSetupPy(t *testing.T) {
	content := `from setuptools import setup
setup(
    name="thing",
    python_requires=">=3.9",
    install_requires=["click>=8.0", "rich"],
)
`
	deps, runtime := parseSetupPy(content)
	if runtime != ">=3.9" {
		t.Fatalf("runtime = %q, want >=3.9", runtime)
	}
	if len(deps) != 2 || deps[0].Name != "click" || deps[1].Name != "rich" {
		t.Fatalf("deps = %+v", deps)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
