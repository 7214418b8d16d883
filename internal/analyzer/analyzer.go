// Package analyzer builds the technical profile of a candidate repository
// from its manifests: languages, frameworks, databases, dependencies,
// install methods and a quality score. It reads everything through the
// hosting provider API, before any code reaches the local disk.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/models"
)

// frameworkMarkers maps a framework name to the dependency substrings that
// identify it.
var frameworkMarkers = map[string][]string{
	"fastapi":    {"fastapi"},
	"django":     {"django"},
	"flask":      {"flask"},
	"express":    {"express"},
	"react":      {"react"},
	"pytorch":    {"torch"},
	"tensorflow": {"tensorflow"},
	"langchain":  {"langchain"},
	"sqlalchemy": {"sqlalchemy"},
}

var databaseMarkers = map[string][]string{
	"postgresql":    {"psycopg", "asyncpg", "pg8000", "postgres"},
	"mysql":         {"pymysql", "mysqlclient", "mysql"},
	"mongodb":       {"pymongo", "motor", "mongoose", "mongodb"},
	"redis":         {"redis"},
	"sqlite":        {"sqlite"},
	"qdrant":        {"qdrant"},
	"elasticsearch": {"elasticsearch"},
}

var toolDepMarkers = map[string][]string{
	"celery": {"celery"},
}

// endpointRe matches route registrations in the FastAPI, Flask and Express
// styles.
var endpointRe = regexp.MustCompile(`@?(?:app|router)\.(?:get|post|put|delete|patch|route)\(\s*["']([^"']+)["']`)

// entryFiles are the files probed for API route registrations.
var entryFiles = []string{"main.py", "app.py", "api.py", "server.py", "routes.py", "index.js", "server.js", "app.js"}

// Analyzer derives a repository's technical profile.
type Analyzer struct {
	provider repository.Provider
	weights  policy.QualityWeights
}

func New(provider repository.Provider, pol *policy.Policy) *Analyzer {
	return &Analyzer{provider: provider, weights: pol.Weights.Quality}
}

// Analyze inspects repo and returns its profile. It fails only when the
// repository tree cannot be listed at all; individual unreadable manifests
// degrade the result instead of aborting it.
func (a *Analyzer) Analyze(ctx context.Context, repo *models.Repository) (*models.Analysis, error) {
	entries, err := a.provider.ListDir(ctx, repo.FullName, "", repo.DefaultBranch)
	if err != nil {
		return nil, fmt.Errorf("analyzer: listing %s: %w", repo.FullName, err)
	}
	root := make(map[string]string, len(entries)) // lowercase → original
	for _, e := range entries {
		root[strings.ToLower(e)] = e
	}

	analysis := &models.Analysis{
		RepoName:   repo.Name,
		AnalyzedAt: time.Now().UTC(),
	}

	var methods []models.InstallMethod
	var runtime string
	seen := make(map[string]bool)
	addDeps := func(deps []models.Dependency) {
		for _, d := range deps {
			key := strings.ToLower(d.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			analysis.Dependencies = append(analysis.Dependencies, d)
		}
	}

	if content, ok := a.fetch(ctx, repo, root, fileRequirements); ok {
		addDeps(parseRequirements(content))
		methods = append(methods, models.MethodPip)
	}
	if content, ok := a.fetch(ctx, repo, root, filePyproject); ok {
		deps, rt, poetry := parsePyproject(content)
		addDeps(deps)
		if rt != "" {
			runtime = rt
		}
		if poetry {
			methods = append(methods, models.MethodPoetry)
		}
	}
	if content, ok := a.fetch(ctx, repo, root, fileSetupPy); ok {
		deps, rt := parseSetupPy(content)
		addDeps(deps)
		if runtime == "" && rt != "" {
			runtime = rt
		}
		methods = append(methods, models.MethodSetupPy)
	}
	hasTestScript := false
	if content, ok := a.fetch(ctx, repo, root, filePackageJSON); ok {
		deps, rt, testScript := parsePackageJSON(content)
		addDeps(deps)
		hasTestScript = testScript
		if runtime == "" && rt != "" {
			runtime = rt
		}
		methods = append(methods, models.MethodNpm)
	}
	if _, ok := root[strings.ToLower(fileDockerfile)]; ok {
		methods = append(methods, models.MethodDocker)
	}
	if _, ok := root[strings.ToLower(fileMakefile)]; ok {
		methods = append(methods, models.MethodMake)
	}
	if content, ok := a.fetch(ctx, repo, root, fileCargo); ok {
		addDeps(parseCargo(content))
		methods = append(methods, models.MethodCargo)
	}
	if content, ok := a.fetch(ctx, repo, root, fileGoMod); ok {
		deps, rt := parseGoMod(content)
		addDeps(deps)
		if runtime == "" && rt != "" {
			runtime = rt
		}
	}

	analysis.InstallMethods = methods
	analysis.RuntimeVersion = runtime
	analysis.Languages = a.detectLanguages(repo, root)
	analysis.Frameworks = matchMarkers(analysis.Dependencies, frameworkMarkers)
	analysis.Databases = matchMarkers(analysis.Dependencies, databaseMarkers)
	analysis.Tools = a.detectTools(analysis.Dependencies, root)
	analysis.HasTests = a.detectTests(root) || hasTestScript
	analysis.HasDocs = a.detectDocs(root)
	analysis.HasCI = a.detectCI(root)
	analysis.APIEndpoints = a.detectEndpoints(ctx, repo, root)
	analysis.HasAPI = len(analysis.APIEndpoints) > 0 || hasAPIFramework(analysis.Frameworks)

	analysis.QualityScore = a.qualityScore(repo, analysis)
	analysis.QualityGrade = models.GradeForScore(analysis.QualityScore)
	return analysis, nil
}

// fetch returns a root file's contents when it exists in the listing.
func (a *Analyzer) fetch(ctx context.Context, repo *models.Repository, root map[string]string, name string) (string, bool) {
	actual, ok := root[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	content, err := a.provider.FileContents(ctx, repo.FullName, actual, repo.DefaultBranch)
	if err != nil {
		if !errors.Is(err, repository.ErrFileNotFound) {
			slog.Warn("analyzer: manifest unreadable", "repo", repo.FullName, "file", actual, "error", err)
		}
		return "", false
	}
	return content, true
}

func (a *Analyzer) detectLanguages(repo *models.Repository, root map[string]string) []string {
	var langs []string
	add := func(l string) {
		l = strings.ToLower(l)
		if l == "" {
			return
		}
		for _, existing := range langs {
			if existing == l {
				return
			}
		}
		langs = append(langs, l)
	}
	add(repo.Language)
	if _, ok := root[fileRequirements]; ok {
		add("python")
	}
	if _, ok := root[filePyproject]; ok {
		add("python")
	}
	if _, ok := root[fileSetupPy]; ok {
		add("python")
	}
	if _, ok := root[filePackageJSON]; ok {
		add("javascript")
	}
	if _, ok := root[fileGoMod]; ok {
		add("go")
	}
	if _, ok := root[strings.ToLower(fileCargo)]; ok {
		add("rust")
	}
	return langs
}

func (a *Analyzer) detectTools(deps []models.Dependency, root map[string]string) []string {
	var tools []string
	if _, ok := root[strings.ToLower(fileDockerfile)]; ok {
		tools = append(tools, "docker")
	}
	if hasAny(root, fileCompose, "docker-compose.yaml", "compose.yml", "compose.yaml") {
		tools = append(tools, "docker-compose")
	}
	if hasAny(root, "nginx.conf") {
		tools = append(tools, "nginx")
	}
	if hasAny(root, "k8s", "kubernetes", "helm") {
		tools = append(tools, "kubernetes")
	}
	tools = append(tools, matchMarkers(deps, toolDepMarkers)...)
	return tools
}

func (a *Analyzer) detectTests(root map[string]string) bool {
	if hasAny(root, "tests", "test", "spec", "pytest.ini", "tox.ini", "conftest.py") {
		return true
	}
	for name := range root {
		if strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test.go") {
			return true
		}
	}
	return false
}

func (a *Analyzer) detectDocs(root map[string]string) bool {
	if hasAny(root, "docs", "doc") {
		return true
	}
	for name := range root {
		if strings.HasPrefix(name, "readme") {
			return true
		}
	}
	return false
}

func (a *Analyzer) detectCI(root map[string]string) bool {
	return hasAny(root, ".github", ".gitlab-ci.yml", ".travis.yml", ".circleci", "jenkinsfile", "azure-pipelines.yml")
}

// detectEndpoints scans the conventional entry files for route
// registrations.
func (a *Analyzer) detectEndpoints(ctx context.Context, repo *models.Repository, root map[string]string) []string {
	var endpoints []string
	seen := make(map[string]bool)
	for _, name := range entryFiles {
		content, ok := a.fetch(ctx, repo, root, name)
		if !ok {
			continue
		}
		for _, m := range endpointRe.FindAllStringSubmatch(content, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				endpoints = append(endpoints, m[1])
			}
		}
	}
	return endpoints
}

// qualityScore combines engineering signals into [0,1]. Tests weigh most,
// then docs and CI; popularity, activity and a lean dependency footprint
// fill out the rest.
func (a *Analyzer) qualityScore(repo *models.Repository, analysis *models.Analysis) float64 {
	w := a.weights
	score := 0.0
	if analysis.HasTests {
		score += w.Tests
	}
	if analysis.HasDocs {
		score += w.Docs
	}
	if analysis.HasCI {
		score += w.CI
	}
	switch {
	case repo.Stars >= 1000:
		score += w.Stars
	case repo.Stars >= 100:
		score += w.Stars * 2 / 3
	case repo.Stars >= 10:
		score += w.Stars / 3
	}
	score += repo.ActivityScore * w.Activity
	switch n := len(analysis.Dependencies); {
	case n <= 20:
		score += w.Dependencies
	case n <= 55:
		score += w.Dependencies / 2
	}
	if score > 1 {
		score = 1
	}
	return score
}

func hasAPIFramework(frameworks []string) bool {
	for _, f := range frameworks {
		switch f {
		case "fastapi", "flask", "django", "express":
			return true
		}
	}
	return false
}

// matchMarkers returns the marker table keys whose substrings appear in any
// dependency name, in table-stable order.
func matchMarkers(deps []models.Dependency, markers map[string][]string) []string {
	var found []string
	for _, key := range sortedKeys(markers) {
		for _, marker := range markers[key] {
			if depContains(deps, marker) {
				found = append(found, key)
				break
			}
		}
	}
	return found
}

func depContains(deps []models.Dependency, marker string) bool {
	for _, d := range deps {
		if strings.Contains(strings.ToLower(d.Name), marker) {
			return true
		}
	}
	return false
}

func hasAny(root map[string]string, names ...string) bool {
	for _, n := range names {
		if _, ok := root[strings.ToLower(n)]; ok {
			return true
		}
	}
	return false
}
