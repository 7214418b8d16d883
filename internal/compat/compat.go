// Package compat decides whether an analyzed repository can coexist with
// the host: runtime version window, dependency conflicts, OS restrictions,
// license rules and resource footprint. Each sub-check carries a policy
// weight; failures and warnings reduce the overall score.
package compat

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/blang/semver"

	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/models"
)

// languageRuntime maps an analyzer language to its policy runtime window.
var languageRuntime = map[string]string{
	"python":     "python",
	"javascript": "node",
	"typescript": "node",
	"go":         "go",
}

var versionRe = regexp.MustCompile(`\d+(?:\.\d+)*`)

// Checker evaluates compatibility against the host environment. It tracks
// packages installed by earlier admissions so later candidates are checked
// against them.
type Checker struct {
	pol    *policy.Policy
	hostOS string

	mu        sync.Mutex
	installed []string
}

func New(pol *policy.Policy) *Checker {
	return &Checker{pol: pol, hostOS: runtime.GOOS}
}

// AddInstalledPackage records a package admitted by an earlier integration
// so future conflict checks see it.
func (c *Checker) AddInstalledPackage(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.installed {
		if p == name {
			return
		}
	}
	c.installed = append(c.installed, name)
}

// InstalledPackages returns a copy of the tracked package set.
func (c *Checker) InstalledPackages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.installed))
	copy(out, c.installed)
	return out
}

// Check runs all sub-checks and scores the result. The analysis dependency
// entries are annotated in place with availability and conflict details.
func (c *Checker) Check(repo *models.Repository, analysis *models.Analysis) *models.CompatibilityResult {
	result := &models.CompatibilityResult{
		RepoName:       repo.Name,
		RuntimeOK:      true,
		DependenciesOK: true,
		OSOK:           true,
		LicenseOK:      true,
		ResourcesOK:    true,
	}

	c.checkRuntime(analysis, result)
	c.checkDependencies(analysis, result)
	c.checkOS(repo, analysis, result)
	c.checkLicense(repo, result)
	c.checkResources(analysis, result)

	w := c.pol.Weights.Compatibility
	score := 1.0
	if !result.RuntimeOK {
		score -= w.Runtime
	}
	if !result.DependenciesOK {
		score -= w.Dependencies
	}
	if !result.OSOK {
		score -= w.OS
	}
	if !result.LicenseOK {
		score -= w.License
	}
	if !result.ResourcesOK {
		score -= w.Resources
	}
	score -= w.WarningPenalty * float64(len(result.Warnings))
	if score < 0 {
		score = 0
	}
	result.OverallScore = score
	result.Compatible = result.RuntimeOK && result.DependenciesOK && result.OSOK &&
		result.LicenseOK && result.ResourcesOK
	return result
}

// checkRuntime compares the declared runtime constraint against the policy
// version window for the repository's primary language.
func (c *Checker) checkRuntime(analysis *models.Analysis, result *models.CompatibilityResult) {
	name := ""
	for _, lang := range analysis.Languages {
		if rt, ok := languageRuntime[lang]; ok {
			name = rt
			break
		}
	}
	if name == "" {
		return
	}
	window, ok := c.pol.Runtimes[name]
	if !ok {
		result.Warnings = append(result.Warnings, fmt.Sprintf("no version policy for %s runtime", name))
		return
	}
	if analysis.RuntimeVersion == "" {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s version requirement undeclared", name))
		return
	}
	floor, ok := versionFloor(analysis.RuntimeVersion)
	if !ok {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unparseable %s requirement %q", name, analysis.RuntimeVersion))
		return
	}
	if window.Min != "" {
		if lo, err := semver.ParseTolerant(window.Min); err == nil && floor.LT(lo) {
			result.RuntimeOK = false
			result.Issues = append(result.Issues,
				fmt.Sprintf("requires %s %s, older than minimum supported %s", name, analysis.RuntimeVersion, window.Min))
			return
		}
	}
	if window.Max != "" {
		if hi, err := semver.ParseTolerant(window.Max); err == nil && floor.GT(hi) {
			result.RuntimeOK = false
			result.Issues = append(result.Issues,
				fmt.Sprintf("requires %s %s, newer than maximum supported %s", name, analysis.RuntimeVersion, window.Max))
		}
	}
}

// checkDependencies marks conflicts against already-installed packages and
// annotates each dependency's availability.
func (c *Checker) checkDependencies(analysis *models.Analysis, result *models.CompatibilityResult) {
	installed := c.InstalledPackages()
	for i := range analysis.Dependencies {
		dep := &analysis.Dependencies[i]
		dep.Available = true
		if reason, conflict := c.pol.Conflict(dep.Name, installed); conflict {
			dep.Available = false
			dep.Conflict = true
			dep.ConflictReason = reason
			result.DependenciesOK = false
			result.Issues = append(result.Issues, fmt.Sprintf("dependency %s: %s", dep.Name, reason))
		}
	}
}

// checkOS flags dependencies and description markers tying the repository
// to an OS other than the host's.
func (c *Checker) checkOS(repo *models.Repository, analysis *models.Analysis, result *models.CompatibilityResult) {
	for i := range analysis.Dependencies {
		dep := &analysis.Dependencies[i]
		if osName, ok := c.pol.PlatformRestricted(dep.Name); ok && osName != c.hostOS {
			dep.Available = false
			result.OSOK = false
			result.Issues = append(result.Issues,
				fmt.Sprintf("dependency %s only works on %s (host is %s)", dep.Name, osName, c.hostOS))
		}
	}
	if osName, ok := c.pol.OSMarker(repo.Description); ok && osName != c.hostOS {
		result.OSOK = false
		result.Issues = append(result.Issues,
			fmt.Sprintf("repository is %s-only (host is %s)", osName, c.hostOS))
	}
}

// checkLicense applies the policy license sets. Unknown licenses warn but
// do not block; copyleft and proprietary block.
func (c *Checker) checkLicense(repo *models.Repository, result *models.CompatibilityResult) {
	license := repo.License
	switch {
	case c.pol.LicenseAllowed(license):
	case c.pol.LicenseNeedsReview(license):
		result.Warnings = append(result.Warnings, fmt.Sprintf("license %s requires legal review", license))
	case license == models.LicenseUnknown || license == "":
		result.Warnings = append(result.Warnings, "license could not be determined")
	case license.Copyleft():
		result.LicenseOK = false
		result.Issues = append(result.Issues, fmt.Sprintf("copyleft license %s is not admissible", license))
	default:
		result.LicenseOK = false
		result.Issues = append(result.Issues, fmt.Sprintf("license %s is not admissible", license))
	}
}

// checkResources warns on heavy footprints. Only a dependency set at twice
// the policy limit is an outright failure.
func (c *Checker) checkResources(analysis *models.Analysis, result *models.CompatibilityResult) {
	maxDeps := c.pol.Resources.MaxDependencies
	n := len(analysis.Dependencies)
	if maxDeps > 0 {
		switch {
		case n >= 2*maxDeps:
			result.ResourcesOK = false
			result.Issues = append(result.Issues,
				fmt.Sprintf("%d dependencies is an unmanageable footprint (limit %d)", n, maxDeps))
		case n >= maxDeps:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%d dependencies exceeds the comfort limit of %d", n, maxDeps))
		}
	}
	for _, dep := range analysis.Dependencies {
		if c.pol.IsHeavyweight(dep.Name) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s expects a GPU and %dGB+ RAM", dep.Name, c.pol.Resources.HeavyweightRAMGB))
		}
	}
}

// versionFloor extracts the lowest version a constraint admits, tolerating
// partial versions like "3.8".
func versionFloor(constraint string) (semver.Version, bool) {
	m := versionRe.FindString(constraint)
	if m == "" {
		return semver.Version{}, false
	}
	v, err := semver.ParseTolerant(m)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}
