// Package policy holds the admission rules that drive compatibility and
// scoring decisions: allowed licenses, runtime version windows, dependency
// conflicts, resource limits and scoring weights. A bundled default policy
// is embedded; operators can override it with a YAML file of their own.
package policy

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/CosmoTheDev/repogate/models"
)

//go:embed defaults/policy.yaml
var defaultsFS embed.FS

// Policy is a parsed admission policy. Loaded policies are shared between
// collaborators and must be treated as read-only.
type Policy struct {
	// Name is the machine-readable identifier of the policy.
	Name string `yaml:"name"`
	// Version is a monotonically increasing integer for future compatibility.
	Version int `yaml:"version"`

	Licenses     LicenseRules             `yaml:"licenses"`
	Runtimes     map[string]RuntimeWindow `yaml:"runtimes"`
	PlatformDeps map[string][]string      `yaml:"platform_deps"`
	OSMarkers    map[string][]string      `yaml:"os_markers"`
	Conflicts    []ConflictRule           `yaml:"conflicts"`
	Heavyweight  []string                 `yaml:"heavyweight"`
	Resources    ResourceRules            `yaml:"resources"`
	// MalwareKeywords are substrings whose presence in repository content
	// marks the repository as malicious regardless of other findings.
	MalwareKeywords []string `yaml:"malware_keywords"`
	Weights         Weights  `yaml:"weights"`
}

// LicenseRules splits licenses into freely usable and review-first sets.
// Anything in neither set is an admission failure (copyleft, proprietary)
// or a warning (unknown).
type LicenseRules struct {
	Allowed []string `yaml:"allowed"`
	Review  []string `yaml:"review"`
}

// RuntimeWindow bounds the supported versions of one language runtime.
// Empty min or max leaves that side open.
type RuntimeWindow struct {
	Min string `yaml:"min"`
	Max string `yaml:"max"`
}

// ConflictRule names a set of packages that cannot be installed together.
type ConflictRule struct {
	Packages []string `yaml:"packages"`
	Reason   string   `yaml:"reason"`
}

type ResourceRules struct {
	// MaxDependencies is the dependency count above which a repository
	// draws a resource warning.
	MaxDependencies int `yaml:"max_dependencies"`
	// HeavyweightRAMGB is the memory expectation attached to heavyweight
	// framework warnings.
	HeavyweightRAMGB int `yaml:"heavyweight_ram_gb"`
}

// Weights collects every tunable scoring coefficient in one place.
type Weights struct {
	Compatibility CompatWeights    `yaml:"compatibility"`
	Quality       QualityWeights   `yaml:"quality"`
	Relevance     RelevanceWeights `yaml:"relevance"`
}

// CompatWeights are the per-check deductions applied to a perfect 1.0
// compatibility score, plus the penalty for each warning.
type CompatWeights struct {
	Runtime        float64 `yaml:"runtime"`
	Dependencies   float64 `yaml:"dependencies"`
	OS             float64 `yaml:"os"`
	License        float64 `yaml:"license"`
	Resources      float64 `yaml:"resources"`
	WarningPenalty float64 `yaml:"warning_penalty"`
}

// QualityWeights are the additive components of the analyzer quality score.
type QualityWeights struct {
	Tests        float64 `yaml:"tests"`
	Docs         float64 `yaml:"docs"`
	CI           float64 `yaml:"ci"`
	Stars        float64 `yaml:"stars"`
	Activity     float64 `yaml:"activity"`
	Dependencies float64 `yaml:"dependencies"`
}

// RelevanceWeights blend keyword, activity and popularity signals into the
// discovery relevance score.
type RelevanceWeights struct {
	Keywords float64 `yaml:"keywords"`
	Activity float64 `yaml:"activity"`
	Stars    float64 `yaml:"stars"`
}

// Load returns the bundled default policy with the file at path, when
// given, overlaid on top. Overlay fields replace defaults wholesale; the
// file only needs the sections it changes.
func Load(path string) (*Policy, error) {
	p, err := parseDefaults()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	return p, nil
}

// Default returns the bundled policy. The embedded file is validated by
// tests, so a parse failure here is a build defect.
func Default() *Policy {
	p, err := parseDefaults()
	if err != nil {
		panic("policy: embedded defaults invalid: " + err.Error())
	}
	return p
}

func parseDefaults() (*Policy, error) {
	data, err := defaultsFS.ReadFile("defaults/policy.yaml")
	if err != nil {
		return nil, fmt.Errorf("policy: reading embedded defaults: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("policy: parse embedded defaults: %w", err)
	}
	return &p, nil
}

// LicenseAllowed reports whether l can be admitted without review.
func (p *Policy) LicenseAllowed(l models.LicenseType) bool {
	return containsFold(p.Licenses.Allowed, string(l))
}

// LicenseNeedsReview reports whether l is usable but flagged for review.
func (p *Policy) LicenseNeedsReview(l models.LicenseType) bool {
	return containsFold(p.Licenses.Review, string(l))
}

// Conflict returns the conflict reason when candidate collides with any of
// the installed packages.
func (p *Policy) Conflict(candidate string, installed []string) (string, bool) {
	candidate = normalize(candidate)
	for _, rule := range p.Conflicts {
		if !containsFold(rule.Packages, candidate) {
			continue
		}
		for _, pkg := range installed {
			pkg = normalize(pkg)
			if pkg == candidate {
				continue
			}
			if containsFold(rule.Packages, pkg) {
				reason := rule.Reason
				if reason == "" {
					reason = fmt.Sprintf("%s conflicts with installed package %s", candidate, pkg)
				}
				return reason, true
			}
		}
	}
	return "", false
}

// IsHeavyweight reports whether dep is a framework with a large resource
// footprint.
func (p *Policy) IsHeavyweight(dep string) bool {
	return containsFold(p.Heavyweight, normalize(dep))
}

// PlatformRestricted returns the OS a dependency is tied to, when any.
func (p *Policy) PlatformRestricted(dep string) (string, bool) {
	dep = normalize(dep)
	for osName, deps := range p.PlatformDeps {
		if containsFold(deps, dep) {
			return osName, true
		}
	}
	return "", false
}

// OSMarker scans a description for an OS-exclusivity marker and returns the
// OS it names.
func (p *Policy) OSMarker(description string) (string, bool) {
	desc := strings.ToLower(description)
	for osName, markers := range p.OSMarkers {
		for _, m := range markers {
			if strings.Contains(desc, m) {
				return osName, true
			}
		}
	}
	return "", false
}

// MalwareKeyword returns the first malware keyword found in content.
func (p *Policy) MalwareKeyword(content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, kw := range p.MalwareKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
