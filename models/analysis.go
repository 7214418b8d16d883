package models

import "time"

// Analysis is the derived technical profile of a repository: one per
// pipeline run, produced by the analyzer and read-only downstream.
type Analysis struct {
	RepoName       string          `json:"repo_name"`
	Languages      []string        `json:"languages"`
	Frameworks     []string        `json:"frameworks"`
	Databases      []string        `json:"databases"`
	Tools          []string        `json:"tools"`
	RuntimeVersion string          `json:"runtime_version"` // declared constraint, e.g. ">=3.8"
	Dependencies   []Dependency    `json:"dependencies"`
	HasTests       bool            `json:"has_tests"`
	HasDocs        bool            `json:"has_docs"`
	HasCI          bool            `json:"has_ci"`
	HasAPI         bool            `json:"has_api"`
	APIEndpoints   []string        `json:"api_endpoints"`
	InstallMethods []InstallMethod `json:"install_methods"`
	QualityScore   float64         `json:"quality_score"`
	QualityGrade   QualityGrade    `json:"quality_grade"`
	AnalyzedAt     time.Time       `json:"analyzed_at"`
}

// Dependency is one declared dependency of a repository.
type Dependency struct {
	Name           string `json:"name"`
	Version        string `json:"version"` // raw version spec, may be empty
	Required       bool   `json:"required"`
	Available      bool   `json:"available"`
	Conflict       bool   `json:"conflict"`
	ConflictReason string `json:"conflict_reason,omitempty"`
}

// DependencyNames returns the dependency names in declaration order.
func (a *Analysis) DependencyNames() []string {
	names := make([]string, 0, len(a.Dependencies))
	for _, dep := range a.Dependencies {
		names = append(names, dep.Name)
	}
	return names
}

// HasDatabase reports whether the analysis detected any database dependency.
func (a *Analysis) HasDatabase() bool {
	return len(a.Databases) > 0
}

// InstallMethod identifies how a repository is installed.
type InstallMethod string

const (
	MethodPip     InstallMethod = "pip"
	MethodPoetry  InstallMethod = "poetry"
	MethodSetupPy InstallMethod = "setup_py"
	MethodNpm     InstallMethod = "npm"
	MethodDocker  InstallMethod = "docker"
	MethodMake    InstallMethod = "make"
	MethodCargo   InstallMethod = "cargo"
	MethodManual  InstallMethod = "manual"
)

func (m InstallMethod) String() string {
	return string(m)
}

// InstallMethodPriority is the fixed preference order used when several
// install methods are detected for the same repository.
var InstallMethodPriority = []InstallMethod{
	MethodPip,
	MethodPoetry,
	MethodSetupPy,
	MethodNpm,
	MethodDocker,
	MethodMake,
	MethodCargo,
}

// PreferredMethod returns the highest-priority method among detected,
// or MethodManual when none matches.
func PreferredMethod(detected []InstallMethod) InstallMethod {
	for _, m := range InstallMethodPriority {
		for _, d := range detected {
			if d == m {
				return m
			}
		}
	}
	return MethodManual
}

// QualityGrade buckets the numeric quality score.
type QualityGrade string

const (
	GradeExcellent QualityGrade = "excellent"
	GradeGood      QualityGrade = "good"
	GradeFair      QualityGrade = "fair"
	GradePoor      QualityGrade = "poor"
	GradeUnknown   QualityGrade = "unknown"
)

func (g QualityGrade) String() string {
	return string(g)
}

// GradeForScore maps a quality score to its grade.
func GradeForScore(score float64) QualityGrade {
	switch {
	case score >= 0.8:
		return GradeExcellent
	case score >= 0.6:
		return GradeGood
	case score >= 0.4:
		return GradeFair
	case score > 0:
		return GradePoor
	default:
		return GradeUnknown
	}
}
