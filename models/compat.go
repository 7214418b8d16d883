package models

// CompatibilityResult is the verdict of the compatibility checker: five
// independent sub-checks, itemised issues (hard) and warnings (soft), and
// a weighted aggregate score. Compatible is the AND of the five booleans;
// warnings never affect it.
type CompatibilityResult struct {
	RepoName       string   `json:"repo_name"`
	RuntimeOK      bool     `json:"runtime_ok"`
	DependenciesOK bool     `json:"dependencies_ok"`
	OSOK           bool     `json:"os_ok"`
	LicenseOK      bool     `json:"license_ok"`
	ResourcesOK    bool     `json:"resources_ok"`
	Issues         []string `json:"issues"`
	Warnings       []string `json:"warnings"`
	OverallScore   float64  `json:"overall_score"` // [0,1]
	Compatible     bool     `json:"compatible"`
}
