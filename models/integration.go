package models

import "time"

// CloneResult records the materialised working copy of a repository.
type CloneResult struct {
	RepoName    string    `json:"repo_name"`
	LocalPath   string    `json:"local_path"`
	Branch      string    `json:"branch"`
	Commit      string    `json:"commit"`
	Sparse      bool      `json:"sparse"`
	SparsePaths []string  `json:"sparse_paths,omitempty"`
	Submodules  bool      `json:"submodules"`
	SizeMB      float64   `json:"size_mb"`
	Success     bool      `json:"success"`
	ClonedAt    time.Time `json:"cloned_at"`
}

// Install step status values.
const (
	StepCompleted = "completed"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// InstallStep is one command in an install or uninstall sequence.
// Commands are data handed to the executor collaborator, never run here.
type InstallStep struct {
	Command string `json:"command"`
	Status  string `json:"status"` // completed | failed | skipped
	Package string `json:"package,omitempty"`
}

// InstallResult records one install attempt.
type InstallResult struct {
	RepoName          string        `json:"repo_name"`
	Method            InstallMethod `json:"method"`
	Steps             []InstallStep `json:"steps"`
	InstalledPackages []string      `json:"installed_packages"`
	ConfigGenerated   bool          `json:"config_generated"`
	Success           bool          `json:"success"`
	Error             string        `json:"error,omitempty"`
	InstalledAt       time.Time     `json:"installed_at"`
}

// UninstallPlan is the symmetric reverse of an install: advisory steps for
// the caller to execute, package names order-preserving with the install.
type UninstallPlan struct {
	RepoName string        `json:"repo_name"`
	Method   InstallMethod `json:"method"`
	Steps    []InstallStep `json:"steps"`
}

// Packages returns the package names of the plan's steps in order.
func (p *UninstallPlan) Packages() []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		if s.Package != "" {
			names = append(names, s.Package)
		}
	}
	return names
}

// WrapperType identifies how a capability is exposed to the host runtime.
type WrapperType string

const (
	WrapperAgent   WrapperType = "agent"
	WrapperTool    WrapperType = "tool"
	WrapperLibrary WrapperType = "library"
	WrapperCLI     WrapperType = "cli"
	WrapperAPI     WrapperType = "api"
)

func (w WrapperType) String() string {
	return string(w)
}

// WrapperConfig is the capability descriptor handed to the host runtime
// at registration time.
type WrapperConfig struct {
	Type          WrapperType       `json:"type"`
	Name          string            `json:"name"`
	RepoName      string            `json:"repo_name"`
	EntryPoint    string            `json:"entry_point"`
	InputMapping  map[string]string `json:"input_mapping"`  // field → type
	OutputMapping map[string]string `json:"output_mapping"` // field → type
	ErrorHandling string            `json:"error_handling,omitempty"`
	Registered    bool              `json:"registered"`
	CreatedAt     time.Time         `json:"created_at"`
}

// IntegrationReport is the aggregate record of one onboarding attempt:
// the unit of persistence and the unit of rollback. Sub-results stay nil
// until their stage has run.
type IntegrationReport struct {
	RepoName       string               `json:"repo_name"`
	Status         RepoStatus           `json:"status"`
	Repo           *Repository          `json:"repo,omitempty"`
	Analysis       *Analysis            `json:"analysis,omitempty"`
	Compatibility  *CompatibilityResult `json:"compatibility,omitempty"`
	Security       *SecurityReport      `json:"security,omitempty"`
	Clone          *CloneResult         `json:"clone,omitempty"`
	Install        *InstallResult       `json:"install,omitempty"`
	Wrapper        *WrapperConfig       `json:"wrapper,omitempty"`
	ProcessingMS   int64                `json:"processing_ms"`
	Recommendation string               `json:"recommendation"`
	StartedAt      time.Time            `json:"started_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
}

// IntegrationStats summarises all onboarding attempts.
type IntegrationStats struct {
	TotalIntegrations  int     `json:"total_integrations"`
	Successful         int     `json:"successful"`
	Failed             int     `json:"failed"`
	Incompatible       int     `json:"incompatible"`
	SuccessRate        float64 `json:"success_rate"`
	ActiveIntegrations int     `json:"active_integrations"`
	TotalClonesMB      float64 `json:"total_clones_mb"`
}

// UpdateCheck is the result of comparing a pinned clone against the
// provider's current head.
type UpdateCheck struct {
	RepoName      string     `json:"repo_name"`
	HasUpdate     bool       `json:"has_update"`
	CurrentCommit string     `json:"current_commit,omitempty"`
	LatestCommit  string     `json:"latest_commit,omitempty"`
	Status        RepoStatus `json:"status,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// RollbackStep is one compensating action attempted during rollback.
type RollbackStep struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// RollbackReport records a best-effort rollback: every step is attempted
// independently and one failure never stops the rest.
type RollbackReport struct {
	RepoName string         `json:"repo_name"`
	Steps    []RollbackStep `json:"steps"`
	Success  bool           `json:"success"`
}
