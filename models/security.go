package models

import "time"

// Permission values inferred by the security scanner.
const (
	PermissionNetwork    = "network_access"
	PermissionFileSystem = "file_system_access"
)

// SecurityFinding is one suspicious signal raised by the scanner. Findings
// are advisory: they are the basis a human approver audits, not a proof.
type SecurityFinding struct {
	Rule     string    `json:"rule"`
	Severity RiskLevel `json:"severity"`
	Path     string    `json:"path,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Source   string    `json:"source"` // pattern | indicator | malware | advisory
}

// SecurityReport is the scanner verdict for one repository.
type SecurityReport struct {
	RepoName        string            `json:"repo_name"`
	RiskLevel       RiskLevel         `json:"risk_level"`
	MalwareDetected bool              `json:"malware_detected"`
	Findings        []SecurityFinding `json:"findings"`
	Permissions     []string          `json:"permissions"`
	RequiresSandbox bool              `json:"requires_sandbox"`
	SafeToInstall   bool              `json:"safe_to_install"`
	FilesScanned    int               `json:"files_scanned"`
	ScannedAt       time.Time         `json:"scanned_at"`
}

// HasPermission reports whether the scanner inferred the named permission.
func (r *SecurityReport) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// RiskSummary aggregates scan history for reporting.
type RiskSummary struct {
	TotalScans int `json:"total_scans"`
	SafeCount  int `json:"safe_count"`
	RiskyCount int `json:"risky_count"`
}
