// Package security runs the heuristic risk scan that gates admission. It
// pattern-matches file contents for dangerous constructs, infers required
// permissions, checks declared dependencies against OSV advisories and
// produces the report a human approver audits. Findings are advisory
// signals, not a proof of safety.
package security

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/CosmoTheDev/repogate/internal/osv"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/models"
)

// maxScanFiles caps how many files are fetched per repository when the
// scanner gathers contents itself.
const maxScanFiles = 20

// scanDirs are the directories probed for code files, in order.
var scanDirs = []string{"", "src", "scripts", "app"}

// codeSuffixes marks files worth pattern-scanning.
var codeSuffixes = []string{".py", ".js", ".ts", ".go", ".rs", ".rb", ".sh", ".bash"}

var codeFilenames = map[string]bool{
	"dockerfile": true,
	"makefile":   true,
	"justfile":   true,
}

// AdvisoryChecker reports known vulnerabilities for declared dependencies.
// *osv.Client satisfies it.
type AdvisoryChecker interface {
	CheckDependencies(ctx context.Context, ecosystem string, deps []models.Dependency) []models.SecurityFinding
}

// Scanner applies the detection rule tables to repository contents.
type Scanner struct {
	provider   repository.Provider
	pol        *policy.Policy
	advisories AdvisoryChecker
}

// New builds a Scanner. provider may be nil when only Scan/QuickScan are
// used; advisories may be nil to disable the OSV dependency check.
func New(provider repository.Provider, pol *policy.Policy, advisories AdvisoryChecker) *Scanner {
	return &Scanner{provider: provider, pol: pol, advisories: advisories}
}

// Scan applies the rule tables to the given file contents and assembles the
// report. Deterministic for a given input: files are visited in sorted path
// order and each rule reports at most once per file.
func (s *Scanner) Scan(_ context.Context, repoName string, files map[string]string) *models.SecurityReport {
	report := &models.SecurityReport{
		RepoName:     repoName,
		RiskLevel:    models.RiskSafe,
		FilesScanned: len(files),
		ScannedAt:    time.Now().UTC(),
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	network := false
	filesystem := false

	for _, p := range paths {
		content := files[p]

		for _, r := range codeRules {
			loc := r.pattern.FindString(content)
			if loc == "" {
				continue
			}
			report.Findings = append(report.Findings, models.SecurityFinding{
				Rule:     r.name,
				Severity: r.severity,
				Path:     p,
				Detail:   strings.TrimSpace(loc),
				Source:   "pattern",
			})
		}

		if !network && networkIndicator.MatchString(content) {
			network = true
			report.Findings = append(report.Findings, models.SecurityFinding{
				Rule:     "network-access",
				Severity: models.RiskSafe,
				Path:     p,
				Source:   "indicator",
			})
		}
		if !filesystem && filesystemIndicator.MatchString(content) {
			filesystem = true
			report.Findings = append(report.Findings, models.SecurityFinding{
				Rule:     "filesystem-access",
				Severity: models.RiskSafe,
				Path:     p,
				Source:   "indicator",
			})
		}

		if kw, hit := s.pol.MalwareKeyword(content); hit {
			report.MalwareDetected = true
			report.Findings = append(report.Findings, models.SecurityFinding{
				Rule:     "malware-keyword",
				Severity: models.RiskCritical,
				Path:     p,
				Detail:   kw,
				Source:   "malware",
			})
		}
	}

	if network {
		report.Permissions = append(report.Permissions, models.PermissionNetwork)
	}
	if filesystem {
		report.Permissions = append(report.Permissions, models.PermissionFileSystem)
	}

	finishReport(report)
	return report
}

// ScanRepo fetches a capped set of code files through the hosting provider,
// runs the pattern scan and merges OSV advisories for the declared
// dependencies. Unreadable files and advisory outages degrade the result
// instead of failing it.
func (s *Scanner) ScanRepo(ctx context.Context, repo *models.Repository, analysis *models.Analysis) *models.SecurityReport {
	files := s.fetchFiles(ctx, repo)
	report := s.Scan(ctx, repo.Name, files)

	if s.advisories != nil && analysis != nil {
		eco := osv.EcosystemForLanguage(repo.Language)
		if adv := s.advisories.CheckDependencies(ctx, eco, analysis.Dependencies); len(adv) > 0 {
			report.Findings = append(report.Findings, adv...)
			finishReport(report)
		}
	}

	slog.Info("security: scan complete",
		"repo", repo.Name,
		"risk", report.RiskLevel,
		"findings", len(report.Findings),
		"files", report.FilesScanned,
		"sandbox", report.RequiresSandbox,
	)
	return report
}

// QuickScan pre-screens a single blob of content against the pattern table
// and returns the highest severity matched.
func (s *Scanner) QuickScan(content string) models.RiskLevel {
	risk := models.RiskSafe
	for _, r := range codeRules {
		if r.pattern.MatchString(content) {
			risk = models.MaxRisk(risk, r.severity)
		}
	}
	return risk
}

// finishReport recomputes the derived fields after findings change. The risk
// level comes from pattern and advisory findings only; indicator and malware
// findings drive their own flags instead.
func finishReport(report *models.SecurityReport) {
	risk := models.RiskSafe
	for _, f := range report.Findings {
		if f.Source == "pattern" || f.Source == "advisory" {
			risk = models.MaxRisk(risk, f.Severity)
		}
	}
	report.RiskLevel = risk
	report.RequiresSandbox = risk.AtLeast(models.RiskHigh) ||
		report.MalwareDetected ||
		report.HasPermission(models.PermissionNetwork)
	report.SafeToInstall = !report.MalwareDetected &&
		(risk == models.RiskSafe || risk == models.RiskLow)
}

// fetchFiles gathers up to maxScanFiles code files from the repository root
// and a few well-known subdirectories.
func (s *Scanner) fetchFiles(ctx context.Context, repo *models.Repository) map[string]string {
	files := make(map[string]string)
	if s.provider == nil {
		return files
	}

	for _, dir := range scanDirs {
		if len(files) >= maxScanFiles {
			break
		}
		entries, err := s.provider.ListDir(ctx, repo.FullName, dir, repo.DefaultBranch)
		if err != nil {
			continue
		}
		sort.Strings(entries)
		for _, name := range entries {
			if len(files) >= maxScanFiles {
				break
			}
			if !scannable(name) {
				continue
			}
			p := name
			if dir != "" {
				p = path.Join(dir, name)
			}
			content, err := s.provider.FileContents(ctx, repo.FullName, p, repo.DefaultBranch)
			if err != nil {
				slog.Debug("security: skipping unreadable file", "repo", repo.FullName, "path", p, "error", err)
				continue
			}
			files[p] = content
		}
	}
	return files
}

func scannable(name string) bool {
	lower := strings.ToLower(name)
	if codeFilenames[lower] {
		return true
	}
	for _, suffix := range codeSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
