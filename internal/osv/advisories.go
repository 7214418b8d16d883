package osv

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CosmoTheDev/repogate/models"
)

const (
	advisoryBatchSize   = 1000
	maxAdvisoriesPerDep = 3
)

// OSV ecosystem names for the languages the analyzer detects.
const (
	EcosystemPyPI      = "PyPI"
	EcosystemNpm       = "npm"
	EcosystemGo        = "Go"
	EcosystemCrates    = "crates.io"
	EcosystemRubyGems  = "RubyGems"
	EcosystemMaven     = "Maven"
	EcosystemPackagist = "Packagist"
	EcosystemNuGet     = "NuGet"
)

// EcosystemForLanguage maps a detected primary language to the OSV ecosystem
// its dependency manifests resolve against. Returns "" for languages OSV
// does not index.
func EcosystemForLanguage(lang string) string {
	switch strings.ToLower(lang) {
	case "python":
		return EcosystemPyPI
	case "javascript", "typescript", "node":
		return EcosystemNpm
	case "go", "golang":
		return EcosystemGo
	case "rust":
		return EcosystemCrates
	case "ruby":
		return EcosystemRubyGems
	case "java", "kotlin", "scala":
		return EcosystemMaven
	case "php":
		return EcosystemPackagist
	case "c#", "csharp":
		return EcosystemNuGet
	default:
		return ""
	}
}

// CheckDependencies queries OSV for known advisories against the given
// dependency list. It is best-effort: if the OSV API is unreachable or the
// ecosystem is unknown, it logs and returns nil so admission is never blocked
// on an external feed.
func (c *Client) CheckDependencies(ctx context.Context, ecosystem string, deps []models.Dependency) []models.SecurityFinding {
	if ecosystem == "" || len(deps) == 0 {
		return nil
	}

	queries := make([]PackageQuery, 0, len(deps))
	for _, d := range deps {
		if d.Name == "" {
			continue
		}
		queries = append(queries, PackageQuery{
			Package:    PackageID{Name: d.Name, Ecosystem: ecosystem},
			Version:    pinnedVersion(d.Version),
			Dependency: d.Name,
		})
	}
	if len(queries) == 0 {
		return nil
	}

	var findings []models.SecurityFinding
	failed := 0

	for start := 0; start < len(queries); start += advisoryBatchSize {
		end := start + advisoryBatchSize
		if end > len(queries) {
			end = len(queries)
		}
		batch := queries[start:end]

		results, err := c.BatchQuery(ctx, batch)
		if err != nil {
			slog.Warn("osv: batch query failed", "ecosystem", ecosystem, "packages", len(batch), "error", err)
			failed += len(batch)
			continue
		}

		for i, result := range results {
			if i >= len(batch) {
				break
			}
			for j, vuln := range result.Vulns {
				if j >= maxAdvisoriesPerDep {
					break
				}
				findings = append(findings, advisoryFinding(batch[i], vuln))
			}
		}

		if ctx.Err() != nil {
			break
		}
	}

	if len(findings) > 0 || failed > 0 {
		slog.Info("osv: advisory check complete", "ecosystem", ecosystem, "packages", len(queries), "advisories", len(findings), "failed", failed)
	}
	return findings
}

// advisoryFinding converts one OSV record into a scanner finding.
func advisoryFinding(q PackageQuery, v Vuln) models.SecurityFinding {
	label := q.Dependency
	if q.Version != "" {
		label += " " + q.Version
	}

	detail := label + ": " + vulnTitle(v)
	if cve := extractCVE(v); cve != "" && !strings.Contains(detail, cve) {
		detail = fmt.Sprintf("%s (%s)", detail, cve)
	}

	return models.SecurityFinding{
		Rule:     v.ID,
		Severity: riskForScore(extractCVSSScore(v.Severity)),
		Detail:   detail,
		Source:   "advisory",
	}
}

// vulnTitle picks a human-readable one-liner for a vuln record.
func vulnTitle(v Vuln) string {
	if v.Summary != "" {
		return v.Summary
	}
	for _, alias := range v.Aliases {
		if strings.HasPrefix(alias, "CVE-") {
			return alias
		}
	}
	return "known vulnerability"
}

// riskForScore buckets a CVSS base score into a risk level. Records without
// a published score still represent a real advisory, so they land on medium
// rather than safe.
func riskForScore(score float64) models.RiskLevel {
	switch {
	case score >= 9:
		return models.RiskCritical
	case score >= 7:
		return models.RiskHigh
	case score >= 4:
		return models.RiskMedium
	case score > 0:
		return models.RiskLow
	default:
		return models.RiskMedium
	}
}

// pinnedVersion extracts an exact version from a manifest constraint.
// Only pinned specs ("==1.2.3", "1.2.3", "v1.2.3") produce a version; range
// constraints return "" so OSV matches the package across all versions.
func pinnedVersion(spec string) string {
	v := strings.TrimSpace(spec)
	v = strings.TrimPrefix(v, "==")
	v = strings.TrimPrefix(v, "v")
	if v == "" {
		return ""
	}
	for _, r := range v {
		if (r < '0' || r > '9') && r != '.' {
			return ""
		}
	}
	return v
}

// extractCVE returns the first CVE alias from a vuln, or the OSV ID if it is
// itself a CVE.
func extractCVE(v Vuln) string {
	for _, alias := range v.Aliases {
		if strings.HasPrefix(alias, "CVE-") {
			return alias
		}
	}
	if strings.HasPrefix(v.ID, "CVE-") {
		return v.ID
	}
	return ""
}

// extractCVSSScore returns the CVSS base score, preferring v3 over v2.
func extractCVSSScore(severities []Severity) float64 {
	for _, s := range severities {
		if s.Type == "CVSS_V3" {
			return parseCVSSScore(s.Score)
		}
	}
	for _, s := range severities {
		if s.Type == "CVSS_V2" {
			return parseCVSSScore(s.Score)
		}
	}
	return 0
}

// parseCVSSScore handles the two shapes OSV puts in the Score field: a bare
// numeric score ("9.8") or a full vector string. Vectors do not embed the
// base score, so they parse to 0.
func parseCVSSScore(score string) float64 {
	var f float64
	_, err := fmt.Sscanf(score, "%f", &f)
	if err == nil && f > 0 {
		return f
	}
	return 0
}
