package models

import (
	"strings"
	"time"
)

// Repository is a candidate repository from any hosting provider,
// carrying the provider metadata plus the two derived admission scores.
type Repository struct {
	Name           string      `json:"name"`
	FullName       string      `json:"full_name"` // owner/name
	Owner          string      `json:"owner"`
	Provider       string      `json:"provider"` // github | gitlab
	URL            string      `json:"url"`
	CloneURL       string      `json:"clone_url"`
	DefaultBranch  string      `json:"default_branch"`
	Description    string      `json:"description"`
	Language       string      `json:"language"`
	Topics         []string    `json:"topics"`
	Stars          int         `json:"stars"`
	Forks          int         `json:"forks"`
	OpenIssues     int         `json:"open_issues"`
	License        LicenseType `json:"license"`
	Archived       bool        `json:"archived"`
	PushedAt       time.Time   `json:"pushed_at"`
	ActivityScore  float64     `json:"activity_score"`  // [0,1]
	RelevanceScore float64     `json:"relevance_score"` // [0,1]
}

// RepoStatus is the admission pipeline state of one onboarding attempt.
type RepoStatus string

const (
	StatusDiscovered   RepoStatus = "discovered"
	StatusAnalyzed     RepoStatus = "analyzed"
	StatusCompatible   RepoStatus = "compatible"
	StatusIncompatible RepoStatus = "incompatible"
	StatusCloned       RepoStatus = "cloned"
	StatusInstalled    RepoStatus = "installed"
	StatusWrapped      RepoStatus = "wrapped"
	StatusRegistered   RepoStatus = "registered"
	StatusFailed       RepoStatus = "failed"
)

func (s RepoStatus) String() string {
	return string(s)
}

// Rank returns the pipeline stage order (higher = further along).
// Failed has no rank of its own; it is reachable from any non-terminal stage.
func (s RepoStatus) Rank() int {
	switch s {
	case StatusDiscovered:
		return 1
	case StatusAnalyzed:
		return 2
	case StatusCompatible, StatusIncompatible:
		return 3
	case StatusCloned:
		return 4
	case StatusInstalled:
		return 5
	case StatusWrapped:
		return 6
	case StatusRegistered:
		return 7
	default:
		return 0
	}
}

// Terminal reports whether no further transition may leave s.
func (s RepoStatus) Terminal() bool {
	switch s {
	case StatusRegistered, StatusIncompatible, StatusFailed:
		return true
	}
	return false
}

// CanAdvance reports whether a report in state s may transition to next.
// Transitions only ever move forward; failed absorbs any non-terminal state.
func (s RepoStatus) CanAdvance(next RepoStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return next.Rank() > s.Rank()
}

// LicenseType is the normalized license family of a repository.
type LicenseType string

const (
	LicenseMIT         LicenseType = "mit"
	LicenseApache2     LicenseType = "apache-2.0"
	LicenseBSD3        LicenseType = "bsd-3-clause"
	LicenseBSD2        LicenseType = "bsd-2-clause"
	LicenseISC         LicenseType = "isc"
	LicenseUnlicense   LicenseType = "unlicense"
	LicenseCC0         LicenseType = "cc0-1.0"
	LicenseGPL2        LicenseType = "gpl-2.0"
	LicenseGPL3        LicenseType = "gpl-3.0"
	LicenseAGPL3       LicenseType = "agpl-3.0"
	LicenseLGPL3       LicenseType = "lgpl-3.0"
	LicenseMPL2        LicenseType = "mpl-2.0"
	LicenseProprietary LicenseType = "proprietary"
	LicenseUnknown     LicenseType = "unknown"
)

func (l LicenseType) String() string {
	return string(l)
}

// Copyleft reports whether l carries a reciprocal-licensing obligation.
func (l LicenseType) Copyleft() bool {
	switch l {
	case LicenseGPL2, LicenseGPL3, LicenseAGPL3, LicenseLGPL3, LicenseMPL2:
		return true
	}
	return false
}

// ParseLicense normalises provider license identifiers (SPDX ids, display
// names) to a LicenseType. Unrecognised input maps to LicenseUnknown.
func ParseLicense(raw string) LicenseType {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.TrimSuffix(key, "-only")
	key = strings.TrimSuffix(key, "-or-later")
	switch key {
	case "mit", "mit license":
		return LicenseMIT
	case "apache-2.0", "apache 2.0", "apache license 2.0":
		return LicenseApache2
	case "bsd-3-clause", "bsd 3-clause":
		return LicenseBSD3
	case "bsd-2-clause", "bsd 2-clause":
		return LicenseBSD2
	case "isc":
		return LicenseISC
	case "unlicense", "the unlicense":
		return LicenseUnlicense
	case "cc0-1.0":
		return LicenseCC0
	case "gpl-2.0", "gplv2":
		return LicenseGPL2
	case "gpl-3.0", "gplv3":
		return LicenseGPL3
	case "agpl-3.0":
		return LicenseAGPL3
	case "lgpl-3.0":
		return LicenseLGPL3
	case "mpl-2.0":
		return LicenseMPL2
	case "proprietary", "other", "noassertion":
		return LicenseProprietary
	case "", "none", "unknown":
		return LicenseUnknown
	default:
		return LicenseUnknown
	}
}
