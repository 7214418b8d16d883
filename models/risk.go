package models

// RiskLevel is the security risk of a repository on an ordered scale.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Weight returns a numeric weight for comparison (higher = riskier).
func (r RiskLevel) Weight() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

func (r RiskLevel) String() string {
	return string(r)
}

// AtLeast reports whether r is as severe as other or more.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Weight() >= other.Weight()
}

// MaxRisk returns the more severe of a and b.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Weight() > a.Weight() {
		return b
	}
	return a
}

// MapRisk normalises external severity strings (CVSS buckets, advisory
// databases) to a RiskLevel.
func MapRisk(raw string) RiskLevel {
	switch raw {
	case "CRITICAL", "critical":
		return RiskCritical
	case "HIGH", "high", "ERROR", "error":
		return RiskHigh
	case "MEDIUM", "medium", "MODERATE", "moderate", "WARNING", "warning":
		return RiskMedium
	case "LOW", "low", "INFO", "info", "NEGLIGIBLE", "negligible":
		return RiskLow
	default:
		return RiskSafe
	}
}
