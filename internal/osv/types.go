package osv

// PackageQuery is a single entry in a batch query request.
type PackageQuery struct {
	Package    PackageID `json:"package"`
	Version    string    `json:"version,omitempty"`
	Dependency string    `json:"-"` // internal correlation; not sent to API
}

// PackageID identifies a package in the OSV ecosystem.
type PackageID struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

// BatchQueryRequest is the body for POST /v1/querybatch.
type BatchQueryRequest struct {
	Queries []batchQueryEntry `json:"queries"`
}

type batchQueryEntry struct {
	Package PackageID `json:"package"`
	Version string    `json:"version,omitempty"`
}

// BatchQueryResponse is the response from POST /v1/querybatch.
type BatchQueryResponse struct {
	Results []QueryResult `json:"results"`
}

// QueryResult is the result for a single package query.
type QueryResult struct {
	Vulns []Vuln `json:"vulns"`
}

// Vuln represents a single OSV vulnerability record.
type Vuln struct {
	ID        string     `json:"id"`      // e.g. "GHSA-xxxx-yyyy-zzzz" or "PYSEC-2023-1234"
	Summary   string     `json:"summary"`
	Aliases   []string   `json:"aliases"` // e.g. ["CVE-2021-23337"]
	Severity  []Severity `json:"severity"`
	Published string     `json:"published"` // RFC3339
	Modified  string     `json:"modified"`  // RFC3339
}

// Severity holds a CVSS score entry.
type Severity struct {
	Type  string `json:"type"`  // "CVSS_V3" or "CVSS_V2"
	Score string `json:"score"` // vector string, or sometimes just the base score
}
