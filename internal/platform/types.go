// Package platform provides a client for the optional host-platform
// registry. Nothing in this package runs unless platform.url is set
// in config.
package platform

// CapabilityInfo is the platform's view of a registered capability.
type CapabilityInfo struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	RepoName     string  `json:"repo_name"`
	Status       string  `json:"status"`
	RegisteredAt *string `json:"registered_at"`
}

// PlatformInfo is returned by the health endpoint.
type PlatformInfo struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Capabilities int    `json:"capabilities"`
}
