package models

import "time"

// AdapterConfig describes a capability adapter produced from an existing
// artifact: a CLI binary, an importable library, or a remote API.
type AdapterConfig struct {
	Name      string            `json:"name"`
	Type      WrapperType       `json:"type"` // cli | library | api
	Settings  map[string]string `json:"settings"`
	CreatedAt time.Time         `json:"created_at"`
}
