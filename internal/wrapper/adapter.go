package wrapper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// Adapter builds lighter-weight capability descriptors for repositories
// that are consumed as-is: a CLI, an importable library or a remote API.
type Adapter struct {
	st *store.Store
}

func NewAdapter(st *store.Store) *Adapter {
	return &Adapter{st: st}
}

// WrapCLI describes a command-line capability.
func (a *Adapter) WrapCLI(ctx context.Context, name, command string) (*models.AdapterConfig, error) {
	if command == "" {
		return nil, fmt.Errorf("wrapper: cli adapter %s needs a command", name)
	}
	return a.put(ctx, name, models.WrapperCLI, map[string]string{"command": command})
}

// WrapLibrary describes an importable library capability.
func (a *Adapter) WrapLibrary(ctx context.Context, name, importPath string) (*models.AdapterConfig, error) {
	if importPath == "" {
		return nil, fmt.Errorf("wrapper: library adapter %s needs an import path", name)
	}
	return a.put(ctx, name, models.WrapperLibrary, map[string]string{"import_path": importPath})
}

// WrapAPI describes a remote HTTP API capability.
func (a *Adapter) WrapAPI(ctx context.Context, name, baseURL, authType string) (*models.AdapterConfig, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("wrapper: api adapter %s needs a base URL", name)
	}
	if authType == "" {
		authType = "none"
	}
	return a.put(ctx, name, models.WrapperAPI, map[string]string{
		"base_url":  baseURL,
		"auth_type": authType,
	})
}

func (a *Adapter) put(ctx context.Context, name string, typ models.WrapperType, settings map[string]string) (*models.AdapterConfig, error) {
	if name == "" {
		return nil, fmt.Errorf("wrapper: adapter name is required")
	}
	cfg := &models.AdapterConfig{
		Name:      name,
		Type:      typ,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.st.PutAdapter(ctx, cfg); err != nil {
		return nil, fmt.Errorf("wrapper: saving adapter %s: %w", name, err)
	}
	return cfg, nil
}

// Get returns the adapter by name.
func (a *Adapter) Get(ctx context.Context, name string) (*models.AdapterConfig, error) {
	return a.st.GetAdapter(ctx, name)
}

// List returns all adapters.
func (a *Adapter) List(ctx context.Context) ([]*models.AdapterConfig, error) {
	return a.st.ListAdapters(ctx)
}

// Remove deletes the adapter. Returns false when it did not exist.
func (a *Adapter) Remove(ctx context.Context, name string) (bool, error) {
	return a.st.DeleteAdapter(ctx, name)
}

// FunctionInfo describes one callable found in wrapped source.
type FunctionInfo struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
}

var (
	pythonFuncRe = regexp.MustCompile(`(?m)^\s*def\s+([A-Za-z_]\w*)\s*\(([^)]*)\)`)
	jsFuncRe     = regexp.MustCompile(`(?m)function\s+([A-Za-z_$][\w$]*)\s*\(([^)]*)\)`)
	goFuncRe     = regexp.MustCompile(`(?m)^func\s+([A-Za-z]\w*)\s*\(([^)]*)\)`)
)

// ExtractFunctions finds the public callables declared in source. Private
// functions (underscore-prefixed, or unexported for Go declarations) are
// skipped. The scan is heuristic pattern matching, good enough to seed a
// capability's surface, not a parser.
func ExtractFunctions(source string) []FunctionInfo {
	var out []FunctionInfo
	seen := make(map[string]bool)

	add := func(name, rawParams string) {
		if seen[name] || strings.HasPrefix(name, "_") {
			return
		}
		seen[name] = true
		out = append(out, FunctionInfo{Name: name, Params: splitParams(rawParams)})
	}

	for _, m := range pythonFuncRe.FindAllStringSubmatch(source, -1) {
		add(m[1], m[2])
	}
	for _, m := range jsFuncRe.FindAllStringSubmatch(source, -1) {
		add(m[1], m[2])
	}
	for _, m := range goFuncRe.FindAllStringSubmatch(source, -1) {
		name := m[1]
		if !unicode.IsUpper(rune(name[0])) {
			continue
		}
		add(name, m[2])
	}
	return out
}

// splitParams extracts bare parameter names from a raw parameter list,
// dropping receivers, type hints and defaults.
func splitParams(raw string) []string {
	var params []string
	for _, part := range strings.Split(raw, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		for _, sep := range []string{":", "=", " "} {
			if idx := strings.Index(p, sep); idx != -1 {
				p = p[:idx]
			}
		}
		p = strings.TrimPrefix(p, "*")
		p = strings.TrimPrefix(p, "*")
		if p == "" || p == "self" || p == "cls" {
			continue
		}
		params = append(params, p)
	}
	return params
}

// DocInfo summarises a repository's documentation.
type DocInfo struct {
	Sections        []string `json:"sections"`
	HasInstallation bool     `json:"has_installation"`
	HasUsage        bool     `json:"has_usage"`
	CodeExamples    int      `json:"code_examples"`
}

var headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)\s*$`)

// ParseDocumentation extracts the section outline of a markdown document
// and flags the parts onboarding cares about.
func ParseDocumentation(markdown string) DocInfo {
	info := DocInfo{}

	for _, m := range headingRe.FindAllStringSubmatch(markdown, -1) {
		section := m[1]
		info.Sections = append(info.Sections, section)
		lower := strings.ToLower(section)
		if strings.Contains(lower, "install") || strings.Contains(lower, "setup") {
			info.HasInstallation = true
		}
		if strings.Contains(lower, "usage") || strings.Contains(lower, "getting started") || strings.Contains(lower, "quick start") || strings.Contains(lower, "example") {
			info.HasUsage = true
		}
	}

	info.CodeExamples = strings.Count(markdown, "```") / 2
	return info
}
