package analyzer

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/CosmoTheDev/repogate/models"
)

// Manifest files the analyzer knows how to read.
const (
	fileRequirements = "requirements.txt"
	filePyproject    = "pyproject.toml"
	fileSetupPy      = "setup.py"
	filePackageJSON  = "package.json"
	fileGoMod        = "go.mod"
	fileCargo        = "Cargo.toml"
	fileDockerfile   = "Dockerfile"
	fileCompose      = "docker-compose.yml"
	fileMakefile     = "Makefile"
)

var (
	installRequiresRe = regexp.MustCompile(`install_requires\s*=\s*\[([^\]]*)\]`)
	pythonRequiresRe  = regexp.MustCompile(`python_requires\s*=\s*["']([^"']+)["']`)
	quotedRe          = regexp.MustCompile(`["']([^"']+)["']`)
	goVersionRe       = regexp.MustCompile(`(?m)^go\s+(\S+)`)
)

// splitRequirement breaks a PEP 508 style requirement into name and the raw
// version constraint. Extras and environment markers are dropped.
func splitRequirement(raw string) (name, version string) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	cut := len(raw)
	for i, c := range raw {
		if strings.ContainsRune("><=~!^", c) {
			cut = i
			break
		}
	}
	name, version = strings.TrimSpace(raw[:cut]), strings.TrimSpace(raw[cut:])
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name, version
}

// parseRequirements reads a pip requirements.txt.
func parseRequirements(content string) []models.Dependency {
	var deps []models.Dependency
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		name, version := splitRequirement(line)
		if name == "" {
			continue
		}
		deps = append(deps, models.Dependency{Name: name, Version: version, Required: true})
	}
	return deps
}

// pyprojectFile covers the PEP 621 and poetry layouts we care about.
type pyprojectFile struct {
	Project struct {
		RequiresPython string   `toml:"requires-python"`
		Dependencies   []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// parsePyproject reads a pyproject.toml and reports whether the repository
// is poetry-managed.
func parsePyproject(content string) (deps []models.Dependency, runtime string, poetry bool) {
	var f pyprojectFile
	if err := toml.Unmarshal([]byte(content), &f); err != nil {
		return nil, "", false
	}
	runtime = f.Project.RequiresPython
	for _, raw := range f.Project.Dependencies {
		name, version := splitRequirement(raw)
		if name != "" {
			deps = append(deps, models.Dependency{Name: name, Version: version, Required: true})
		}
	}
	if len(f.Tool.Poetry.Dependencies) > 0 {
		poetry = true
		for _, name := range sortedKeys(f.Tool.Poetry.Dependencies) {
			spec := f.Tool.Poetry.Dependencies[name]
			if strings.EqualFold(name, "python") {
				if runtime == "" {
					if v, ok := spec.(string); ok {
						runtime = v
					}
				}
				continue
			}
			deps = append(deps, models.Dependency{Name: name, Version: specVersion(spec), Required: true})
		}
	}
	return deps, runtime, poetry
}

// specVersion pulls the version string out of a TOML dependency value,
// which is either a bare string or a table with a version key.
func specVersion(spec any) string {
	switch v := spec.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["version"].(string); ok {
			return s
		}
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseSetupPy extracts install_requires and python_requires with regexes.
// setup.py is arbitrary code, so this is best effort only.
func parseSetupPy(content string) (deps []models.Dependency, runtime string) {
	if m := pythonRequiresRe.FindStringSubmatch(content); m != nil {
		runtime = m[1]
	}
	block := installRequiresRe.FindStringSubmatch(content)
	if block == nil {
		return deps, runtime
	}
	for _, m := range quotedRe.FindAllStringSubmatch(block[1], -1) {
		name, version := splitRequirement(m[1])
		if name != "" {
			deps = append(deps, models.Dependency{Name: name, Version: version, Required: true})
		}
	}
	return deps, runtime
}

type packageJSONFile struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Engines         struct {
		Node string `json:"node"`
	} `json:"engines"`
	Scripts map[string]string `json:"scripts"`
}

// parsePackageJSON reads an npm manifest. Dev dependencies are recorded as
// optional. hasTestScript is true when a non-placeholder test script exists.
func parsePackageJSON(content string) (deps []models.Dependency, runtime string, hasTestScript bool) {
	var f packageJSONFile
	if err := json.Unmarshal([]byte(content), &f); err != nil {
		return nil, "", false
	}
	for _, name := range sortedKeys(f.Dependencies) {
		deps = append(deps, models.Dependency{Name: name, Version: f.Dependencies[name], Required: true})
	}
	for _, name := range sortedKeys(f.DevDependencies) {
		deps = append(deps, models.Dependency{Name: name, Version: f.DevDependencies[name]})
	}
	if script, ok := f.Scripts["test"]; ok && script != "" && !strings.Contains(script, "no test specified") {
		hasTestScript = true
	}
	return deps, f.Engines.Node, hasTestScript
}

// parseGoMod reads the require block of a go.mod.
func parseGoMod(content string) (deps []models.Dependency, runtime string) {
	if m := goVersionRe.FindStringSubmatch(content); m != nil {
		runtime = m[1]
	}
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "require ("):
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		}
		var spec string
		if inBlock {
			spec = line
		} else if rest, ok := strings.CutPrefix(line, "require "); ok {
			spec = rest
		} else {
			continue
		}
		fields := strings.Fields(spec)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "//") {
			continue
		}
		deps = append(deps, models.Dependency{
			Name:     fields[0],
			Version:  fields[1],
			Required: !strings.Contains(spec, "// indirect"),
		})
	}
	return deps, runtime
}

type cargoFile struct {
	Dependencies map[string]any `toml:"dependencies"`
}

// parseCargo reads the [dependencies] table of a Cargo.toml.
func parseCargo(content string) []models.Dependency {
	var f cargoFile
	if err := toml.Unmarshal([]byte(content), &f); err != nil {
		return nil
	}
	var deps []models.Dependency
	for _, name := range sortedKeys(f.Dependencies) {
		deps = append(deps, models.Dependency{Name: name, Version: specVersion(f.Dependencies[name]), Required: true})
	}
	return deps
}
