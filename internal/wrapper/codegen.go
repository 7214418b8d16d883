package wrapper

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/CosmoTheDev/repogate/models"
)

// agentTemplate is the Go source stub emitted for a wrapped capability.
// The stub shells out to the repository's entry point and maps the typed
// fields both ways.
var agentTemplate = template.Must(template.New("agent").Parse(`package capabilities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// {{.TypeName}} invokes the {{.RepoName}} repository as a {{.Kind}}.
type {{.TypeName}} struct {
	entryPoint string
}

func New{{.TypeName}}() *{{.TypeName}} {
	return &{{.TypeName}}{entryPoint: {{printf "%q" .EntryPoint}}}
}

func (c *{{.TypeName}}) Name() string { return {{printf "%q" .Capability}} }

// Execute runs the capability with the given input.
//
// Input fields:
{{- range .Inputs}}
//   {{.Name}} ({{.Type}})
{{- end}}
// Output fields:
{{- range .Outputs}}
//   {{.Name}} ({{.Type}})
{{- end}}
func (c *{{.TypeName}}) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding input: %w", err)
	}

	cmd := exec.CommandContext(ctx, "python3", c.entryPoint)
	cmd.Stdin = bytes.NewReader(payload)
	out, err := cmd.Output()
	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}, nil
	}

	result := map[string]any{"success": true}
	if err := json.Unmarshal(out, &result); err != nil {
		result["result"] = string(out)
	}
	return result, nil
}
`))

type fieldDoc struct {
	Name string
	Type string
}

type agentCodeData struct {
	TypeName   string
	Kind       string
	Capability string
	RepoName   string
	EntryPoint string
	Inputs     []fieldDoc
	Outputs    []fieldDoc
}

// GenerateAgentCode renders a Go stub for the capability, suitable as a
// starting point for hand-finishing the integration.
func GenerateAgentCode(cfg *models.WrapperConfig) (string, error) {
	data := agentCodeData{
		TypeName:   goTypeName(cfg.Name),
		Kind:       cfg.Type.String(),
		Capability: cfg.Name,
		RepoName:   cfg.RepoName,
		EntryPoint: cfg.EntryPoint,
		Inputs:     sortedFields(cfg.InputMapping),
		Outputs:    sortedFields(cfg.OutputMapping),
	}

	var buf bytes.Buffer
	if err := agentTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("wrapper: rendering agent stub: %w", err)
	}
	return buf.String(), nil
}

// goTypeName turns a capability name like "taskrunner_agent" into
// "TaskrunnerAgent".
func goTypeName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if b.Len() == 0 {
		return "Capability"
	}
	return b.String()
}

func sortedFields(mapping map[string]string) []fieldDoc {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]fieldDoc, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fieldDoc{Name: k, Type: mapping[k]})
	}
	return fields
}
