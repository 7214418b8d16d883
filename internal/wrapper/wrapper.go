// Package wrapper exposes an installed repository as a named capability:
// an agent or tool descriptor with typed input/output mappings that the
// host runtime can register and invoke.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// Registry is notified when capabilities are registered with or removed
// from the host runtime. The platform client implements it; nil keeps
// registration local.
type Registry interface {
	RegisterCapability(ctx context.Context, w *models.WrapperConfig) error
	UnregisterCapability(ctx context.Context, name string) error
}

// Wrapper builds and tracks capability descriptors.
type Wrapper struct {
	st       *store.Store
	registry Registry
}

func New(st *store.Store, registry Registry) *Wrapper {
	return &Wrapper{st: st, registry: registry}
}

// WrapAgent wraps a repository as an agent capability named <repo>_agent.
func (w *Wrapper) WrapAgent(ctx context.Context, repoName, entryPoint string, analysis *models.Analysis) (*models.WrapperConfig, error) {
	return w.Wrap(ctx, models.WrapperAgent, "", repoName, entryPoint, analysis)
}

// WrapTool wraps a repository as a tool capability named <repo>_tool.
func (w *Wrapper) WrapTool(ctx context.Context, repoName, entryPoint string, analysis *models.Analysis) (*models.WrapperConfig, error) {
	return w.Wrap(ctx, models.WrapperTool, "", repoName, entryPoint, analysis)
}

// Wrap builds a capability descriptor. name may be empty to use the
// <repo>_<type> default. The descriptor starts unregistered.
func (w *Wrapper) Wrap(ctx context.Context, typ models.WrapperType, name, repoName, entryPoint string, analysis *models.Analysis) (*models.WrapperConfig, error) {
	if repoName == "" {
		return nil, fmt.Errorf("wrapper: repository name is required")
	}
	if name == "" {
		name = fmt.Sprintf("%s_%s", repoName, typ)
	}

	input := map[string]string{
		"task":       "string",
		"parameters": "object",
	}
	output := map[string]string{
		"result":  "object",
		"success": "bool",
		"error":   "string",
	}
	if analysis != nil && analysis.HasAPI {
		input["endpoint"] = "string"
		input["method"] = "string"
		input["body"] = "object"
		output["status_code"] = "int"
		output["response_body"] = "object"
	}

	cfg := &models.WrapperConfig{
		Type:          typ,
		Name:          name,
		RepoName:      repoName,
		EntryPoint:    entryPoint,
		InputMapping:  input,
		OutputMapping: output,
		ErrorHandling: "log_and_return",
		Registered:    false,
		CreatedAt:     time.Now().UTC(),
	}

	if err := w.st.PutWrapper(ctx, cfg); err != nil {
		return nil, fmt.Errorf("wrapper: saving %s: %w", name, err)
	}

	slog.Info("wrapper: capability built", "name", name, "type", typ, "repo", repoName, "api", analysis != nil && analysis.HasAPI)
	return cfg, nil
}

// Register marks the capability as registered and notifies the platform
// registry. The local flag is authoritative; a platform outage is logged
// and does not undo registration.
func (w *Wrapper) Register(ctx context.Context, name string) error {
	flipped, err := w.st.SetWrapperRegistered(ctx, name, true)
	if err != nil {
		return err
	}
	if !flipped {
		return fmt.Errorf("wrapper: unknown capability %s", name)
	}

	if w.registry != nil {
		cfg, err := w.st.GetWrapper(ctx, name)
		if err == nil {
			if err := w.registry.RegisterCapability(ctx, cfg); err != nil {
				slog.Warn("wrapper: platform registration failed", "name", name, "error", err)
			}
		}
	}

	slog.Info("wrapper: registered", "name", name)
	return nil
}

// Unregister clears the registered flag. Returns false when the capability
// does not exist or was not registered.
func (w *Wrapper) Unregister(ctx context.Context, name string) (bool, error) {
	cfg, err := w.st.GetWrapper(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !cfg.Registered {
		return false, nil
	}

	if _, err := w.st.SetWrapperRegistered(ctx, name, false); err != nil {
		return false, err
	}

	if w.registry != nil {
		if err := w.registry.UnregisterCapability(ctx, name); err != nil {
			slog.Warn("wrapper: platform unregistration failed", "name", name, "error", err)
		}
	}

	slog.Info("wrapper: unregistered", "name", name)
	return true, nil
}

// Remove unregisters the capability and deletes its descriptor. Returns
// false when no descriptor existed.
func (w *Wrapper) Remove(ctx context.Context, name string) (bool, error) {
	if _, err := w.Unregister(ctx, name); err != nil {
		return false, err
	}
	return w.st.DeleteWrapper(ctx, name)
}

// GetWrapper returns the capability descriptor by name.
func (w *Wrapper) GetWrapper(ctx context.Context, name string) (*models.WrapperConfig, error) {
	return w.st.GetWrapper(ctx, name)
}

// WrapperForRepo returns the newest capability built from repoName.
func (w *Wrapper) WrapperForRepo(ctx context.Context, repoName string) (*models.WrapperConfig, error) {
	return w.st.WrapperForRepo(ctx, repoName)
}

// ListWrappers lists capabilities, optionally only registered ones.
func (w *Wrapper) ListWrappers(ctx context.Context, registeredOnly bool) ([]*models.WrapperConfig, error) {
	return w.st.ListWrappers(ctx, registeredOnly)
}
