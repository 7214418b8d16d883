package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/database"
	"github.com/CosmoTheDev/repogate/internal/notify"
	"github.com/CosmoTheDev/repogate/internal/pipeline"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/internal/store"
	"go.yaml.in/yaml/v3"
)

// runtimeEnv bundles everything a pipeline-backed command needs. Always
// call close when done.
type runtimeEnv struct {
	cfg   *config.Config
	st    *store.Store
	pol   *policy.Policy
	prov  repository.Provider
	orch  *pipeline.Orchestrator
	close func()
}

// buildEnv loads config, opens the store, and wires the orchestrator with
// the production collaborators. providerName selects the hosting platform
// ("github" when empty).
func buildEnv(ctx context.Context, providerName string, overrides ...func(*config.Config)) (*runtimeEnv, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	for _, fn := range overrides {
		fn(cfg)
	}

	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}

	prov, err := repository.New(providerName, cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	st := store.New(db)

	opts := pipeline.Options{}
	if d := notify.NewDispatcher(cfg.Notify); d.IsAnyConfigured() {
		opts.Notifier = d
	}

	return &runtimeEnv{
		cfg:   cfg,
		st:    st,
		pol:   pol,
		prov:  prov,
		orch:  pipeline.New(cfg, st, pol, prov, opts),
		close: func() { db.Close() },
	}, nil
}

// printOutput renders v as json or yaml. Table rendering is per-command;
// callers fall through to their own formatting for anything else.
func printOutput(v any, format string) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		raw, err := yaml.Marshal(v)
		if err != nil {
			return true, err
		}
		_, err = os.Stdout.Write(raw)
		return true, err
	}
	return false, nil
}
