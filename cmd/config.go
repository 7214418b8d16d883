package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and manage repogate configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		// Redact secrets.
		for i := range cfg.Git.GitHub {
			if cfg.Git.GitHub[i].Token != "" {
				cfg.Git.GitHub[i].Token = "ghp-***"
			}
		}
		for i := range cfg.Git.GitLab {
			if cfg.Git.GitLab[i].Token != "" {
				cfg.Git.GitLab[i].Token = "glpat-***"
			}
		}
		if cfg.Platform.Token != "" {
			cfg.Platform.Token = "***"
		}
		// Notify channel secrets
		if cfg.Notify.Slack.WebhookURL != "" {
			cfg.Notify.Slack.WebhookURL = "https://hooks.slack.com/***"
		}
		if cfg.Notify.Email.Password != "" {
			cfg.Notify.Email.Password = "***"
		}
		if cfg.Notify.Webhook.Secret != "" {
			cfg.Notify.Webhook.Secret = "***"
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ConfigPath(cfgFile)
		if err != nil {
			return err
		}
		fmt.Println(p)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ConfigPath(cfgFile)
		if err != nil {
			return err
		}
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "nano"
		}
		fmt.Printf("Opening %s with %s...\n", p, editor)
		c := exec.Command(editor, p) // #nosec G204 -- editor is from $EDITOR env var, intentional user-controlled binary
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single config value by dotted key",
	Long: `Sets one value in the config file. Keys are dotted JSON paths; values
are parsed as JSON when possible (numbers, booleans, arrays), strings
otherwise.

Examples:
  repogate config set discovery.min_stars 50
  repogate config set pipeline.auto_approve true
  repogate config set clone.dir /var/lib/repogate/clones
  repogate config set discovery.keywords '["agent","automation"]'`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	cfgPath, err := config.ConfigPath(cfgFile)
	if err != nil {
		return err
	}
	// Loading first materialises the file with defaults if it is missing.
	if _, err := config.Load(cfgFile); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	prior, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfgPath, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(prior, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", cfgPath, err)
	}

	// JSON literal first, raw string otherwise.
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}

	parts := strings.Split(key, ".")
	node := doc
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = parsed

	updated, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgPath, updated, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", cfgPath, err)
	}

	// The edited file must still load; restore the previous version if not.
	if _, err := config.Load(cfgFile); err != nil {
		_ = os.WriteFile(cfgPath, prior, 0o600)
		return fmt.Errorf("rejected: %s would make the config unloadable: %w", key, err)
	}

	fmt.Printf("Set %s = %v\n", key, parsed)
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configEditCmd, configSetCmd)
}
