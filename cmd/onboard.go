package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Interactive setup wizard for repogate",
	Long: `Walks you through configuring repogate:
  - Git provider credentials (GitHub, optionally GitLab)
  - Discovery defaults (language, star floor, standing queries)
  - Pipeline settings (wrapper type, workers, approval mode)
  - Notification channels (Slack, webhook)

Credentials are optional: without a token you can still discover and
evaluate public repositories, just at anonymous API rate limits.`,
	RunE: runOnboard,
}

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7C3AED")).
	MarginBottom(1)

var successStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#10B981"))

var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#F59E0B"))

var dimStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#6B7280"))

func runOnboard(cmd *cobra.Command, args []string) error {
	fmt.Println()
	fmt.Println(headerStyle.Render("  repogate — repository admission pipeline"))
	fmt.Println(dimStyle.Render("  Discover open-source repos, vet them, and onboard the good ones as capabilities.\n"))

	// Load existing config or start fresh.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = &config.Config{}
	}

	// Ensure ~/.repogate/ exists.
	if err := config.EnsureDir(); err != nil {
		return fmt.Errorf("creating repogate directories: %w", err)
	}

	// --- Step 1: GitHub token ---
	fmt.Println(headerStyle.Render("  Step 1/5 · GitHub Credentials"))
	fmt.Println(dimStyle.Render("  Leave the token blank for anonymous access — searches still work,"))
	fmt.Println(dimStyle.Render("  but GitHub caps unauthenticated requests at 60/hour.\n"))

	var githubToken string
	if len(cfg.Git.GitHub) > 0 {
		githubToken = cfg.Git.GitHub[0].Token
	}
	var githubHost string = "github.com"
	if len(cfg.Git.GitHub) > 0 && cfg.Git.GitHub[0].Host != "" {
		githubHost = cfg.Git.GitHub[0].Host
	}

	ghForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub Personal Access Token (leave blank to skip)").
				Description("Create one at https://github.com/settings/tokens/new with public_repo read access.").
				Placeholder("ghp_...  (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&githubToken),
			huh.NewInput().
				Title("GitHub host").
				Description("Use 'github.com' for public GitHub or your enterprise hostname").
				Value(&githubHost),
		),
	)
	if err := ghForm.Run(); err != nil {
		return err
	}
	cfg.Git.GitHub = []config.GitHubConfig{{Token: githubToken, Host: githubHost}}
	if githubToken == "" {
		fmt.Println(dimStyle.Render("  Anonymous mode. Add a token later by re-running 'repogate onboard'.\n"))
	}

	// --- Step 2: Optional GitLab ---
	fmt.Println(headerStyle.Render("\n  Step 2/5 · Additional Providers (optional)"))

	var addGitLab bool
	extraForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Add GitLab credentials?").
				Value(&addGitLab),
		),
	)
	if err := extraForm.Run(); err != nil {
		return err
	}

	if addGitLab {
		var glToken, glHost string = "", "gitlab.com"
		if len(cfg.Git.GitLab) > 0 {
			glToken = cfg.Git.GitLab[0].Token
			glHost = cfg.Git.GitLab[0].Host
		}
		glForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("GitLab token").Placeholder("glpat-...").EchoMode(huh.EchoModePassword).Value(&glToken),
			huh.NewInput().Title("GitLab host").Value(&glHost),
		))
		if err := glForm.Run(); err != nil {
			return err
		}
		cfg.Git.GitLab = []config.GitLabConfig{{Token: glToken, Host: glHost}}
	}

	// --- Step 3: Discovery defaults ---
	fmt.Println(headerStyle.Render("\n  Step 3/5 · Discovery Defaults"))
	fmt.Println(dimStyle.Render("  These shape what a sweep looks for. Standing queries can be"))
	fmt.Println(dimStyle.Render("  managed later with 'repogate queries add/remove/list'.\n"))

	language := cfg.Discovery.Language
	minStars := "10"
	if cfg.Discovery.MinStars > 0 {
		minStars = strconv.Itoa(cfg.Discovery.MinStars)
	}
	var firstQuery string
	if len(cfg.Discovery.Queries) > 0 {
		firstQuery = cfg.Discovery.Queries[0]
	}

	discForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Primary language to admit").
				Options(
					huh.NewOption("Python", "python"),
					huh.NewOption("JavaScript", "javascript"),
					huh.NewOption("TypeScript", "typescript"),
					huh.NewOption("Go", "go"),
					huh.NewOption("Rust", "rust"),
					huh.NewOption("Any language", ""),
				).
				Value(&language),
			huh.NewInput().
				Title("Minimum stars").
				Description("Candidates below this star count are filtered out.").
				Validate(func(s string) error {
					if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("enter a whole number")
					}
					return nil
				}).
				Value(&minStars),
			huh.NewInput().
				Title("Standing search query (optional)").
				Description("Example: topic:agent stars:>100. Sweeps run every standing query.").
				Placeholder("topic:automation").
				Value(&firstQuery),
		),
	)
	if err := discForm.Run(); err != nil {
		return err
	}
	cfg.Discovery.Language = language
	if n, err := strconv.Atoi(strings.TrimSpace(minStars)); err == nil {
		cfg.Discovery.MinStars = n
	}
	if q := strings.TrimSpace(firstQuery); q != "" {
		found := false
		for _, existing := range cfg.Discovery.Queries {
			if existing == q {
				found = true
				break
			}
		}
		if !found {
			cfg.Discovery.Queries = append(cfg.Discovery.Queries, q)
		}
	}

	// --- Step 4: Pipeline settings ---
	fmt.Println(headerStyle.Render("\n  Step 4/5 · Pipeline Settings"))

	wrapAs := cfg.Pipeline.WrapAs
	if wrapAs == "" {
		wrapAs = "agent"
	}
	workers := "3"
	if cfg.Pipeline.Workers > 0 {
		workers = strconv.Itoa(cfg.Pipeline.Workers)
	}
	autoApprove := cfg.Pipeline.AutoApprove
	executeInstalls := cfg.Install.Execute

	pipeForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default wrapper type").
				Description("How registered repositories are exposed to the platform.").
				Options(
					huh.NewOption("agent — autonomous capability with its own loop", "agent"),
					huh.NewOption("tool — single callable operation", "tool"),
					huh.NewOption("library — importable code, no entry point", "library"),
					huh.NewOption("cli — command-line program", "cli"),
					huh.NewOption("api — long-running service with endpoints", "api"),
				).
				Value(&wrapAs),
			huh.NewInput().
				Title("Parallel workers").
				Description("How many repositories a sweep admits concurrently.").
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return fmt.Errorf("enter a whole number of at least 1")
					}
					return nil
				}).
				Value(&workers),
			huh.NewConfirm().
				Title("Auto-approve critical findings?").
				Description("When off, a critical security risk stops the pipeline until you approve.").
				Value(&autoApprove),
			huh.NewConfirm().
				Title("Execute install steps?").
				Description("When off, installs are planned and recorded but never run.").
				Value(&executeInstalls),
		),
	)
	if err := pipeForm.Run(); err != nil {
		return err
	}
	cfg.Pipeline.WrapAs = wrapAs
	if n, err := strconv.Atoi(strings.TrimSpace(workers)); err == nil && n > 0 {
		cfg.Pipeline.Workers = n
	}
	cfg.Pipeline.AutoApprove = autoApprove
	cfg.Install.Execute = executeInstalls

	if autoApprove {
		fmt.Println(warnStyle.Render("  Auto-approve is on: critical findings will not stop installation."))
		fmt.Println()
	}

	// --- Step 5: Notifications ---
	fmt.Println(headerStyle.Render("\n  Step 5/5 · Notifications (optional)"))

	var addSlack, addWebhook bool
	notifForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Send admission outcomes to Slack?").
				Value(&addSlack),
			huh.NewConfirm().
				Title("POST admission outcomes to a webhook?").
				Value(&addWebhook),
		),
	)
	if err := notifForm.Run(); err != nil {
		return err
	}

	if addSlack {
		slackURL := cfg.Notify.Slack.WebhookURL
		slackForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Slack incoming webhook URL").
				Placeholder("https://hooks.slack.com/services/...").
				EchoMode(huh.EchoModePassword).
				Value(&slackURL),
		))
		if err := slackForm.Run(); err != nil {
			return err
		}
		cfg.Notify.Slack.WebhookURL = slackURL
	}

	if addWebhook {
		hookURL := cfg.Notify.Webhook.URL
		hookSecret := cfg.Notify.Webhook.Secret
		hookForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Webhook URL").
				Placeholder("https://example.com/hooks/repogate").
				Value(&hookURL),
			huh.NewInput().
				Title("Signing secret (optional)").
				Description("Sent as an HMAC-SHA256 signature header when set.").
				EchoMode(huh.EchoModePassword).
				Value(&hookSecret),
		))
		if err := hookForm.Run(); err != nil {
			return err
		}
		cfg.Notify.Webhook.URL = hookURL
		cfg.Notify.Webhook.Secret = hookSecret
	}

	// Save config
	if cfg.Clone.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Clone.Dir = filepath.Join(home, config.DefaultCloneDir)
		}
	}
	cfgPath, _ := config.ConfigPath(cfgFile)
	if err := config.Save(cfg, cfgPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	// Print completion summary
	fmt.Println()
	fmt.Println(headerStyle.Render("  Setup complete!"))
	fmt.Printf("  Config saved to: %s\n", dimStyle.Render(cfgPath))
	fmt.Printf("  Clones go to:    %s\n\n", dimStyle.Render(cfg.Clone.Dir))

	fmt.Println(dimStyle.Render("  Next steps:"))
	fmt.Println(dimStyle.Render("    repogate doctor                    — verify credentials and storage"))
	fmt.Println(dimStyle.Render("    repogate discover                  — search for candidate repositories"))
	fmt.Println(dimStyle.Render("    repogate evaluate <owner/name>     — vet one without installing"))
	fmt.Println(dimStyle.Render("    repogate integrate <owner/name>    — run the full admission pipeline"))
	fmt.Println(dimStyle.Render("    repogate watch                     — start the continuous loop"))
	fmt.Println(dimStyle.Render("    repogate ui                        — launch the terminal dashboard"))
	fmt.Println()

	slog.Debug("Onboarding complete", "config", cfgPath)
	return nil
}
