package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/database"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify credentials, storage, and system health",
	Long: `Checks that the database can be reached, provider credentials are
set, the admission policy parses, and the clone directory is writable.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	allOK := true

	fmt.Println("=== repogate doctor ===")
	fmt.Println()

	// Check database
	fmt.Print("Database ................. ")
	db, err := database.New(cfg.Database)
	if err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		allOK = false
	} else {
		if err := db.Ping(ctx); err != nil {
			fmt.Printf("FAIL (%s)\n", err)
			allOK = false
		} else {
			fmt.Printf("OK (%s: %s)\n", db.Driver(), cfg.Database.Path)
		}
		db.Close()
	}

	// Check GitHub token
	fmt.Print("GitHub token ............. ")
	if len(cfg.Git.GitHub) == 0 || cfg.Git.GitHub[0].Token == "" {
		fmt.Println("WARN (anonymous access; API rate limits apply — run 'repogate onboard')")
	} else {
		host := cfg.Git.GitHub[0].Host
		if host == "" {
			host = "github.com"
		}
		fmt.Printf("OK (%s)\n", host)
	}

	// Check GitLab token
	fmt.Print("GitLab token ............. ")
	switch {
	case len(cfg.Git.GitLab) == 0:
		fmt.Println("not configured (optional)")
	case cfg.Git.GitLab[0].Token == "":
		fmt.Println("WARN (host configured but token missing)")
		allOK = false
	default:
		fmt.Printf("OK (%s)\n", cfg.Git.GitLab[0].Host)
	}

	// Check admission policy
	fmt.Print("Admission policy ......... ")
	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		allOK = false
	} else if cfg.Policy.File == "" {
		fmt.Printf("OK (bundled %s v%d)\n", pol.Name, pol.Version)
	} else {
		fmt.Printf("OK (%s: %s v%d)\n", cfg.Policy.File, pol.Name, pol.Version)
	}

	// Check clone directory
	fmt.Print("Clone directory .......... ")
	cloneDir := cfg.Clone.Dir
	if err := os.MkdirAll(cloneDir, 0o755); err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		allOK = false
	} else {
		probe := filepath.Join(cloneDir, ".doctor-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			fmt.Printf("FAIL (not writable: %s)\n", err)
			allOK = false
		} else {
			os.Remove(probe)
			fmt.Printf("OK (%s)\n", cloneDir)
		}
	}

	// Check install execution
	fmt.Print("Install execution ........ ")
	if cfg.Install.Execute {
		fmt.Println("on (install steps run in the clone)")
	} else {
		fmt.Println("off (steps are planned and recorded only)")
	}

	// Check platform registry
	fmt.Print("Platform registry ........ ")
	if cfg.Platform.URL == "" {
		fmt.Println("not configured (wrappers register locally)")
	} else {
		client := &http.Client{Timeout: 3 * time.Second}
		req, _ := http.NewRequestWithContext(ctx, http.MethodHead, cfg.Platform.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			fmt.Printf("WARN (unreachable: %s)\n", err)
			allOK = false
		} else {
			resp.Body.Close()
			fmt.Printf("OK (%s)\n", cfg.Platform.URL)
		}
	}

	// Check notifications
	fmt.Print("Notifications ............ ")
	var channels []string
	if cfg.Notify.Slack.WebhookURL != "" {
		channels = append(channels, "slack")
	}
	if cfg.Notify.Webhook.URL != "" {
		channels = append(channels, "webhook")
	}
	if cfg.Notify.Email.SMTPHost != "" {
		channels = append(channels, "email")
	}
	if len(channels) == 0 {
		fmt.Println("none configured (optional)")
	} else {
		fmt.Printf("OK (%v)\n", channels)
	}

	fmt.Println()
	if allOK {
		fmt.Println(successStyle.Render("All checks passed — repogate is ready!"))
	} else {
		fmt.Println(warnStyle.Render("Some checks failed — run 'repogate onboard' to fix."))
	}

	return nil
}
