package cmd

import (
	"context"
	"fmt"

	"github.com/CosmoTheDev/repogate/models"
	"github.com/spf13/cobra"
)

var (
	updatesProvider string
	updatesOutput   string
)

var updatesCmd = &cobra.Command{
	Use:   "updates [name]",
	Short: "Check registered clones against the provider's current head",
	Long: `Compares the pinned commit of each registered integration with the
latest commit on the provider. With a name, checks just that one.

Examples:
  repogate updates
  repogate updates taskrunner`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdates,
}

func init() {
	updatesCmd.Flags().StringVar(&updatesProvider, "provider", "", "hosting platform: github|gitlab (default github)")
	updatesCmd.Flags().StringVar(&updatesOutput, "output", "table", "output format: table|json|yaml")
}

func runUpdates(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, updatesProvider)
	if err != nil {
		return err
	}
	defer env.close()

	if len(args) == 1 {
		check, err := env.orch.CheckForUpdates(ctx, args[0])
		if err != nil {
			return fmt.Errorf("checking %s: %w", args[0], err)
		}
		if done, err := printOutput(check, updatesOutput); done {
			return err
		}
		printUpdate(*check)
		return nil
	}

	checks, err := env.orch.CheckAllUpdates(ctx)
	if err != nil {
		return fmt.Errorf("checking updates: %w", err)
	}
	if done, err := printOutput(checks, updatesOutput); done {
		return err
	}
	if len(checks) == 0 {
		fmt.Println("No registered integrations to check.")
		return nil
	}
	behind := 0
	for _, c := range checks {
		printUpdate(c)
		if c.HasUpdate {
			behind++
		}
	}
	fmt.Println()
	if behind == 0 {
		fmt.Println(successStyle.Render("All integrations are current."))
	} else {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d integration(s) behind upstream. Re-run integrate to refresh.", behind)))
	}
	return nil
}

func printUpdate(c models.UpdateCheck) {
	switch {
	case c.Reason != "":
		fmt.Printf("  %-30s %s\n", c.RepoName, dimStyle.Render(c.Reason))
	case c.HasUpdate:
		fmt.Printf("  %-30s %.8s -> %.8s\n", c.RepoName, c.CurrentCommit, c.LatestCommit)
	default:
		fmt.Printf("  %-30s up to date @ %.8s\n", c.RepoName, c.CurrentCommit)
	}
}
