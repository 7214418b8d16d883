package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/CosmoTheDev/repogate/models"
	"github.com/spf13/cobra"
)

var (
	reposStatus string
	reposAll    bool
	reposOutput string
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Inspect onboarded repositories and their reports",
	RunE:  runReposList,
}

var reposShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the full integration report for one repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runReposShow,
}

var reposEventsCmd = &cobra.Command{
	Use:   "events <name>",
	Short: "Print the admission event history for one repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runReposEvents,
}

func init() {
	reposCmd.Flags().StringVar(&reposStatus, "status", "", "filter by status: registered|failed|incompatible|...")
	reposCmd.Flags().BoolVar(&reposAll, "all", false, "include retired reports")
	reposCmd.Flags().StringVar(&reposOutput, "output", "table", "output format: table|json|yaml")
	reposShowCmd.Flags().StringVar(&reposOutput, "output", "table", "output format: table|json|yaml")
	reposCmd.AddCommand(reposShowCmd, reposEventsCmd)
}

func runReposList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, "")
	if err != nil {
		return err
	}
	defer env.close()

	reports, err := env.st.ListReports(ctx, !reposAll)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}
	if reposStatus != "" {
		want := models.RepoStatus(reposStatus)
		kept := reports[:0]
		for _, r := range reports {
			if r.Status == want {
				kept = append(kept, r)
			}
		}
		reports = kept
	}

	if done, err := printOutput(reports, reposOutput); done {
		return err
	}

	if len(reports) == 0 {
		fmt.Println("No integrations recorded. Start with: repogate integrate <owner/name>")
		return nil
	}
	fmt.Printf("%-34s %-14s %-10s %8s  %s\n", "REPOSITORY", "STATUS", "RISK", "TIME", "RECOMMENDATION")
	for _, r := range reports {
		risk := "-"
		if r.Security != nil {
			risk = string(r.Security.RiskLevel)
		}
		rec := r.Recommendation
		if len(rec) > 44 {
			rec = rec[:43] + "…"
		}
		fmt.Printf("%-34s %-14s %-10s %6dms  %s\n", r.RepoName, r.Status, risk, r.ProcessingMS, rec)
	}
	return nil
}

func runReposShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, "")
	if err != nil {
		return err
	}
	defer env.close()

	report, err := env.st.GetReport(ctx, args[0])
	if err != nil {
		return fmt.Errorf("no integration found for %s", args[0])
	}

	if done, err := printOutput(report, reposOutput); done {
		return err
	}
	printReport(report)
	return nil
}

func runReposEvents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, "")
	if err != nil {
		return err
	}
	defer env.close()

	events, err := env.st.Events(ctx, args[0])
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}
	if len(events) == 0 {
		fmt.Printf("No events recorded for %s.\n", args[0])
		return nil
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s  %-14s", ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Status)
		if ev.Detail != "" {
			line += "  " + strings.TrimSpace(ev.Detail)
		}
		fmt.Println(line)
	}
	return nil
}
