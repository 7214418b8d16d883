package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsOutput string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate admission statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsOutput, "output", "table", "output format: table|json|yaml")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, "")
	if err != nil {
		return err
	}
	defer env.close()

	stats, err := env.orch.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("collecting stats: %w", err)
	}
	risk, err := env.st.RiskSummary(ctx)
	if err != nil {
		return fmt.Errorf("collecting risk summary: %w", err)
	}
	installRate, err := env.st.InstallSuccessRate(ctx)
	if err != nil {
		return fmt.Errorf("collecting install rate: %w", err)
	}

	if statsOutput != "table" {
		combined := struct {
			Integrations any     `json:"integrations"`
			Risk         any     `json:"risk"`
			InstallRate  float64 `json:"install_success_rate"`
		}{stats, risk, installRate}
		if done, err := printOutput(combined, statsOutput); done {
			return err
		}
	}

	fmt.Println(headerStyle.Render("Admission statistics"))
	fmt.Println()
	fmt.Printf("  Integrations : %d total, %d active\n", stats.TotalIntegrations, stats.ActiveIntegrations)
	fmt.Printf("  Registered   : %d\n", stats.Successful)
	fmt.Printf("  Failed       : %d\n", stats.Failed)
	fmt.Printf("  Incompatible : %d\n", stats.Incompatible)
	fmt.Printf("  Success rate : %.1f%%\n", stats.SuccessRate)
	fmt.Printf("  Clone usage  : %.1f MB\n", stats.TotalClonesMB)
	fmt.Println()
	fmt.Printf("  Scans        : %d total, %d safe, %d flagged\n", risk.TotalScans, risk.SafeCount, risk.RiskyCount)
	fmt.Printf("  Install rate : %.1f%%\n", installRate)
	return nil
}
