package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	rollbackYes    bool
	rollbackOutput string
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <name>",
	Short: "Undo an integration: unregister, uninstall, remove the clone",
	Long: `Reverses a completed or partial integration in reverse stage order.
Each step reports success or failure independently; the attempt is
recorded in the event log either way.

Examples:
  repogate rollback taskrunner
  repogate rollback taskrunner --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVarP(&rollbackYes, "yes", "y", false, "skip the confirmation prompt")
	rollbackCmd.Flags().StringVar(&rollbackOutput, "output", "table", "output format: table|json|yaml")
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, "")
	if err != nil {
		return err
	}
	defer env.close()

	name := args[0]
	if _, err := env.st.GetReport(ctx, name); err != nil {
		return fmt.Errorf("no integration found for %s", name)
	}

	if !rollbackYes {
		var confirmed bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Roll back %s?", name)).
				Description("Removes the wrapper, installed packages, and local clone.").
				Value(&confirmed),
		))
		if err := form.Run(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	rb := env.orch.Rollback(ctx, name)

	if done, err := printOutput(rb, rollbackOutput); done {
		return err
	}

	fmt.Printf("Rolling back %s\n\n", name)
	for _, step := range rb.Steps {
		mark := successStyle.Render("ok")
		if !step.Success {
			mark = warnStyle.Render("failed: " + step.Detail)
		}
		fmt.Printf("  %-20s %s\n", step.Action, mark)
	}
	fmt.Println()
	if rb.Success {
		fmt.Println(successStyle.Render("Rollback complete."))
		return nil
	}
	return fmt.Errorf("rollback finished with errors")
}
