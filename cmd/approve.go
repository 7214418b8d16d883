package cmd

import (
	"context"
	"fmt"
	"os/user"

	"github.com/spf13/cobra"
)

var (
	approveBy     string
	approveRevoke bool
)

var approveCmd = &cobra.Command{
	Use:   "approve <name>",
	Short: "Approve or revoke installation past the critical-risk gate",
	Long: `Records a manual approval for a repository whose scan came back
critical. The next integration run for that repository proceeds past
the security gate; the findings stay attached to the report.

Examples:
  repogate approve taskrunner
  repogate approve taskrunner --by alice
  repogate approve taskrunner --revoke`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func init() {
	approveCmd.Flags().StringVar(&approveBy, "by", "", "who is approving (default: local user)")
	approveCmd.Flags().BoolVar(&approveRevoke, "revoke", false, "withdraw a previously recorded approval")
}

func runApprove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, "")
	if err != nil {
		return err
	}
	defer env.close()

	name := args[0]
	if approveRevoke {
		removed, err := env.st.RevokeApproval(ctx, name)
		if err != nil {
			return fmt.Errorf("revoking approval: %w", err)
		}
		if !removed {
			return fmt.Errorf("no approval on record for %s", name)
		}
		fmt.Printf("Approval for %s revoked.\n", name)
		return nil
	}

	by := approveBy
	if by == "" {
		if u, err := user.Current(); err == nil {
			by = u.Username
		} else {
			by = "cli"
		}
	}
	if err := env.st.Approve(ctx, name, by); err != nil {
		return fmt.Errorf("recording approval: %w", err)
	}
	fmt.Printf("%s approved by %s. Re-run: repogate integrate <owner>/%s\n", name, by, name)
	return nil
}
