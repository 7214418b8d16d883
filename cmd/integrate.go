package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/CosmoTheDev/repogate/internal/clone"
	"github.com/CosmoTheDev/repogate/internal/pipeline"
	"github.com/CosmoTheDev/repogate/models"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	integrateProvider string
	integrateApprove  bool
	integrateWrapAs   string
	integrateEntry    string
	integrateMethod   string
	integrateBranch   string
	integratePin      string
	integrateSparse   []string
	integrateDepth    int
	integrateSubmod   bool
	integrateOutput   string
)

var integrateCmd = &cobra.Command{
	Use:   "integrate <owner/name>",
	Short: "Run the full admission pipeline for one repository",
	Long: `Carries a repository through discovery, analysis, compatibility,
security scanning, clone, install, wrap, and registration. The run
always produces a report; a rejection is a report status, not an error.

A critical security risk stops the pipeline and asks for approval.
Pass --approve to pre-approve, or confirm interactively when prompted.

Examples:
  repogate integrate acme/taskrunner
  repogate integrate acme/taskrunner --wrap-as tool --entry cli.py
  repogate integrate acme/taskrunner --branch develop --pin v1.2.0
  repogate integrate acme/taskrunner --sparse src,docs --approve`,
	Args: cobra.ExactArgs(1),
	RunE: runIntegrate,
}

func init() {
	integrateCmd.Flags().StringVar(&integrateProvider, "provider", "", "hosting platform: github|gitlab (default github)")
	integrateCmd.Flags().BoolVar(&integrateApprove, "approve", false, "pre-approve installation past the critical-risk gate")
	integrateCmd.Flags().StringVar(&integrateWrapAs, "wrap-as", "", "capability type: agent|tool|library|cli|api")
	integrateCmd.Flags().StringVar(&integrateEntry, "entry", "", "entry point the wrapper invokes (default: main)")
	integrateCmd.Flags().StringVar(&integrateMethod, "method", "", "force install method: pip|poetry|setup_py|npm|docker|make|cargo")
	integrateCmd.Flags().StringVar(&integrateBranch, "branch", "", "branch to clone (default: repository default branch)")
	integrateCmd.Flags().StringVar(&integratePin, "pin", "", "pin the clone to a tag or commit")
	integrateCmd.Flags().StringSliceVar(&integrateSparse, "sparse", nil, "sparse-checkout paths (comma-separated)")
	integrateCmd.Flags().IntVar(&integrateDepth, "depth", 0, "clone depth (0 = config default)")
	integrateCmd.Flags().BoolVar(&integrateSubmod, "submodules", false, "clone submodules recursively")
	integrateCmd.Flags().StringVar(&integrateOutput, "output", "table", "output format: table|json|yaml")
}

func runIntegrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, integrateProvider)
	if err != nil {
		return err
	}
	defer env.close()

	owner, name, err := splitOwnerName(args[0])
	if err != nil {
		return err
	}
	repo, err := env.prov.GetRepo(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", args[0], err)
	}

	req := pipeline.IntegrateRequest{
		Repo:       repo,
		Approved:   integrateApprove,
		WrapAs:     models.WrapperType(integrateWrapAs),
		EntryPoint: integrateEntry,
		Method:     models.InstallMethod(integrateMethod),
		Clone: clone.Options{
			Branch:      integrateBranch,
			PinVersion:  integratePin,
			SparsePaths: integrateSparse,
			Depth:       integrateDepth,
			Submodules:  integrateSubmod,
		},
	}

	fmt.Printf("Integrating %s...\n\n", repo.FullName)
	report := env.orch.Integrate(ctx, req)

	// The approval gate terminates the run; offer to approve and rerun.
	if report.Status == models.StatusFailed && !req.Approved && isApprovalGate(report) {
		fmt.Println(warnStyle.Render("Critical security risk detected:"))
		if report.Security != nil {
			for _, f := range report.Security.Findings {
				fmt.Printf("  [%s] %s %s\n", f.Severity, f.Rule, f.Path)
			}
		}
		fmt.Println()

		var confirmed bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Approve installation of %s anyway?", repo.Name)).
				Description("The findings above stay attached to the report for audit.").
				Value(&confirmed),
		))
		if err := form.Run(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		if confirmed {
			if err := env.orch.Approve(ctx, repo.Name, "cli"); err != nil {
				return fmt.Errorf("recording approval: %w", err)
			}
			fmt.Println()
			report = env.orch.Integrate(ctx, req)
		}
	}

	if done, err := printOutput(report, integrateOutput); done {
		return err
	}
	printReport(report)

	if report.Status != models.StatusRegistered {
		return fmt.Errorf("integration ended at %s", report.Status)
	}
	return nil
}

// isApprovalGate reports whether the run stopped at the manual-approval
// gate rather than a hard failure.
func isApprovalGate(report *models.IntegrationReport) bool {
	return strings.Contains(report.Recommendation, "approval required")
}

func printReport(report *models.IntegrationReport) {
	fmt.Printf("=== %s ===\n", report.RepoName)
	fmt.Printf("  Status : %s (%d ms)\n", report.Status, report.ProcessingMS)
	if report.Analysis != nil {
		fmt.Printf("  Quality: %s\n", report.Analysis.QualityGrade)
	}
	if report.Compatibility != nil {
		fmt.Printf("  Compat : %.2f\n", report.Compatibility.OverallScore)
		for _, issue := range report.Compatibility.Issues {
			fmt.Printf("           issue: %s\n", issue)
		}
	}
	if report.Security != nil {
		fmt.Printf("  Risk   : %s (%d finding(s))\n", report.Security.RiskLevel, len(report.Security.Findings))
	}
	if report.Clone != nil {
		fmt.Printf("  Clone  : %s @ %.8s (%.1f MB)\n", report.Clone.Branch, report.Clone.Commit, report.Clone.SizeMB)
	}
	if report.Install != nil {
		fmt.Printf("  Install: %s, %d step(s)\n", report.Install.Method, len(report.Install.Steps))
	}
	if report.Wrapper != nil {
		fmt.Printf("  Wrapper: %s (%s, registered=%v)\n", report.Wrapper.Name, report.Wrapper.Type, report.Wrapper.Registered)
	}
	fmt.Println()
	switch report.Status {
	case models.StatusRegistered:
		fmt.Println(successStyle.Render(report.Recommendation))
	default:
		fmt.Println(warnStyle.Render(report.Recommendation))
	}
}
