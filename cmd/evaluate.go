package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	evalProvider string
	evalOutput   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <owner/name>",
	Short: "Analyze and check a repository without installing anything",
	Long: `Runs analysis, the compatibility check, and the security scan for a
repository, read-only: nothing is cloned or installed. Use this to vet a
candidate before 'repogate integrate'.

Examples:
  repogate evaluate acme/taskrunner
  repogate evaluate acme/taskrunner --output yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalProvider, "provider", "", "hosting platform: github|gitlab (default github)")
	evaluateCmd.Flags().StringVar(&evalOutput, "output", "table", "output format: table|json|yaml")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, evalProvider)
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

	ev, err := env.orch.EvaluateAndCheck(ctx, repo, nil)
	if err != nil {
		return err
	}

	if done, err := printOutput(ev, evalOutput); done {
		return err
	}

	fmt.Printf("=== %s ===\n", repo.FullName)
	fmt.Printf("  %s · %d stars · %s license\n\n", repo.Language, repo.Stars, repo.License)

	a := ev.Analysis
	fmt.Println("Analysis:")
	fmt.Printf("  Quality     : %s (%.2f)\n", a.QualityGrade, a.QualityScore)
	fmt.Printf("  Languages   : %s\n", strings.Join(a.Languages, ", "))
	if len(a.Frameworks) > 0 {
		fmt.Printf("  Frameworks  : %s\n", strings.Join(a.Frameworks, ", "))
	}
	if len(a.Databases) > 0 {
		fmt.Printf("  Databases   : %s\n", strings.Join(a.Databases, ", "))
	}
	fmt.Printf("  Dependencies: %d declared\n", len(a.Dependencies))
	fmt.Printf("  Tests %v · Docs %v · CI %v · API %v\n\n", a.HasTests, a.HasDocs, a.HasCI, a.HasAPI)

	c := ev.Compatibility
	fmt.Println("Compatibility:")
	fmt.Printf("  Score       : %.2f (runtime %v, deps %v, os %v, license %v, resources %v)\n",
		c.OverallScore, c.RuntimeOK, c.DependenciesOK, c.OSOK, c.LicenseOK, c.ResourcesOK)
	for _, issue := range c.Issues {
		fmt.Printf("  Issue       : %s\n", issue)
	}
	for _, w := range c.Warnings {
		fmt.Printf("  Warning     : %s\n", w)
	}
	fmt.Println()

	s := ev.Security
	fmt.Println("Security:")
	fmt.Printf("  Risk        : %s (%d finding(s), %d file(s) scanned)\n", s.RiskLevel, len(s.Findings), s.FilesScanned)
	fmt.Printf("  Safe to install: %v", s.SafeToInstall)
	if s.RequiresSandbox {
		fmt.Print(" (sandbox recommended)")
	}
	fmt.Println()
	for _, f := range s.Findings {
		loc := f.Path
		if loc == "" {
			loc = f.Source
		}
		fmt.Printf("  [%s] %s — %s\n", f.Severity, f.Rule, loc)
	}
	fmt.Println()

	if ev.Recommended {
		fmt.Println(successStyle.Render("Recommended: run 'repogate integrate " + repo.FullName + "'"))
	} else {
		fmt.Println(warnStyle.Render("Not recommended for integration."))
	}
	return nil
}
