package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/CosmoTheDev/repogate/internal/discovery"
	"github.com/CosmoTheDev/repogate/models"
	"github.com/spf13/cobra"
)

var (
	discoverProvider string
	discoverLanguage string
	discoverLimit    int
	discoverKeywords []string
	discoverTrending bool
	discoverDays     int
	discoverOutput   string
)

var discoverCmd = &cobra.Command{
	Use:   "discover [query]",
	Short: "Search hosting platforms for candidate repositories",
	Long: `Searches the configured provider and prints candidates filtered,
scored, and ranked best first. Without a query the configured discovery
queries run instead.

Examples:
  repogate discover "task automation"
  repogate discover --language python --limit 10
  repogate discover --trending --days 14
  repogate discover "agent framework" --keywords agent,llm --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverProvider, "provider", "", "hosting platform: github|gitlab (default github)")
	discoverCmd.Flags().StringVar(&discoverLanguage, "language", "", "restrict results to a primary language")
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 0, "maximum results (0 = config default)")
	discoverCmd.Flags().StringSliceVar(&discoverKeywords, "keywords", nil, "relevance keywords (comma-separated)")
	discoverCmd.Flags().BoolVar(&discoverTrending, "trending", false, "find recently created repositories gaining stars")
	discoverCmd.Flags().IntVar(&discoverDays, "days", 30, "trending window in days")
	discoverCmd.Flags().StringVar(&discoverOutput, "output", "table", "output format: table|json|yaml")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx, discoverProvider)
	if err != nil {
		return err
	}
	defer env.close()

	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	var repos []models.Repository
	if discoverTrending {
		dcfg := env.cfg.Discovery
		if discoverLimit > 0 {
			dcfg.MaxResults = discoverLimit
		}
		svc := discovery.New(env.prov, dcfg, env.pol)
		repos, err = svc.Trending(ctx, discoverLanguage, discoverDays)
	} else {
		repos, err = env.orch.DiscoverAndRank(ctx, query, discoverLanguage, discoverLimit, discoverKeywords)
	}
	if err != nil {
		return fmt.Errorf("discovering repositories: %w", err)
	}

	if done, err := printOutput(repos, discoverOutput); done {
		return err
	}

	if len(repos) == 0 {
		fmt.Println("No candidates found. Loosen --limit or min_stars and try again.")
		return nil
	}

	fmt.Printf("%d candidate(s):\n\n", len(repos))
	fmt.Printf("  %-36s %-10s %7s %6s %6s  %s\n", "Repository", "Language", "Stars", "Activ", "Relev", "Description")
	for _, r := range repos {
		desc := r.Description
		if len(desc) > 48 {
			desc = desc[:47] + "…"
		}
		fmt.Printf("  %-36s %-10s %7d %6.2f %6.2f  %s\n",
			r.FullName, r.Language, r.Stars, r.ActivityScore, r.RelevanceScore, desc)
	}
	fmt.Println()
	fmt.Println("Evaluate one with: repogate evaluate <owner/name>")
	return nil
}

// splitOwnerName resolves an owner/name argument against the provider.
func splitOwnerName(arg string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("expected owner/name, got %q", arg)
	}
	return owner, name, nil
}
