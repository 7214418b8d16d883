package cmd

import (
	"fmt"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/spf13/cobra"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Manage standing discovery queries",
	Long:  `Add, remove, and list the search queries a sweep runs against the hosting platform.`,
}

var queriesAddCmd = &cobra.Command{
	Use:   "add <query>",
	Short: "Add a standing query (e.g. \"topic:agent stars:>100\")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		target := args[0]
		for _, q := range cfg.Discovery.Queries {
			if q == target {
				fmt.Printf("%q is already a standing query\n", target)
				return nil
			}
		}
		cfg.Discovery.Queries = append(cfg.Discovery.Queries, target)
		cfgPath, _ := config.ConfigPath(cfgFile)
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("Added query %q\n", target)
		return nil
	},
}

var queriesRemoveCmd = &cobra.Command{
	Use:   "remove <query>",
	Short: "Remove a standing query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		target := args[0]
		newList := make([]string, 0, len(cfg.Discovery.Queries))
		found := false
		for _, q := range cfg.Discovery.Queries {
			if q == target {
				found = true
				continue
			}
			newList = append(newList, q)
		}
		if !found {
			fmt.Printf("%q is not a standing query\n", target)
			return nil
		}
		cfg.Discovery.Queries = newList
		cfgPath, _ := config.ConfigPath(cfgFile)
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("Removed query %q\n", target)
		return nil
	},
}

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all standing queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if len(cfg.Discovery.Queries) == 0 {
			fmt.Println("No standing queries. Add one with: repogate queries add \"topic:agent\"")
			return nil
		}
		fmt.Println("Standing queries:")
		for _, q := range cfg.Discovery.Queries {
			fmt.Printf("  - %s\n", q)
		}
		return nil
	},
}

func init() {
	queriesCmd.AddCommand(queriesAddCmd, queriesRemoveCmd, queriesListCmd)
}
