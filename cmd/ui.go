package cmd

import (
	"context"
	"fmt"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/database"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/internal/tui"
	"github.com/spf13/cobra"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long:  `Opens the interactive terminal UI for monitoring integrations, browsing reports, and following the admission event log.`,
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	app := tui.NewApp(cfg, store.New(db))
	return app.Run()
}
