package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/pipeline"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var (
	watchProvider     string
	watchWorkers      int
	watchAutoApprove  bool
	watchInitialSweep bool
	watchPoll         bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the continuous admission loop",
	Long: `Starts the long-running watcher. The watcher will:
  1. Sweep the configured discovery queries for candidate repositories
  2. Carry each new candidate through the full admission pipeline
  3. Record every report, finding, and event in the local database

  Repositories already registered are skipped; rejected ones keep
  their rejection report until you roll them back or re-integrate.

  With updates.expr set in the config, registered clones are also
  checked against upstream on that cron schedule.

Examples:
  repogate watch                       # sweep once, then wait for triggers
  repogate watch --poll                # re-sweep on the poll interval
  repogate watch --workers 8 --poll
  repogate watch --auto-approve        # critical findings do not gate`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchProvider, "provider", "", "hosting platform: github|gitlab (default github)")
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 0, "parallel pipeline workers (overrides config)")
	watchCmd.Flags().BoolVar(&watchAutoApprove, "auto-approve", false, "proceed past critical findings without approval")
	watchCmd.Flags().BoolVar(&watchInitialSweep, "initial-sweep", true, "sweep immediately on startup")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "re-sweep on the poll interval instead of waiting for triggers")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down watcher gracefully...")
		cancel()
	}()

	env, err := buildEnv(ctx, watchProvider, func(cfg *config.Config) {
		if watchWorkers > 0 {
			cfg.Pipeline.Workers = watchWorkers
		}
		if watchAutoApprove {
			cfg.Pipeline.AutoApprove = true
		}
	})
	if err != nil {
		return err
	}
	defer env.close()

	fmt.Printf("repogate watcher starting (workers: %d, queries: %d)\n\n",
		env.cfg.Pipeline.Workers, len(env.cfg.Discovery.Queries))

	if len(env.cfg.Discovery.Queries) == 0 {
		fmt.Println(warnStyle.Render("  No standing queries configured."))
		fmt.Println(dimStyle.Render("  Sweeps fall back to trending repositories for the configured language."))
		fmt.Println(dimStyle.Render("  Add queries with: repogate queries add \"topic:agent stars:>100\""))
		fmt.Println()
	}
	if env.cfg.Pipeline.AutoApprove {
		fmt.Println(warnStyle.Render("  Auto-approve is on: critical findings will not stop installation."))
		fmt.Println()
	}

	// Periodic update checks ride alongside the sweep loop.
	if expr := env.cfg.Updates.Expr; expr != "" {
		c := cron.New()
		if _, err := c.AddFunc(expr, func() {
			checks, err := env.orch.CheckAllUpdates(ctx)
			if err != nil {
				slog.Warn("watch: update check failed", "error", err)
				return
			}
			behind := 0
			for _, chk := range checks {
				if chk.HasUpdate {
					behind++
				}
			}
			slog.Info("watch: update check complete", "checked", len(checks), "behind", behind)
		}); err != nil {
			return fmt.Errorf("invalid updates.expr %q: %w", expr, err)
		}
		c.Start()
		defer c.Stop()
		fmt.Printf("Update checks scheduled: %s\n", expr)
	}

	fmt.Println("Press Ctrl+C to stop gracefully.")
	fmt.Println()

	if err := env.orch.Run(ctx, pipeline.RunOptions{
		InitialSweep: watchInitialSweep,
		Poll:         watchPoll,
	}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watcher error: %w", err)
	}

	fmt.Println("Watcher stopped.")
	return nil
}
