package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/database"
	"github.com/CosmoTheDev/repogate/internal/gateway"
	"github.com/CosmoTheDev/repogate/internal/notify"
	"github.com/CosmoTheDev/repogate/internal/pipeline"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/spf13/cobra"
)

var gatewayPort int
var gatewayLogDir string
var gatewayProvider string

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the repogate gateway daemon",
	Long: `Starts the repogate gateway: a long-running daemon that combines the
admission pipeline with a REST + SSE control plane.

The gateway runs the sweep loop continuously and exposes a local HTTP
API (default: http://127.0.0.1:7080) so you can:

  • Trigger and watch integrations for specific repositories
  • Approve or revoke installations stopped at the security gate
  • Create cron schedules for sweeps and update checks
  • Inspect reports, events, and aggregate statistics
  • Stream live admission events via GET /events (Server-Sent Events)

Example schedules:
  "0 2 * * *"   — every night at 02:00
  "@every 6h"   — every 6 hours
  "@daily"      — once per day at midnight

Unlike 'repogate watch' (foreground loop only), the gateway stays
running and lets you drive the pipeline over HTTP without manual
intervention.

Quick API reference:
  GET  /health                         liveness check
  GET  /api/status                     pipeline status snapshot
  GET  /api/integrations               list integration reports
  POST /api/integrations               integrate a repository (body: {"repo":"owner/name"})
  GET  /api/integrations/:name         fetch one report
  DELETE /api/integrations/:name       roll back an integration
  POST /api/integrations/:name/approve approve past the security gate
  GET  /api/discover                   search candidate repositories
  POST /api/evaluate                   analyze + check without installing
  POST /api/sweep                      trigger a sweep now
  GET  /api/updates                    check all clones against upstream
  GET  /api/schedules                  list cron schedules
  POST /api/schedules                  create a schedule
  DELETE /api/schedules/:id            delete a schedule
  POST /api/schedules/:id/trigger      run a schedule immediately
  GET  /events                         SSE stream of live events`,
	RunE: runGateway,
}

func init() {
	gatewayCmd.Flags().IntVar(&gatewayPort, "port", 0,
		"HTTP port to listen on (default 7080, overrides config)")
	gatewayCmd.Flags().StringVar(&gatewayLogDir, "log-dir", "logs",
		"directory to write gateway logs for later inspection")
	gatewayCmd.Flags().StringVar(&gatewayProvider, "provider", "",
		"hosting platform: github|gitlab (default github)")
}

func runGateway(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down gateway gracefully...")
		cancel()
	}()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	effectiveCfgPath, _ := config.ConfigPath(cfgFile)

	logFilePath, closeLog, err := setupGatewayFileLogger(gatewayLogDir)
	if err != nil {
		return fmt.Errorf("initialising gateway logger: %w", err)
	}
	defer closeLog()

	if gatewayPort > 0 {
		cfg.Gateway.Port = gatewayPort
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 7080
	}

	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	prov, err := repository.New(gatewayProvider, cfg)
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	st := store.New(db)

	opts := pipeline.Options{}
	if d := notify.NewDispatcher(cfg.Notify); d.IsAnyConfigured() {
		opts.Notifier = d
	}

	fmt.Printf("repogate gateway starting\n")
	fmt.Printf("  Workers : %d\n", cfg.Pipeline.Workers)
	fmt.Printf("  Queries : %d\n", len(cfg.Discovery.Queries))
	fmt.Printf("  API     : http://127.0.0.1:%d\n", cfg.Gateway.Port)
	fmt.Printf("  Events  : http://127.0.0.1:%d/events\n", cfg.Gateway.Port)
	fmt.Printf("  UI      : http://127.0.0.1:%d/ui\n", cfg.Gateway.Port)
	fmt.Printf("  Logs    : %s\n\n", logFilePath)
	fmt.Println("Press Ctrl+C to stop gracefully.")
	fmt.Println("Gateway starts idle; trigger sweeps via /ui, API, or cron schedules.")
	fmt.Println()

	slog.Info("gateway logger initialised", "file", logFilePath)
	gw := gateway.New(cfg, st, pol, prov, opts)
	gw.SetConfigPath(effectiveCfgPath)
	return gw.Start(ctx)
}

func setupGatewayFileLogger(logDir string) (string, func(), error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating log dir %s: %w", logDir, err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	runLogPath := filepath.Join(logDir, fmt.Sprintf("gateway-%s.log", ts))
	runFile, err := os.OpenFile(runLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("opening run log file: %w", err)
	}

	latestPath := filepath.Join(logDir, "gateway.log")
	latestFile, err := os.OpenFile(latestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = runFile.Close()
		return "", nil, fmt.Errorf("opening latest log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, runFile, latestFile), &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler))
	slog.SetLogLoggerLevel(level)

	cleanup := func() {
		_ = latestFile.Close()
		_ = runFile.Close()
	}
	return runLogPath, cleanup, nil
}
