package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "repogate",
	Short: "Discover, vet, and onboard open-source repositories as runtime capabilities",
	Long: `repogate admits external repositories into a host runtime: it searches
hosting platforms for candidates, analyzes and compatibility-checks them,
scans them for security risks, then clones, installs, wraps, and
registers the ones that pass.

Get started:
  repogate onboard     Interactive setup wizard
  repogate doctor      Verify credentials and storage
  repogate discover    Search for candidate repositories
  repogate evaluate    Analyze a repository without installing anything
  repogate integrate   Run the full admission pipeline for one repository
  repogate watch       Run the autonomous sweep loop
  repogate gateway     Start the gateway daemon with REST API and SSE
  repogate ui          Launch the terminal dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.repogate/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		onboardCmd,
		discoverCmd,
		evaluateCmd,
		integrateCmd,
		approveCmd,
		rollbackCmd,
		reposCmd,
		queriesCmd,
		statsCmd,
		updatesCmd,
		watchCmd,
		gatewayCmd,
		uiCmd,
		configCmd,
		doctorCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}
}
