package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/config"
	"github.com/kkeeland/trak/internal/trakerr"
)

var (
	flagOutput    string
	flagVerbose   bool
	flagStorePath string
	flagGateway   string
	cfg           *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "trak",
	Short: "A local-first, git-synchronized task tracker and agent orchestrator",
	Long: `trak tracks tasks in a git-friendly event log and relational cache,
coordinates workspace locks between concurrent agents, and dispatches
ready work to a sessions gateway.

Core commands:
  init         Initialize a trak store in the current repository
  task         Create, list, and show tasks
  assign       Claim a task for an agent
  close        Close a task, optionally gated on verification
  fail         Record a task failure and schedule a retry
  dep          Manage dependency edges between tasks
  log          Append a journal entry to a task

Orchestration:
  ready        List dispatchable tasks, ordered by priority then creation time
  run          Dispatch one cycle of ready work to the gateway
  watch        Run dispatch cycles continuously until interrupted
  lock         Acquire, release, and inspect workspace locks
  trace        Show the upstream/downstream dependency graph of a task
  cost         Record and report agent spend per task

  config       Show resolved configuration and its sources`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		overrides := &config.Config{Verbose: flagVerbose}
		if flagOutput != "" {
			overrides.Output = flagOutput
		}
		if flagStorePath != "" {
			overrides.Store.Path = flagStorePath
		}
		if flagGateway != "" {
			overrides.Gateway.URL = flagGateway
		}
		loaded, err := config.Load(overrides)
		if err != nil {
			return err
		}
		cfg = loaded
		if cfg.Output == "" {
			cfg.Output = "table"
		}
		level := zerolog.InfoLevel
		if cfg.Verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		return nil
	},
}

// Execute runs the root command and maps any error to trak's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trak:", err)
		os.Exit(trakerr.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagStorePath, "db", "", "Path to the trak database (overrides TRAK_DB)")
	rootCmd.PersistentFlags().StringVar(&flagGateway, "gateway-url", "", "Gateway base URL (overrides GATEWAY_URL)")
}
