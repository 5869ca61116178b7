package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved configuration and which layer set each value",
	Long: `Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (TRAK_*, GATEWAY_*)
  3. Project config (.trak/config.yaml, or TRAK_CONFIG override)
  4. Home config (~/.trak/config.yaml)
  5. Defaults`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved := config.Resolve(flagOutput, flagStorePath, flagGateway)
		return render(resolved, func() { printResolved(resolved) })
	},
}

func printResolved(r *config.ResolvedConfig) {
	fmt.Printf("output         %-20s (%s)\n", r.Output.Value, r.Output.Source)
	fmt.Printf("store path     %-20s (%s)\n", r.StorePath.Value, r.StorePath.Source)
	fmt.Printf("lock timeout   %-20s (%s)\n", r.LockTimeout.Value, r.LockTimeout.Source)
	fmt.Printf("gateway url    %-20s (%s)\n", r.GatewayURL.Value, r.GatewayURL.Source)
	fmt.Printf("max agents     %-20v (%s)\n", r.MaxAgents.Value, r.MaxAgents.Source)
}

func init() {
	rootCmd.AddCommand(configCmd)
}
