package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/orchestrator"
)

func timeoutConfig() orchestrator.TimeoutConfig {
	projTimeouts := make(map[string]string, len(cfg.Project))
	for name, p := range cfg.Project {
		if p.Timeout != "" {
			projTimeouts[name] = p.Timeout
		}
	}
	return orchestrator.TimeoutConfig{
		AgentTimeout:   cfg.Agent.Timeout,
		ProjectTimeout: projTimeouts,
		ProfileTimeout: cfg.Timeout.Profile,
	}
}

var (
	runProject     string
	runTimeoutFlag string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch one cycle of ready work to the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		repo, err := repoPath()
		if err != nil {
			return err
		}
		orc := newOrchestrator(a, runProject, repo)
		report, err := orc.Run(cmd.Context(), orchestrator.DispatchOptions{
			TimeoutFlag: runTimeoutFlag,
			TimeoutCfg:  timeoutConfig(),
		})
		if err != nil {
			return err
		}
		printDispatchReport(report)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run dispatch cycles continuously until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		repo, err := repoPath()
		if err != nil {
			return err
		}
		orc := newOrchestrator(a, runProject, repo)
		opts := orchestrator.DispatchOptions{
			TimeoutFlag: runTimeoutFlag,
			TimeoutCfg:  timeoutConfig(),
		}
		lockDir := a.Locks.Dir
		return orc.Watch(cmd.Context(), lockDir, opts, func(report *orchestrator.DispatchReport, err error) {
			if err != nil {
				fmt.Println("cycle error:", err)
				return
			}
			printDispatchReport(report)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, watchCmd} {
		c.Flags().StringVar(&runProject, "project", "", "Restrict dispatch to one project")
		c.Flags().StringVar(&runTimeoutFlag, "timeout", "", "Override agent run timeout (e.g. 30m, 1h, or bare seconds)")
	}
	rootCmd.AddCommand(runCmd, watchCmd)
}

func printDispatchReport(report *orchestrator.DispatchReport) {
	if report == nil {
		return
	}
	fmt.Printf("considered %d ready task(s)\n", report.Considered)
	for _, id := range report.Dispatched {
		fmt.Printf("  dispatched: %s\n", id)
	}
	for id, reason := range report.Skipped {
		fmt.Printf("  skipped: %s (%s)\n", id, reason)
	}
}
