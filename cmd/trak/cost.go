package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/formatter"
	"github.com/kkeeland/trak/internal/types"
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Record and report agent spend per task",
}

var (
	costTokensIn  int
	costTokensOut int
	costDuration  float64
	costModel     string
	costAgent     string
	costAmount    float64
)

var costRecordCmd = &cobra.Command{
	Use:   "record <task-id>",
	Short: "Record a cost event for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		ev := &types.CostEvent{
			Task:      args[0],
			Timestamp: types.Now(),
			Model:     costModel,
			TokensIn:  costTokensIn,
			TokensOut: costTokensOut,
			Duration:  costDuration,
			Agent:     costAgent,
			CostUSD:   costAmount,
		}
		if err := a.Cost.Record(cmd.Context(), ev); err != nil {
			return err
		}
		fmt.Printf("recorded $%.4f against %s\n", ev.CostUSD, args[0])
		return nil
	},
}

var costReportProject string

var costReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report total recorded cost, optionally scoped to one project",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		total, err := a.Store.TotalCost(cmd.Context(), costReportProject)
		if err != nil {
			return err
		}
		out := struct {
			Project string  `json:"project,omitempty"`
			TotalUSD float64 `json:"total_usd"`
		}{Project: costReportProject, TotalUSD: total}
		return render(out, func() {
			tbl := formatter.NewTable(stdoutWriter, "PROJECT", "TOTAL_USD")
			tbl.AddRow(costReportProject, fmt.Sprintf("%.4f", total))
			_ = tbl.Render()
		})
	},
}

func init() {
	costRecordCmd.Flags().IntVar(&costTokensIn, "tokens-in", 0, "Input tokens")
	costRecordCmd.Flags().IntVar(&costTokensOut, "tokens-out", 0, "Output tokens")
	costRecordCmd.Flags().Float64Var(&costDuration, "duration", 0, "Wall-clock duration in seconds")
	costRecordCmd.Flags().StringVar(&costModel, "model", "", "Model name, used to price tokens if --amount is unset")
	costRecordCmd.Flags().StringVar(&costAgent, "agent", "", "Agent label")
	costRecordCmd.Flags().Float64Var(&costAmount, "amount", 0, "Explicit USD amount (overrides model pricing)")

	costReportCmd.Flags().StringVar(&costReportProject, "project", "", "Restrict to one project")

	costCmd.AddCommand(costRecordCmd, costReportCmd)
	rootCmd.AddCommand(costCmd)
}
