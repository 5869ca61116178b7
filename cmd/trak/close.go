package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/engine"
)

var (
	closeVerify bool
	closeForce  bool
	closeProof  string
	closeCommit string
)

var closeCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a task, subject to the verification gate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Engine.Close(cmd.Context(), args[0], engine.CloseInput{
			Verify: closeVerify,
			Force:  closeForce,
			Proof:  closeProof,
			Commit: closeCommit,
		})
		if err != nil {
			return err
		}

		return render(result, func() {
			if result.AlreadyDone {
				fmt.Printf("%s is already done\n", result.Task.ID)
				return
			}
			printTaskLine(result.Task)
			for _, u := range result.Unblocked {
				fmt.Printf("  unblocked: %s\n", u.ID)
			}
		})
	},
}

var failCmd = &cobra.Command{
	Use:   "fail <id> <reason>",
	Short: "Record a task failure and schedule a retry or mark it permanently failed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Engine.Fail(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return render(t, func() { printTaskLine(t) })
	},
}

var retryResetCount bool

var retryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Manually retry a failed or backed-off task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Engine.Retry(cmd.Context(), args[0], retryResetCount)
		if err != nil {
			return err
		}
		return render(t, func() { printTaskLine(t) })
	},
}

func init() {
	closeCmd.Flags().BoolVar(&closeVerify, "verify", false, "Run the task's verify_command before closing")
	closeCmd.Flags().BoolVar(&closeForce, "force", false, "Bypass the verification gate")
	closeCmd.Flags().StringVar(&closeProof, "proof", "", "Free-form proof-of-work note")
	closeCmd.Flags().StringVar(&closeCommit, "commit", "", "Commit hash to verify as proof of work")

	retryCmd.Flags().BoolVar(&retryResetCount, "reset-count", false, "Reset retry_count to zero")

	rootCmd.AddCommand(closeCmd, failCmd, retryCmd)
}
