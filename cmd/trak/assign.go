package main

import (
	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/engine"
)

var assignAgent string

var assignCmd = &cobra.Command{
	Use:   "assign <id>",
	Short: "Claim a task for an agent, transitioning open/review into wip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		agent := assignAgent
		if agent == "" {
			agent = "human"
		}
		t, err := a.Engine.Assign(cmd.Context(), args[0], agent)
		if err != nil {
			return err
		}
		return render(t, func() { printTaskLine(t) })
	},
}

var (
	logEntry  string
	logAuthor string
)

var logCmd = &cobra.Command{
	Use:   "log <id> <entry>",
	Short: "Append a journal entry to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Engine.Log(cmd.Context(), args[0], engine.LogInput{
			Entry:  args[1],
			Author: logAuthor,
		})
		if err != nil {
			return err
		}
		return render(t, func() { printTaskLine(t) })
	},
}

func init() {
	assignCmd.Flags().StringVar(&assignAgent, "agent", "", "Agent label (default: human)")
	logCmd.Flags().StringVar(&logAuthor, "author", "", "Journal entry author (default: human)")
	rootCmd.AddCommand(assignCmd, logCmd)
}
