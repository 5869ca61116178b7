package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/formatter"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Acquire, release, and inspect workspace locks",
}

var lockFiles []string
var lockAgent string

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire <task-id>",
	Short: "Acquire a workspace lock (whole-repo if no --file is given)",
	Args:  cobra.ExactArgs(1),
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
		agent := lockAgent
		if agent == "" {
			agent = "human"
		}
		l, err := a.Locks.Acquire(cmd.Context(), repo, args[0], agent, lockFiles)
		if err != nil {
			return err
		}
		fmt.Printf("acquired %s lock on %s for %s\n", l.LockType, repo, l.TaskID)
		return nil
	},
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release <task-id>",
	Short: "Release a held lock",
	Args:  cobra.ExactArgs(1),
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
		agent := lockAgent
		if agent == "" {
			agent = "human"
		}
		if err := a.Locks.Release(repo, args[0], agent); err != nil {
			return err
		}
		fmt.Printf("released lock on %s for %s\n", repo, args[0])
		return nil
	},
}

var lockBreakReason string

var lockBreakCmd = &cobra.Command{
	Use:   "break",
	Short: "Forcibly clear a stuck lock",
	Args:  cobra.NoArgs,
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
		agent := lockAgent
		if agent == "" {
			agent = "human"
		}
		if err := a.Locks.Break(repo, agent, lockBreakReason); err != nil {
			return err
		}
		fmt.Printf("broke lock on %s\n", repo)
		return nil
	},
}

var lockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known locks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		locks, err := a.Locks.List()
		if err != nil {
			return err
		}
		return render(locks, func() {
			tbl := formatter.NewTable(stdoutWriter, "TASK", "KIND", "REPO", "AGENT", "FILES", "EXPIRES")
			for _, l := range locks {
				tbl.AddRow(l.TaskID, string(l.LockType), l.RepoPath, l.Agent, strings.Join(l.Files, ","), l.ExpiresAt)
			}
			_ = tbl.Render()
		})
	},
}

func init() {
	lockAcquireCmd.Flags().StringArrayVar(&lockFiles, "file", nil, "File glob covered by this lock (repeatable); omit for a whole-repo lock")
	lockCmd.PersistentFlags().StringVar(&lockAgent, "agent", "", "Agent label (default: human)")
	lockBreakCmd.Flags().StringVar(&lockBreakReason, "reason", "", "Reason recorded in the lock audit log")

	lockCmd.AddCommand(lockAcquireCmd, lockReleaseCmd, lockBreakCmd, lockListCmd)
	rootCmd.AddCommand(lockCmd)
}
