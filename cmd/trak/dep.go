package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges between tasks",
}

var depAddCmd = &cobra.Command{
	Use:   "add <child> <parent>",
	Short: "Add a child-depends-on-parent edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		child, duplicate, err := a.Engine.DepAdd(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if duplicate {
			fmt.Printf("%s already depends on %s\n", child.ID, args[1])
			return nil
		}
		fmt.Printf("%s now depends on %s\n", child.ID, args[1])
		return nil
	},
}

var depRmCmd = &cobra.Command{
	Use:   "rm <child> <parent>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		child, err := a.Engine.DepRm(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s no longer depends on %s\n", child.ID, args[1])
		return nil
	},
}

func init() {
	depCmd.AddCommand(depAddCmd, depRmCmd)
	rootCmd.AddCommand(depCmd)
}
