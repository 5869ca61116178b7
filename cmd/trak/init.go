package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a trak store in the current repository",
	Long: `Create the .trak directory (or $HOME/.trak) and its relational store.
The event log file and the lock directory are created on first write.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Printf("initialized trak store at %s\n", a.Store.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
