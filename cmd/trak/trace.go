package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/graph"
	"github.com/kkeeland/trak/internal/store"
)

var traceDepth int

var traceCmd = &cobra.Command{
	Use:   "trace <id>",
	Short: "Show the upstream/downstream dependency graph of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Store.ResolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		tasks, err := a.Store.ListTasks(cmd.Context(), store.TaskFilter{})
		if err != nil {
			return err
		}
		deps, err := a.Store.AllDependencies(cmd.Context())
		if err != nil {
			return err
		}
		edges := make([]graph.Edge, len(deps))
		for i, d := range deps {
			edges[i] = graph.Edge{Child: d.ChildID, Parent: d.ParentID}
		}
		g := graph.Build(tasks, edges)

		result := g.Trace(t.ID, traceDepth)
		return render(result, func() {
			fmt.Printf("upstream of %s:\n", t.ID)
			printTraceLevel(result.Upstream, t.ID)
			fmt.Printf("downstream of %s:\n", t.ID)
			printTraceLevel(result.Downstream, t.ID)
		})
	},
}

func printTraceLevel(adj map[string][]string, start string) {
	neighbors, ok := adj[start]
	if !ok {
		fmt.Println("  (none)")
		return
	}
	for _, n := range neighbors {
		fmt.Printf("  %s\n", n)
	}
}

func init() {
	traceCmd.Flags().IntVar(&traceDepth, "depth", 0, "Max hops to walk (0 = default)")
	rootCmd.AddCommand(traceCmd)
}
