package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/formatter"
	"github.com/kkeeland/trak/internal/graph"
	"github.com/kkeeland/trak/internal/store"
)

var readyProject string

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List dispatchable tasks, ordered by priority then creation time",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		orc := newOrchestrator(a, readyProject, "")
		tasks, err := orc.ReadyPool(cmd.Context())
		if err != nil {
			return err
		}
		return render(tasks, func() {
			tbl := formatter.NewTable(stdoutWriter, "ID", "PRI", "PROJECT", "TITLE")
			for _, t := range tasks {
				tbl.AddRow(t.ID, fmt.Sprint(t.Priority), t.Project, t.Title)
			}
			_ = tbl.Render()
		})
	},
}

var heatProject string

var heatCmd = &cobra.Command{
	Use:   "heat",
	Short: "List non-ready tasks ordered by attention score",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		tasks, err := a.Store.ListTasks(cmd.Context(), store.TaskFilter{Project: heatProject})
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

		now := time.Now()
		type scored struct {
			id    string
			score int
		}
		var rows []scored
		for _, t := range tasks {
			if t.Status.Terminal() || g.Ready(t, now) {
				continue
			}
			rows = append(rows, scored{t.ID, g.Heat(t, now)})
		}
		for i := 0; i < len(rows); i++ {
			for j := i + 1; j < len(rows); j++ {
				if rows[j].score > rows[i].score {
					rows[i], rows[j] = rows[j], rows[i]
				}
			}
		}

		byID := make(map[string]string, len(tasks))
		for _, t := range tasks {
			byID[t.ID] = t.Title
		}

		return render(rows, func() {
			tbl := formatter.NewTable(stdoutWriter, "ID", "HEAT", "TITLE")
			for _, r := range rows {
				tbl.AddRow(r.id, fmt.Sprint(r.score), byID[r.id])
			}
			_ = tbl.Render()
		})
	},
}

func init() {
	readyCmd.Flags().StringVar(&readyProject, "project", "", "Restrict to one project")
	heatCmd.Flags().StringVar(&heatProject, "project", "", "Restrict to one project")
	rootCmd.AddCommand(readyCmd, heatCmd)
}
