package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kkeeland/trak/internal/engine"
	"github.com/kkeeland/trak/internal/formatter"
	"github.com/kkeeland/trak/internal/store"
	"github.com/kkeeland/trak/internal/types"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, list, and show tasks",
}

var (
	taskProject  string
	taskTags     string
	taskParent   string
	taskEpic     string
	taskIsEpic   bool
	taskPriority int
	taskAutonomy string
	taskBudget   float64
	taskDesc     string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		in := engine.CreateInput{
			Title:       args[0],
			Description: taskDesc,
			Project:     taskProject,
			Tags:      taskTags,
			ParentID:  taskParent,
			EpicID:    taskEpic,
			IsEpic:    taskIsEpic,
			Autonomy:  types.Autonomy(taskAutonomy),
			BudgetUSD: taskBudget,
		}
		if cmd.Flags().Changed("priority") {
			in.Priority = &taskPriority
		}

		t, err := a.Engine.Create(cmd.Context(), in)
		if err != nil {
			return err
		}
		return render(t, func() { printTaskLine(t) })
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		filter := store.TaskFilter{Project: taskProject}
		if taskAutonomy != "" {
			filter.Autonomy = types.Autonomy(taskAutonomy)
		}
		tasks, err := a.Store.ListTasks(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return render(tasks, func() {
			tbl := formatter.NewTable(stdoutWriter, "ID", "STATUS", "PRI", "TITLE", "PROJECT", "TAGS")
			for _, t := range tasks {
				tbl.AddRow(t.ID, string(t.Status), fmt.Sprint(t.Priority), t.Title, t.Project, t.Tags)
			}
			_ = tbl.Render()
		})
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task's full record",
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
		deps, _ := a.Store.ParentsOf(cmd.Context(), t.ID)
		t.Deps = deps
		journal, _ := a.Store.Journal(cmd.Context(), t.ID)
		t.Journal = journal

		return render(t, func() { printTaskDetail(t) })
	},
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskCreateCmd.Flags().StringVar(&taskProject, "project", "", "Project name")
	taskCreateCmd.Flags().StringVar(&taskTags, "tags", "", "Comma-separated tags")
	taskCreateCmd.Flags().StringVar(&taskParent, "parent", "", "Parent task id (recorded as parent_id; no dependency edge is added)")
	taskCreateCmd.Flags().StringVar(&taskEpic, "epic", "", "Epic id this task belongs to")
	taskCreateCmd.Flags().BoolVar(&taskIsEpic, "is-epic", false, "Mark this task as an epic")
	taskCreateCmd.Flags().IntVar(&taskPriority, "priority", 1, "Priority 0 (highest) to 3 (lowest)")
	taskCreateCmd.Flags().StringVar(&taskAutonomy, "autonomy", "manual", "Autonomy: manual, auto, review, approve")
	taskCreateCmd.Flags().Float64Var(&taskBudget, "budget", 0, "Budget ceiling in USD (0 = unbounded)")

	taskListCmd.Flags().StringVar(&taskProject, "project", "", "Filter by project")
	taskListCmd.Flags().StringVar(&taskAutonomy, "autonomy", "", "Filter by autonomy")

	taskCmd.AddCommand(taskCreateCmd, taskListCmd, taskShowCmd)
	rootCmd.AddCommand(taskCmd)
}

func printTaskLine(t *types.Task) {
	fmt.Printf("%s  %-8s  p%d  %s\n", t.ID, t.Status, t.Priority, t.Title)
}

func printTaskDetail(t *types.Task) {
	printTaskLine(t)
	if t.Description != "" {
		fmt.Println(t.Description)
	}
	fmt.Printf("project=%s autonomy=%s tags=%s\n", t.Project, t.Autonomy, t.Tags)
	if len(t.Deps) > 0 {
		fmt.Printf("deps: %s\n", strings.Join(t.Deps, ", "))
	}
	if t.BudgetUSD > 0 {
		fmt.Printf("budget: $%.2f used of $%.2f\n", t.CostUSD, t.BudgetUSD)
	}
	for _, j := range t.Journal {
		fmt.Printf("  [%s] %s: %s\n", j.Timestamp, j.Author, j.Entry)
	}
}
