package orchestrator

import (
	"fmt"
	"strings"

	"github.com/kkeeland/trak/internal/types"
)

// BuildInstruction assembles the prompt handed to a spawned agent: the
// task's identity plus the close protocol it must follow to hand work
// back to trak.
func BuildInstruction(t *types.Task, workdir string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are working on trak task %s in %s.\n\n", t.ID, workdir)
	fmt.Fprintf(&b, "Title: %s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
	}
	if t.Project != "" {
		fmt.Fprintf(&b, "Project: %s\n", t.Project)
	}
	b.WriteString("\nWhen the work is complete, close the task with `trak close " + t.ID + "`")
	if t.VerifyCommand != "" {
		fmt.Fprintf(&b, " --verify (it will run `%s`)", t.VerifyCommand)
	}
	b.WriteString(".\nIf you cannot finish, run `trak fail " + t.ID + " \"<reason>\"` instead of leaving it in wip.\n")
	return b.String()
}

// Label produces the gateway session label for a task.
func Label(taskID string) string {
	return "trak-" + taskID
}
