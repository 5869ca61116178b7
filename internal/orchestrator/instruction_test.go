package orchestrator

import (
	"strings"
	"testing"

	"github.com/kkeeland/trak/internal/types"
)

func TestBuildInstruction_IncludesCoreFields(t *testing.T) {
	task := &types.Task{ID: "abc123", Title: "Fix the thing", Description: "details here", Project: "proj"}
	out := BuildInstruction(task, "/work/repo")

	for _, want := range []string{"abc123", "/work/repo", "Fix the thing", "details here", "proj", "trak close abc123", "trak fail abc123"} {
		if !strings.Contains(out, want) {
			t.Errorf("instruction missing %q:\n%s", want, out)
		}
	}
}

func TestBuildInstruction_VerifyCommandMentioned(t *testing.T) {
	task := &types.Task{ID: "t1", Title: "x", VerifyCommand: "go test ./..."}
	out := BuildInstruction(task, "/work")

	if !strings.Contains(out, "go test ./...") {
		t.Errorf("instruction missing verify command:\n%s", out)
	}
}

func TestBuildInstruction_OmitsEmptyOptionalFields(t *testing.T) {
	task := &types.Task{ID: "t1", Title: "x"}
	out := BuildInstruction(task, "/work")

	if strings.Contains(out, "Description:") {
		t.Error("instruction should omit Description: line when empty")
	}
	if strings.Contains(out, "Project:") {
		t.Error("instruction should omit Project: line when empty")
	}
}

func TestLabel_PrefixesTaskID(t *testing.T) {
	if got := Label("t1"); got != "trak-t1" {
		t.Errorf("got %q, want trak-t1", got)
	}
}
