package eventlog

import (
	"bytes"
	"testing"

	"github.com/kkeeland/trak/internal/types"
)

func TestAppendAndReplay_CreateThenUpdate(t *testing.T) {
	l := Open(t.TempDir())

	if err := l.Append(types.Event{
		Op: types.EventCreate, ID: "t1", TS: "2026-01-01T00:00:00Z",
		Data: map[string]interface{}{"title": "first", "status": "open", "priority": float64(1)},
	}); err != nil {
		t.Fatalf("append create: %v", err)
	}
	if err := l.Append(types.Event{
		Op: types.EventUpdate, ID: "t1", TS: "2026-01-01T01:00:00Z",
		Data: map[string]interface{}{"status": "wip"},
	}); err != nil {
		t.Fatalf("append update: %v", err)
	}

	tasks, err := l.Replay()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	got, ok := tasks["t1"]
	if !ok {
		t.Fatal("task t1 missing after replay")
	}
	if got.Title != "first" || got.Status != types.StatusWIP {
		t.Errorf("task=%+v, want title=first status=wip", got)
	}
}

func TestReplay_EmptyLogIsEmptyMap(t *testing.T) {
	l := Open(t.TempDir())

	tasks, err := l.Replay()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks=%v, want empty", tasks)
	}
}

func TestReplay_LogAppendsJournalInOrder(t *testing.T) {
	l := Open(t.TempDir())

	if err := l.Append(types.Event{Op: types.EventCreate, ID: "t1", TS: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(types.Event{Op: types.EventLog, ID: "t1", TS: "2026-01-01T01:00:00Z", Data: map[string]interface{}{"entry": "first note", "author": "human"}}); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(types.Event{Op: types.EventLog, ID: "t1", TS: "2026-01-01T02:00:00Z", Data: map[string]interface{}{"entry": "second note", "author": "agent-1"}}); err != nil {
		t.Fatal(err)
	}

	tasks, err := l.Replay()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	entries := tasks["t1"].Journal
	if len(entries) != 2 || entries[0].Entry != "first note" || entries[1].Entry != "second note" {
		t.Errorf("journal=%+v, want ordered first/second note", entries)
	}
}

func TestReplay_DepAddThenDepRm(t *testing.T) {
	l := Open(t.TempDir())

	events := []types.Event{
		{Op: types.EventCreate, ID: "child", TS: "t0"},
		{Op: types.EventDepAdd, ID: "child", TS: "t1", Data: map[string]interface{}{"parent_id": "parent"}},
		{Op: types.EventDepRm, ID: "child", TS: "t2", Data: map[string]interface{}{"parent_id": "parent"}},
	}
	for _, ev := range events {
		if err := l.Append(ev); err != nil {
			t.Fatal(err)
		}
	}

	tasks, err := l.Replay()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(tasks["child"].Deps) != 0 {
		t.Errorf("deps=%v, want empty after dep rm", tasks["child"].Deps)
	}
}

func TestCompact_ThenReplayPreservesTask(t *testing.T) {
	dir := t.TempDir()
	l := Open(dir)

	if err := l.Append(types.Event{Op: types.EventCreate, ID: "t1", TS: "t0", Data: map[string]interface{}{"title": "x"}}); err != nil {
		t.Fatal(err)
	}
	tasks, err := l.Replay()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if err := l.Compact(tasks, nil); err != nil {
		t.Fatalf("compact: %v", err)
	}

	reread, err := l.Replay()
	if err != nil {
		t.Fatalf("replay after compact: %v", err)
	}
	if reread["t1"].Title != "x" {
		t.Errorf("title=%q, want x after compact", reread["t1"].Title)
	}
}

func TestMerge_NonConflictingEditsBothSurvive(t *testing.T) {
	content := []byte(
		`<<<<<<< ours
{"id":"a","title":"a-title","status":"open","created_at":"t0","updated_at":"t1"}
=======
{"id":"b","title":"b-title","status":"open","created_at":"t0","updated_at":"t1"}
>>>>>>> theirs
`)

	result, err := Merge(content)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("conflicts=%v, want none", result.Conflicts)
	}

	tasks, err := replayLines(bytesLines(result.Resolved))
	if err != nil {
		t.Fatalf("replay merged: %v", err)
	}
	if _, ok := tasks["a"]; !ok {
		t.Error("want task a present in merge result")
	}
	if _, ok := tasks["b"]; !ok {
		t.Error("want task b present in merge result")
	}
}

func TestMerge_ConflictingEditPicksLaterUpdatedAt(t *testing.T) {
	content := []byte(
		`<<<<<<< ours
{"id":"a","title":"older","status":"open","created_at":"t0","updated_at":"t1"}
=======
{"id":"a","title":"newer","status":"open","created_at":"t0","updated_at":"t2"}
>>>>>>> theirs
`)

	result, err := Merge(content)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0] != "a" {
		t.Errorf("conflicts=%v, want [a]", result.Conflicts)
	}

	tasks, err := replayLines(bytesLines(result.Resolved))
	if err != nil {
		t.Fatalf("replay merged: %v", err)
	}
	if tasks["a"].Title != "newer" {
		t.Errorf("title=%q, want newer (later updated_at wins)", tasks["a"].Title)
	}
}

func bytesLines(b []byte) [][]byte {
	var out [][]byte
	for _, line := range bytes.Split(b, []byte("\n")) {
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out
}
