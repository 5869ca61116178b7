package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kkeeland/trak/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvOverride, filepath.Join(dir, DBFileName))

	s, err := Open(context.Background(), true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestTask(id string) *types.Task {
	now := types.Now()
	return &types.Task{
		ID:                 id,
		Title:              "test task " + id,
		Status:             types.StatusOpen,
		Priority:           1,
		CreatedAt:          now,
		UpdatedAt:          now,
		Autonomy:           types.AutonomyManual,
		VerificationStatus: types.VerificationUnset,
	}
}

func TestCreateAndGetTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task := newTestTask("t1")
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != task.Title {
		t.Errorf("title=%q, want %q", got.Title, task.Title)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetTask(context.Background(), "missing"); err != ErrTaskNotFound {
		t.Errorf("err=%v, want ErrTaskNotFound", err)
	}
}

func TestResolveID_SuffixMatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, newTestTask("trk-00000001")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.ResolveID(ctx, "0001")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != "trk-00000001" {
		t.Errorf("resolved id=%q, want trk-00000001", got.ID)
	}
}

func TestResolveID_Ambiguous(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, newTestTask("trk-aaa1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateTask(ctx, newTestTask("trk-baa1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.ResolveID(ctx, "aa1"); !errors.Is(err, ErrAmbiguousID) {
		t.Errorf("err=%v, want ErrAmbiguousID", err)
	}
}

func TestListTasks_FilterByProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := newTestTask("a")
	a.Project = "alpha"
	b := newTestTask("b")
	b.Project = "beta"
	if err := s.CreateTask(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateTask(ctx, b); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListTasks(ctx, TaskFilter{Project: "alpha"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("got=%v, want [a]", got)
	}
}

func TestDependencies_AddRemoveAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, newTestTask("child")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateTask(ctx, newTestTask("parent")); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDependency(ctx, "child", "parent"); err != nil {
		t.Fatalf("add dependency: %v", err)
	}

	parents, err := s.ParentsOf(ctx, "child")
	if err != nil {
		t.Fatalf("parents of: %v", err)
	}
	if len(parents) != 1 || parents[0] != "parent" {
		t.Errorf("parents=%v, want [parent]", parents)
	}

	if err := s.RemoveDependency(ctx, "child", "parent"); err != nil {
		t.Fatalf("remove dependency: %v", err)
	}
	parents, err = s.ParentsOf(ctx, "child")
	if err != nil {
		t.Fatalf("parents of after remove: %v", err)
	}
	if len(parents) != 0 {
		t.Errorf("parents=%v, want empty after removal", parents)
	}
}

func TestAppendJournalEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, newTestTask("t1")); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendJournalEntry(ctx, "t1", "did a thing", "agent-1"); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.Journal(ctx, "t1")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(entries) != 1 || entries[0].Entry != "did a thing" || entries[0].Author != "agent-1" {
		t.Errorf("entries=%+v, want one entry from agent-1", entries)
	}
}
