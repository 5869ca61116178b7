package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kkeeland/trak/internal/eventlog"
	"github.com/kkeeland/trak/internal/store"
	"github.com/kkeeland/trak/internal/types"
)

// fakeGitSync is a deterministic in-memory stand-in for ExecGitSync.
type fakeGitSync struct {
	head        string
	commits     map[string]string // hash -> message
	commitOrder []string
}

func newFakeGitSync() *fakeGitSync {
	return &fakeGitSync{commits: make(map[string]string)}
}

func (g *fakeGitSync) HeadCommit() (string, error) { return g.head, nil }

func (g *fakeGitSync) CommitExists(hash string) (bool, error) {
	_, ok := g.commits[hash]
	return ok, nil
}

func (g *fakeGitSync) CommitsSince(ref string) ([]string, error) {
	var out []string
	for _, h := range g.commitOrder {
		if h == ref {
			break
		}
		out = append(out, h)
	}
	return out, nil
}

func (g *fakeGitSync) CommitMessage(hash string) (string, error) {
	return g.commits[hash], nil
}

func (g *fakeGitSync) Autocommit(message string) error { return nil }

func (g *fakeGitSync) addCommit(hash, message string) {
	g.commits[hash] = message
	g.commitOrder = append([]string{hash}, g.commitOrder...)
	g.head = hash
}

func newTestEngine(t *testing.T) (*Engine, *fakeGitSync) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(store.EnvOverride, filepath.Join(dir, store.DBFileName))

	s, err := store.Open(context.Background(), true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	git := newFakeGitSync()
	eng := New(s, eventlog.Open(s.Dir), git, DefaultConfig())
	return eng, git
}

func TestCreate_Defaults(t *testing.T) {
	eng, _ := newTestEngine(t)

	task, err := eng.Create(context.Background(), CreateInput{Title: "write tests"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != types.StatusOpen {
		t.Errorf("status=%v, want open", task.Status)
	}
	if task.Autonomy != types.AutonomyManual {
		t.Errorf("autonomy=%v, want manual", task.Autonomy)
	}
	if task.Priority != 1 {
		t.Errorf("priority=%v, want 1", task.Priority)
	}
	if task.MaxRetries != DefaultConfig().DefaultMaxRetries {
		t.Errorf("max_retries=%v, want %v", task.MaxRetries, DefaultConfig().DefaultMaxRetries)
	}
}

func TestCreate_RejectsInvalidPriority(t *testing.T) {
	eng, _ := newTestEngine(t)
	bad := 7

	if _, err := eng.Create(context.Background(), CreateInput{Title: "x", Priority: &bad}); !errors.Is(err, types.ErrInvalidPriority) {
		t.Errorf("err=%v, want ErrInvalidPriority", err)
	}
}

func TestAssign_TransitionsOpenToWIP(t *testing.T) {
	eng, git := newTestEngine(t)
	ctx := context.Background()
	git.head = "abc123"

	task, err := eng.Create(ctx, CreateInput{Title: "do it"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := eng.Assign(ctx, task.ID, "agent-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.Status != types.StatusWIP {
		t.Errorf("status=%v, want wip", got.Status)
	}
	if got.WIPSnapshot != "abc123" {
		t.Errorf("wip_snapshot=%q, want abc123", got.WIPSnapshot)
	}
	if got.AssignedTo != "agent-1" {
		t.Errorf("assigned_to=%q, want agent-1", got.AssignedTo)
	}
}

func TestClose_BlocksWithoutVerification(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Assign(ctx, task.ID, "agent-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err = eng.Close(ctx, task.ID, CloseInput{})
	if !errors.Is(err, ErrCloseBlocked) {
		t.Errorf("err=%v, want ErrCloseBlocked", err)
	}
}

func TestClose_ForceOverridesGate(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := eng.Close(ctx, task.ID, CloseInput{Force: true})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if result.Task.Status != types.StatusDone {
		t.Errorf("status=%v, want done", result.Task.Status)
	}
}

func TestClose_AlreadyDoneIsNoop(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Close(ctx, task.ID, CloseInput{Force: true}); err != nil {
		t.Fatalf("close: %v", err)
	}

	result, err := eng.Close(ctx, task.ID, CloseInput{Force: true})
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !result.AlreadyDone {
		t.Error("want AlreadyDone=true on second close")
	}
}

func TestClose_VerifyCommandHardFailBlocks(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.VerifyRunner = func(cmd string) (bool, error) { return false, nil }
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	task.VerifyCommand = "go test ./..."
	if err := eng.Store.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err = eng.Close(ctx, task.ID, CloseInput{Verify: true})
	if !errors.Is(err, ErrHardCheckFailed) {
		t.Errorf("err=%v, want ErrHardCheckFailed", err)
	}
}

func TestClose_VerifyPassesWithJournalActivity(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.VerifyRunner = func(cmd string) (bool, error) { return true, nil }
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Log(ctx, task.ID, LogInput{Entry: "made progress", Author: "agent-1"}); err != nil {
		t.Fatalf("log: %v", err)
	}

	result, err := eng.Close(ctx, task.ID, CloseInput{Verify: true})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if result.Task.Status != types.StatusDone {
		t.Errorf("status=%v, want done", result.Task.Status)
	}
}

func TestFail_RetriesUnderMax(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := eng.Fail(ctx, task.ID, "oops")
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if got.Status != types.StatusOpen {
		t.Errorf("status=%v, want open (retry scheduled)", got.Status)
	}
	if got.RetryAfter == "" {
		t.Error("want retry_after set")
	}
}

func TestFail_PermanentAfterMaxRetries(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	one := 1
	task, err := eng.Create(ctx, CreateInput{Title: "x", MaxRetries: &one})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := eng.Fail(ctx, task.ID, "oops")
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if got.Status != types.StatusFailed {
		t.Errorf("status=%v, want failed", got.Status)
	}
}

func TestRetry_ResetsCountWhenRequested(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Fail(ctx, task.ID, "oops"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, err := eng.Retry(ctx, task.ID, true)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got.RetryCount != 0 {
		t.Errorf("retry_count=%d, want 0", got.RetryCount)
	}
	if got.Status != types.StatusOpen {
		t.Errorf("status=%v, want open", got.Status)
	}
}

func TestDepAdd_RejectsSelfDependency(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, err := eng.DepAdd(ctx, task.ID, task.ID); !errors.Is(err, types.ErrSelfDependency) {
		t.Errorf("err=%v, want ErrSelfDependency", err)
	}
}

func TestDepAdd_RejectsCycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := eng.Create(ctx, CreateInput{Title: "a"})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := eng.Create(ctx, CreateInput{Title: "b"})
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	if _, _, err := eng.DepAdd(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("dep add a->b: %v", err)
	}
	if _, _, err := eng.DepAdd(ctx, b.ID, a.ID); !errors.Is(err, types.ErrWouldCreateCycle) {
		t.Errorf("err=%v, want ErrWouldCreateCycle", err)
	}
}

func TestDepAdd_DuplicateReportedNotErrored(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := eng.Create(ctx, CreateInput{Title: "a"})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := eng.Create(ctx, CreateInput{Title: "b"})
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	if _, _, err := eng.DepAdd(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("dep add: %v", err)
	}
	_, duplicate, err := eng.DepAdd(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("dep add again: %v", err)
	}
	if !duplicate {
		t.Error("want duplicate=true on repeated dep add")
	}
}

func TestClose_AutoChildUnblockedOnParentClose(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	parent, err := eng.Create(ctx, CreateInput{Title: "parent"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	auto := types.AutonomyAuto
	child, err := eng.Create(ctx, CreateInput{Title: "child", Autonomy: auto})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if _, _, err := eng.DepAdd(ctx, child.ID, parent.ID); err != nil {
		t.Fatalf("dep add: %v", err)
	}

	result, err := eng.Close(ctx, parent.ID, CloseInput{Force: true})
	if err != nil {
		t.Fatalf("close parent: %v", err)
	}
	if len(result.Unblocked) != 1 || result.Unblocked[0].ID != child.ID {
		t.Errorf("unblocked=%v, want [%s]", result.Unblocked, child.ID)
	}
}

func TestLog_AccumulatesUsage(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := eng.Create(ctx, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := eng.Log(ctx, task.ID, LogInput{Entry: "ran it", TokensIn: 100, TokensOut: 50, Model: "claude-sonnet-4-5"})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if got.TokensIn != 100 || got.TokensOut != 50 || got.TokensUsed != 150 {
		t.Errorf("usage=%+v, want 100/50/150", got)
	}
	if got.ModelUsed != "claude-sonnet-4-5" {
		t.Errorf("model_used=%q, want claude-sonnet-4-5", got.ModelUsed)
	}
}
