package lockmgr

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kkeeland/trak/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return New(t.TempDir(), time.Minute)
}

func TestAcquire_WholeRepoLock(t *testing.T) {
	m := newTestManager(t)

	lock, err := m.Acquire(context.Background(), "/repo", "t1", "agent-1", nil)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if lock.LockType != types.LockKindRepo {
		t.Errorf("lock type=%v, want repo", lock.LockType)
	}
}

func TestAcquire_ConflictOnSecondRepoLock(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	_, err := m.Acquire(ctx, "/repo", "t2", "agent-2", nil)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err=%v, want ErrConflict", err)
	}
}

func TestAcquire_SameTaskReacquireRefreshesExpiry(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	second, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if second.ExpiresAt < first.ExpiresAt {
		t.Error("want expiry refreshed on reacquire, got earlier expiry")
	}
}

func TestAcquire_SameTaskReacquireUnionsFiles(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", []string{"a.go", "b.go"}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	second, err := m.Acquire(ctx, "/repo", "t1", "agent-1", []string{"b.go", "c.go"})
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}

	want := map[string]bool{"a.go": true, "b.go": true, "c.go": true}
	if len(second.Files) != len(want) {
		t.Fatalf("files=%v, want union %v", second.Files, want)
	}
	for _, f := range second.Files {
		if !want[f] {
			t.Errorf("unexpected file %q in union, want one of %v", f, want)
		}
		delete(want, f)
	}
	if len(want) != 0 {
		t.Errorf("missing files from union: %v", want)
	}
}

func TestAcquire_NonOverlappingFileLocksCoexist(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", []string{"a.go"}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := m.Acquire(ctx, "/repo", "t2", "agent-2", []string{"b.go"}); err != nil {
		t.Fatalf("want non-overlapping file locks to coexist, got: %v", err)
	}

	locks, err := m.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	holders := make(map[string]bool, len(locks))
	for _, l := range locks {
		holders[l.TaskID] = true
	}
	if !holders["t1"] || !holders["t2"] {
		t.Fatalf("holders=%v, want both t1 and t2 still listed after t2 acquires", holders)
	}

	if _, err := m.Acquire(ctx, "/repo", "t3", "agent-3", []string{"a.go"}); !errors.Is(err, ErrConflict) {
		t.Errorf("want t1's lock on a.go still enforced against t3, got: %v", err)
	}
}

func TestAcquire_OverlappingFileLocksConflict(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", []string{"a.go"}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_, err := m.Acquire(ctx, "/repo", "t2", "agent-2", []string{"a.go"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err=%v, want ErrConflict for overlapping files", err)
	}
}

func TestRelease_ThenReacquireSucceeds(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Release("/repo", "t1", "agent-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := m.Acquire(ctx, "/repo", "t2", "agent-2", nil); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestBreak_ForcesReleaseRegardlessOfHolder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Break("/repo", "human", "stuck agent"); err != nil {
		t.Fatalf("break: %v", err)
	}
	if _, err := m.Acquire(ctx, "/repo", "t2", "agent-2", nil); err != nil {
		t.Fatalf("acquire after break: %v", err)
	}
}

func TestRenew_RejectsNonHolder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := m.Renew("/repo", "t2"); !errors.Is(err, ErrNotHolder) {
		t.Errorf("err=%v, want ErrNotHolder", err)
	}
}

func TestAcquireOrQueue_QueuesOnConflict(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	result, err := m.AcquireOrQueue(ctx, "/repo", "t2", "agent-2", nil, 5)
	if err != nil {
		t.Fatalf("acquire or queue: %v", err)
	}
	if !result.Queued || result.Position != 1 {
		t.Errorf("result=%+v, want queued at position 1", result)
	}
}

func TestAcquireOrQueue_PriorityOrdering(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := m.AcquireOrQueue(ctx, "/repo", "t2", "agent-2", nil, 10); err != nil {
		t.Fatalf("queue t2: %v", err)
	}

	result, err := m.AcquireOrQueue(ctx, "/repo", "t3", "agent-3", nil, 1)
	if err != nil {
		t.Fatalf("queue t3: %v", err)
	}
	if result.Position != 1 {
		t.Errorf("position=%d, want 1 (higher priority jumps ahead)", result.Position)
	}
}

func TestList_ExpiresStaleLocks(t *testing.T) {
	m := New(t.TempDir(), time.Millisecond)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "/repo", "t1", "agent-1", nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	locks, err := m.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(locks) != 0 {
		t.Errorf("locks=%v, want expired lock excluded", locks)
	}
}

func TestPidAlive_CurrentProcess(t *testing.T) {
	if !pidAlive(os.Getpid()) {
		t.Error("want current process reported alive")
	}
}

func TestPidAlive_InvalidPID(t *testing.T) {
	if pidAlive(0) || pidAlive(-1) {
		t.Error("want non-positive pid reported not alive")
	}
}
