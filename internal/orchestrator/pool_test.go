package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kkeeland/trak/internal/engine"
	"github.com/kkeeland/trak/internal/eventlog"
	"github.com/kkeeland/trak/internal/gateway"
	"github.com/kkeeland/trak/internal/lockmgr"
	"github.com/kkeeland/trak/internal/store"
	"github.com/kkeeland/trak/internal/types"
)

type noopGitSync struct{}

func (noopGitSync) HeadCommit() (string, error)            { return "", nil }
func (noopGitSync) CommitExists(string) (bool, error)       { return false, nil }
func (noopGitSync) CommitsSince(string) ([]string, error)   { return nil, nil }
func (noopGitSync) CommitMessage(string) (string, error)    { return "", nil }
func (noopGitSync) Autocommit(string) error                 { return nil }

func newTestOrchestrator(t *testing.T, cfg Config) (*Orchestrator, *store.Store, *engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(store.EnvOverride, filepath.Join(dir, store.DBFileName))

	s, err := store.Open(context.Background(), true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	eng := engine.New(s, eventlog.Open(s.Dir), noopGitSync{}, engine.DefaultConfig())
	locks := lockmgr.New(dir, time.Hour)
	gw := gateway.New("http://127.0.0.1:0", "")

	o := New(s, eng, locks, gw, cfg)
	return o, s, eng
}

func TestReadyPool_ExcludesNonAutoAutonomy(t *testing.T) {
	o, _, eng := newTestOrchestrator(t, Config{})
	ctx := context.Background()

	if _, err := eng.Create(ctx, engine.CreateInput{Title: "manual task", Autonomy: types.AutonomyManual}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Create(ctx, engine.CreateInput{Title: "auto task", Autonomy: types.AutonomyAuto}); err != nil {
		t.Fatal(err)
	}

	ready, err := o.ReadyPool(ctx)
	if err != nil {
		t.Fatalf("ready pool: %v", err)
	}
	if len(ready) != 1 || ready[0].Title != "auto task" {
		t.Errorf("ready=%+v, want only the auto task", ready)
	}
}

func TestReadyPool_ExcludesBelowMinPriority(t *testing.T) {
	o, _, eng := newTestOrchestrator(t, Config{MinPriority: 1})
	ctx := context.Background()

	low := 0
	high := 2
	if _, err := eng.Create(ctx, engine.CreateInput{Title: "high priority", Autonomy: types.AutonomyAuto, Priority: &low}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Create(ctx, engine.CreateInput{Title: "low priority", Autonomy: types.AutonomyAuto, Priority: &high}); err != nil {
		t.Fatal(err)
	}

	ready, err := o.ReadyPool(ctx)
	if err != nil {
		t.Fatalf("ready pool: %v", err)
	}
	if len(ready) != 1 || ready[0].Title != "high priority" {
		t.Errorf("ready=%+v, want only priority<=1 task", ready)
	}
}

func TestReadyPool_ExcludesBlockedByOpenParent(t *testing.T) {
	o, _, eng := newTestOrchestrator(t, Config{})
	ctx := context.Background()

	parent, err := eng.Create(ctx, engine.CreateInput{Title: "parent"})
	if err != nil {
		t.Fatal(err)
	}
	child, err := eng.Create(ctx, engine.CreateInput{Title: "child", Autonomy: types.AutonomyAuto})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := eng.DepAdd(ctx, child.ID, parent.ID); err != nil {
		t.Fatal(err)
	}

	ready, err := o.ReadyPool(ctx)
	if err != nil {
		t.Fatalf("ready pool: %v", err)
	}
	for _, r := range ready {
		if r.ID == child.ID {
			t.Error("want child excluded from ready pool while parent is still open")
		}
	}
}

func TestReadyPool_FiltersByConfiguredProject(t *testing.T) {
	o, _, eng := newTestOrchestrator(t, Config{Project: "alpha"})
	ctx := context.Background()

	if _, err := eng.Create(ctx, engine.CreateInput{Title: "alpha task", Autonomy: types.AutonomyAuto, Project: "alpha"}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Create(ctx, engine.CreateInput{Title: "beta task", Autonomy: types.AutonomyAuto, Project: "beta"}); err != nil {
		t.Fatal(err)
	}

	ready, err := o.ReadyPool(ctx)
	if err != nil {
		t.Fatalf("ready pool: %v", err)
	}
	if len(ready) != 1 || ready[0].Project != "alpha" {
		t.Errorf("ready=%+v, want only alpha project task", ready)
	}
}

func TestReadyPool_OrdersByPriorityThenCreatedAt(t *testing.T) {
	o, _, eng := newTestOrchestrator(t, Config{MinPriority: 3})
	ctx := context.Background()

	hi := 0
	lo := 2
	if _, err := eng.Create(ctx, engine.CreateInput{Title: "low priority number higher value", Autonomy: types.AutonomyAuto, Priority: &lo}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Create(ctx, engine.CreateInput{Title: "high priority", Autonomy: types.AutonomyAuto, Priority: &hi}); err != nil {
		t.Fatal(err)
	}

	ready, err := o.ReadyPool(ctx)
	if err != nil {
		t.Fatalf("ready pool: %v", err)
	}
	if len(ready) != 2 || ready[0].Title != "high priority" {
		t.Errorf("ready=%+v, want high priority task first", ready)
	}
}
