package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kkeeland/trak/internal/gateway"
	"github.com/kkeeland/trak/internal/types"
)

// DispatchOptions carries per-run overrides layered on top of o.Cfg.
type DispatchOptions struct {
	TimeoutFlag string
	TimeoutCfg  TimeoutConfig
	Dispatched  map[string]bool // task ids already dispatched this watch session
}

// Run executes one dispatch cycle: pulls the ready pool, claims and
// spawns up to Cfg.MaxAgents tasks concurrently, and returns a report.
// It probes the gateway before dispatching anything; an unreachable
// gateway aborts the whole cycle.
func (o *Orchestrator) Run(ctx context.Context, opts DispatchOptions) (*DispatchReport, error) {
	if _, err := o.Gateway.Probe(ctx); err != nil {
		return nil, fmt.Errorf("gateway unreachable: %w", err)
	}

	ready, err := o.ReadyPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("ready pool: %w", err)
	}

	report := &DispatchReport{Considered: len(ready)}

	var candidates []*types.Task
	for _, t := range ready {
		if opts.Dispatched != nil && opts.Dispatched[t.ID] {
			continue
		}
		candidates = append(candidates, t)
		if len(candidates) >= o.Cfg.MaxAgents {
			break
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(o.Cfg.MaxAgents)
	var mu sync.Mutex

	for _, t := range candidates {
		t := t
		group.Go(func() error {
			err := o.dispatchOne(gctx, t, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.skip(t.ID, err.Error())
			} else {
				report.Dispatched = append(report.Dispatched, t.ID)
			}
			return nil
		})
	}
	_ = group.Wait()

	return report, nil
}

// dispatchOne runs the per-task acquire/claim/spawn sequence. Lock
// conflicts are reported as skips, not errors: the next cycle retries.
func (o *Orchestrator) dispatchOne(ctx context.Context, t *types.Task, opts DispatchOptions) error {
	_, err := o.Locks.Acquire(ctx, o.Cfg.RepoPath, t.ID, "trak-run", nil)
	if err != nil {
		return fmt.Errorf("lock conflict: %w", err)
	}

	if _, err := o.Engine.Assign(ctx, t.ID, "trak-run"); err != nil {
		return fmt.Errorf("claim: %w", err)
	}

	instruction := BuildInstruction(t, o.Cfg.RepoPath)
	tags := strings.Split(t.Tags, ",")
	timeout := ResolveTimeout(opts.TimeoutFlag, t, tags, opts.TimeoutCfg)

	_, err = o.Gateway.SpawnAgent(ctx, gateway.SpawnRequest{
		Task:              instruction,
		Label:             Label(t.ID),
		Cleanup:           true,
		RunTimeoutSeconds: int(timeout.Seconds()),
		Model:             o.Cfg.Model,
	})
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	return nil
}
