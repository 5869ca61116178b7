package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/kkeeland/trak/internal/graph"
	"github.com/kkeeland/trak/internal/store"
	"github.com/kkeeland/trak/internal/types"
)

// ReadyPool returns auto-autonomy tasks eligible for unattended
// dispatch right now: open, every dependency satisfied, retry_after
// elapsed, within budget, and at or above the configured minimum
// priority (numerically lower is higher priority, so "at or above"
// means priority <= MinPriority). Results are ordered by priority
// ascending then creation time ascending.
func (o *Orchestrator) ReadyPool(ctx context.Context) ([]*types.Task, error) {
	filter := store.TaskFilter{Status: types.StatusOpen, Autonomy: types.AutonomyAuto}
	if o.Cfg.Project != "" {
		filter.Project = o.Cfg.Project
	}
	tasks, err := o.Store.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}

	all, err := o.Store.ListTasks(ctx, store.TaskFilter{})
	if err != nil {
		return nil, err
	}
	deps, err := o.Store.AllDependencies(ctx)
	if err != nil {
		return nil, err
	}
	edges := make([]graph.Edge, len(deps))
	for i, d := range deps {
		edges[i] = graph.Edge{Child: d.ChildID, Parent: d.ParentID}
	}
	g := graph.Build(all, edges)

	now := time.Now().UTC()
	var ready []*types.Task
	for _, t := range tasks {
		if t.Priority > o.Cfg.MinPriority {
			continue
		}
		if !costAvailable(t) {
			continue
		}
		if !g.Ready(t, now) {
			continue
		}
		ready = append(ready, t)
	}

	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority < ready[j].Priority
		}
		return ready[i].CreatedAt < ready[j].CreatedAt
	})
	return ready, nil
}
