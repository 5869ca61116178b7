package engine

import (
	"context"
	"fmt"

	"github.com/kkeeland/trak/internal/graph"
	"github.com/kkeeland/trak/internal/types"
)

// DepAdd inserts a child->parent dependency edge. Self-dependency is
// rejected; a pair that would close a cycle is rejected by a bounded
// reverse-reachability check; a duplicate pair is a soft warning,
// reported via the returned bool rather than an error.
func (e *Engine) DepAdd(ctx context.Context, childOrSuffix, parentOrSuffix string) (child *types.Task, duplicate bool, err error) {
	childTask, err := e.Store.ResolveID(ctx, childOrSuffix)
	if err != nil {
		return nil, false, err
	}
	parentTask, err := e.Store.ResolveID(ctx, parentOrSuffix)
	if err != nil {
		return nil, false, err
	}
	if childTask.ID == parentTask.ID {
		return nil, false, types.ErrSelfDependency
	}

	existingParents, err := e.Store.ParentsOf(ctx, childTask.ID)
	if err != nil {
		return nil, false, err
	}
	for _, p := range existingParents {
		if p == parentTask.ID {
			duplicate = true
		}
	}

	if !duplicate {
		deps, err := e.Store.AllDependencies(ctx)
		if err != nil {
			return nil, false, err
		}
		edges := make([]graph.Edge, len(deps))
		for i, d := range deps {
			edges[i] = graph.Edge{Child: d.ChildID, Parent: d.ParentID}
		}
		g := graph.Build(nil, edges)
		if g.WouldCreateCycle(childTask.ID, parentTask.ID) {
			return nil, false, types.ErrWouldCreateCycle
		}

		if err := e.Store.AddDependency(ctx, childTask.ID, parentTask.ID); err != nil {
			return nil, false, fmt.Errorf("dep add: %w", err)
		}
	}

	entry := fmt.Sprintf("Depends on %s", parentTask.ID)
	if duplicate {
		entry = fmt.Sprintf("Dependency on %s already exists", parentTask.ID)
	}
	if err := e.Store.AppendJournalEntry(ctx, childTask.ID, entry, "human"); err != nil {
		return nil, duplicate, fmt.Errorf("journal dep add: %w", err)
	}

	e.appendEvent(types.Event{
		Op: types.EventDepAdd, ID: childTask.ID, TS: types.Now(),
		Data: map[string]interface{}{"parent_id": parentTask.ID},
	})

	return childTask, duplicate, nil
}

// DepRm deletes a child->parent dependency edge if present.
func (e *Engine) DepRm(ctx context.Context, childOrSuffix, parentOrSuffix string) (*types.Task, error) {
	childTask, err := e.Store.ResolveID(ctx, childOrSuffix)
	if err != nil {
		return nil, err
	}
	parentTask, err := e.Store.ResolveID(ctx, parentOrSuffix)
	if err != nil {
		return nil, err
	}

	if err := e.Store.RemoveDependency(ctx, childTask.ID, parentTask.ID); err != nil {
		return nil, fmt.Errorf("dep rm: %w", err)
	}

	entry := fmt.Sprintf("No longer depends on %s", parentTask.ID)
	if err := e.Store.AppendJournalEntry(ctx, childTask.ID, entry, "human"); err != nil {
		return nil, fmt.Errorf("journal dep rm: %w", err)
	}

	e.appendEvent(types.Event{
		Op: types.EventDepRm, ID: childTask.ID, TS: types.Now(),
		Data: map[string]interface{}{"parent_id": parentTask.ID},
	})

	return childTask, nil
}
