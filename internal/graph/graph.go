// Package graph computes readiness, heat ordering, and dependency
// traversal over a task set. It operates on plain data handed to it by
// callers (internal/engine, internal/orchestrator) and never touches
// the store or event log itself.
package graph

import (
	"time"

	"github.com/kkeeland/trak/internal/types"
)

// Edge is a child-depends-on-parent dependency pair.
type Edge struct {
	Child  string
	Parent string
}

// Graph is an in-memory index over a task set and its dependency
// edges, built once per command and queried repeatedly.
type Graph struct {
	tasks    map[string]*types.Task
	parents  map[string][]string // child -> parent ids
	children map[string][]string // parent -> child ids (dependents)
}

// Build indexes tasks and edges for querying. Tasks not referenced by
// any edge still appear in the graph with empty parent/child lists.
func Build(tasks []*types.Task, edges []Edge) *Graph {
	g := &Graph{
		tasks:    make(map[string]*types.Task, len(tasks)),
		parents:  make(map[string][]string),
		children: make(map[string][]string),
	}
	for _, t := range tasks {
		g.tasks[t.ID] = t
	}
	for _, e := range edges {
		g.parents[e.Child] = append(g.parents[e.Child], e.Parent)
		g.children[e.Parent] = append(g.children[e.Parent], e.Child)
	}
	return g
}

// Task looks up a task by id.
func (g *Graph) Task(id string) (*types.Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Parents returns the ids of tasks that id depends on.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Dependents returns the ids of tasks that depend on id.
func (g *Graph) Dependents(id string) []string {
	return g.children[id]
}

// Ready reports whether a task is eligible to begin work: status is
// open, every dependency parent is done or archived, and any
// retry_after cooldown has elapsed.
func (g *Graph) Ready(t *types.Task, now time.Time) bool {
	if t.Status != types.StatusOpen {
		return false
	}
	for _, parentID := range g.parents[t.ID] {
		parent, ok := g.tasks[parentID]
		if !ok || !parent.Status.Terminal() {
			return false
		}
	}
	if t.RetryAfter != "" {
		retryAfter, err := types.ParseTime(t.RetryAfter)
		if err == nil && now.Before(retryAfter) {
			return false
		}
	}
	return true
}

// BlockedReason returns the ids of parent tasks that are not yet
// done/archived, i.e. the reason a task isn't ready.
func (g *Graph) BlockedReason(t *types.Task) []string {
	var blocking []string
	for _, parentID := range g.parents[t.ID] {
		parent, ok := g.tasks[parentID]
		if !ok || !parent.Status.Terminal() {
			blocking = append(blocking, parentID)
		}
	}
	return blocking
}

// AllReady returns every ready task in the graph.
func (g *Graph) AllReady(now time.Time) []*types.Task {
	var ready []*types.Task
	for _, t := range g.tasks {
		if g.Ready(t, now) {
			ready = append(ready, t)
		}
	}
	return ready
}
