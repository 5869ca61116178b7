package engine

import (
	"context"
	"fmt"

	"github.com/kkeeland/trak/internal/types"
)

// Assign sets assigned_to, auto-transitioning open or review into wip.
func (e *Engine) Assign(ctx context.Context, idOrSuffix, agent string) (*types.Task, error) {
	t, err := e.Store.ResolveID(ctx, idOrSuffix)
	if err != nil {
		return nil, err
	}

	t.AssignedTo = agent
	t.UpdatedAt = types.Now()

	statusChanged := false
	old := t.Status
	if t.Status == types.StatusOpen || t.Status == types.StatusReview {
		t.Status = types.StatusWIP
		statusChanged = true
		if e.Git != nil {
			if head, err := e.Git.HeadCommit(); err == nil && head != "" {
				t.WIPSnapshot = head
			}
		}
	}

	if err := e.Store.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}

	if err := e.Store.AppendJournalEntry(ctx, t.ID, agent+" assigned to this task", "human"); err != nil {
		return nil, fmt.Errorf("journal assign: %w", err)
	}
	if statusChanged {
		if err := e.Store.AppendJournalEntry(ctx, t.ID, fmt.Sprintf("Status: %s → %s", old, t.Status), "human"); err != nil {
			return nil, fmt.Errorf("journal assign status change: %w", err)
		}
	}

	data := map[string]interface{}{"assigned_to": agent, "updated_at": t.UpdatedAt}
	if statusChanged {
		data["status"] = string(t.Status)
		if t.WIPSnapshot != "" {
			data["wip_snapshot"] = t.WIPSnapshot
		}
	}
	e.appendEvent(types.Event{Op: types.EventUpdate, ID: t.ID, TS: t.UpdatedAt, Data: data})
	e.autocommit(fmt.Sprintf("trak: assign %s to %s", t.ID, agent))

	return t, nil
}
