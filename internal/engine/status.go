package engine

import (
	"context"
	"fmt"

	"github.com/kkeeland/trak/internal/types"
)

// SetStatus validates and applies a status transition, logging
// "Status: old → new" and, when transitioning into wip, capturing the
// current git HEAD into wip_snapshot if a GitSync is wired.
func (e *Engine) SetStatus(ctx context.Context, idOrSuffix string, newStatus types.Status) (*types.Task, error) {
	if !newStatus.IsValid() {
		return nil, types.ErrInvalidStatus
	}

	t, err := e.Store.ResolveID(ctx, idOrSuffix)
	if err != nil {
		return nil, err
	}

	old := t.Status
	t.Status = newStatus
	t.UpdatedAt = types.Now()

	if newStatus == types.StatusWIP && e.Git != nil {
		if head, err := e.Git.HeadCommit(); err == nil && head != "" {
			t.WIPSnapshot = head
		}
	}

	if err := e.Store.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	entry := fmt.Sprintf("Status: %s → %s", old, newStatus)
	if err := e.Store.AppendJournalEntry(ctx, t.ID, entry, "human"); err != nil {
		return nil, fmt.Errorf("journal status change: %w", err)
	}

	data := map[string]interface{}{"status": string(newStatus), "updated_at": t.UpdatedAt}
	if t.WIPSnapshot != "" && newStatus == types.StatusWIP {
		data["wip_snapshot"] = t.WIPSnapshot
	}
	e.appendEvent(types.Event{Op: types.EventUpdate, ID: t.ID, TS: t.UpdatedAt, Data: data})
	e.autocommit(fmt.Sprintf("trak: %s %s -> %s", t.ID, old, newStatus))

	return t, nil
}
