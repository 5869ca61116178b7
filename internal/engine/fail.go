package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kkeeland/trak/internal/types"
)

// Fail is invoked by the orchestrator or a user when an attempt gives
// up. It either rewinds the task to open with a future retry_after, or
// marks it permanently failed once retries are exhausted.
func (e *Engine) Fail(ctx context.Context, idOrSuffix, reason string) (*types.Task, error) {
	t, err := e.Store.ResolveID(ctx, idOrSuffix)
	if err != nil {
		return nil, err
	}

	newCount := t.RetryCount + 1
	now := types.Now()

	if t.MaxRetries > 0 && newCount < t.MaxRetries {
		backoff := e.backoffFor(newCount)
		t.Status = types.StatusOpen
		t.RetryCount = newCount
		t.LastFailureReason = reason
		t.RetryAfter = types.FormatTime(time.Now().Add(backoff))
		t.UpdatedAt = now

		if err := e.Store.UpdateTask(ctx, t); err != nil {
			return nil, fmt.Errorf("fail (retry): %w", err)
		}
		entry := fmt.Sprintf("Attempt %d failed: %s — retrying after %s", newCount, reason, t.RetryAfter)
		if err := e.Store.AppendJournalEntry(ctx, t.ID, entry, "trak"); err != nil {
			return nil, fmt.Errorf("journal fail: %w", err)
		}

		e.appendEvent(types.Event{
			Op: types.EventUpdate, ID: t.ID, TS: now,
			Data: map[string]interface{}{
				"status": string(types.StatusOpen), "retry_count": newCount,
				"last_failure_reason": reason, "retry_after": t.RetryAfter, "updated_at": now,
			},
		})
		return t, nil
	}

	t.Status = types.StatusFailed
	t.RetryCount = newCount
	t.LastFailureReason = reason
	t.RetryAfter = ""
	t.UpdatedAt = now

	if err := e.Store.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("fail (terminal): %w", err)
	}
	entry := fmt.Sprintf("Failed permanently after %d attempts: %s", newCount, reason)
	if err := e.Store.AppendJournalEntry(ctx, t.ID, entry, "trak"); err != nil {
		return nil, fmt.Errorf("journal fail: %w", err)
	}

	e.appendEvent(types.Event{
		Op: types.EventUpdate, ID: t.ID, TS: now,
		Data: map[string]interface{}{
			"status": string(types.StatusFailed), "retry_count": newCount,
			"last_failure_reason": reason, "retry_after": "", "updated_at": now,
		},
	})
	return t, nil
}

// backoffFor returns the backoff duration for the newCount-th attempt
// (1-indexed), clamped to the last schedule entry.
func (e *Engine) backoffFor(newCount int) time.Duration {
	schedule := e.Cfg.BackoffMinutes
	if len(schedule) == 0 {
		schedule = DefaultConfig().BackoffMinutes
	}
	idx := newCount - 1
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return time.Duration(schedule[idx]) * time.Minute
}

// Retry is the manual retry operation: resets status to open, clears
// retry_after and last_failure_reason, optionally zeroing retry_count.
func (e *Engine) Retry(ctx context.Context, idOrSuffix string, resetCount bool) (*types.Task, error) {
	t, err := e.Store.ResolveID(ctx, idOrSuffix)
	if err != nil {
		return nil, err
	}

	t.Status = types.StatusOpen
	t.RetryAfter = ""
	t.LastFailureReason = ""
	if resetCount {
		t.RetryCount = 0
	}
	t.UpdatedAt = types.Now()

	if err := e.Store.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("retry: %w", err)
	}
	if err := e.Store.AppendJournalEntry(ctx, t.ID, "Manually retried", "human"); err != nil {
		return nil, fmt.Errorf("journal retry: %w", err)
	}

	e.appendEvent(types.Event{
		Op: types.EventUpdate, ID: t.ID, TS: t.UpdatedAt,
		Data: map[string]interface{}{
			"status": string(types.StatusOpen), "retry_after": "", "last_failure_reason": "",
			"retry_count": t.RetryCount, "updated_at": t.UpdatedAt,
		},
	})
	return t, nil
}
