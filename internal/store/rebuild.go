package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kkeeland/trak/internal/types"
)

// Rebuild discards every row in the relational store and re-inserts the
// given tasks, including their embedded journal entries, dependency
// edges (Task.Deps holds parent ids), and claims. Callers obtain tasks
// from internal/eventlog.Replay: the event log is the source of truth,
// the database is a derived, disposable index over it.
func (s *Store) Rebuild(ctx context.Context, tasks []*types.Task) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"cost_events", "task_claims", "task_log", "dependencies", "tasks"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, t := range tasks {
		if err := insertTaskTx(ctx, tx, t); err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
		for _, parentID := range t.Deps {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO dependencies (child_id, parent_id) VALUES (?, ?)`,
				t.ID, parentID); err != nil {
				return fmt.Errorf("insert dependency %s<-%s: %w", t.ID, parentID, err)
			}
		}
		for _, j := range t.Journal {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO task_log (task_id, timestamp, entry, author) VALUES (?, ?, ?, ?)`,
				t.ID, j.Timestamp, j.Entry, j.Author); err != nil {
				return fmt.Errorf("insert journal entry for %s: %w", t.ID, err)
			}
		}
		for _, c := range t.Claims {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO task_claims (task_id, agent, model, status, claimed_at, released_at) VALUES (?, ?, ?, ?, ?, ?)`,
				t.ID, c.Agent, c.Model, c.Status, c.ClaimedAt, nullable(c.ReleasedAt)); err != nil {
				return fmt.Errorf("insert claim for %s: %w", t.ID, err)
			}
		}
	}

	return tx.Commit()
}

func insertTaskTx(ctx context.Context, tx *sql.Tx, t *types.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO tasks (`+taskColumns+`) VALUES (
		?,?,?,?,?,?,?, ?,?,?,?,?,?, ?,?,?,?, ?,?,?,?,?, ?,?,?,?, ?,?,?,?,?, ?,?)`,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.Project, t.Tags,
		nullable(t.ParentID), nullable(t.EpicID), boolToInt(t.IsEpic), t.ConvoyID, t.CreatedAt, t.UpdatedAt,
		t.AgentSession, t.AssignedTo, t.VerificationStatus, t.VerifiedBy,
		t.CreatedFrom, t.VerifyCommand, t.WIPSnapshot, t.Autonomy, t.BudgetUSD,
		t.RetryCount, t.MaxRetries, t.LastFailureReason, nullable(t.RetryAfter),
		t.TimeoutSeconds, t.CostUSD, t.TokensIn, t.TokensOut, t.TokensUsed,
		t.ModelUsed, t.DurationSeconds,
	)
	return err
}
