package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/kkeeland/trak/internal/types"
)

// RecordCostEvent inserts a granular cost event and atomically folds its
// totals into the owning task's running cost/token counters in one
// transaction, so cost.BudgetStatus can read the cheap aggregate off
// the task row instead of summing cost_events on every check.
func (s *Store) RecordCostEvent(ctx context.Context, e *types.CostEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == "" {
		e.Timestamp = types.Now()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO cost_events
		(id, task_id, timestamp, model, tokens_in, tokens_out, cost_usd, duration, agent, operation, metadata)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Task, e.Timestamp, e.Model, e.TokensIn, e.TokensOut, e.CostUSD, e.Duration, e.Agent, e.Operation, e.Metadata,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET
		cost_usd = cost_usd + ?,
		tokens_in = tokens_in + ?,
		tokens_out = tokens_out + ?,
		tokens_used = tokens_used + ?,
		duration_seconds = duration_seconds + ?,
		model_used = CASE WHEN ? != '' THEN ? ELSE model_used END,
		updated_at = ?
		WHERE id = ?`,
		e.CostUSD, e.TokensIn, e.TokensOut, e.TokensIn+e.TokensOut, e.Duration,
		e.Model, e.Model, types.Now(), e.Task,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// CostEvents returns every cost event recorded against a task, oldest first.
func (s *Store) CostEvents(ctx context.Context, taskID string) ([]types.CostEvent, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, task_id, timestamp, model, tokens_in, tokens_out, cost_usd, duration, agent, operation, metadata
		 FROM cost_events WHERE task_id = ? ORDER BY timestamp ASC`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.CostEvent
	for rows.Next() {
		var e types.CostEvent
		if err := rows.Scan(&e.ID, &e.Task, &e.Timestamp, &e.Model, &e.TokensIn, &e.TokensOut,
			&e.CostUSD, &e.Duration, &e.Agent, &e.Operation, &e.Metadata); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// TotalCost sums cost_usd across every task, used for project-wide
// budget reporting.
func (s *Store) TotalCost(ctx context.Context, project string) (float64, error) {
	query := `SELECT COALESCE(SUM(cost_usd), 0) FROM tasks`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	var total float64
	err := s.DB.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}
