package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kkeeland/trak/internal/types"
)

// ErrNoActiveClaim is returned by ReleaseClaim when the task has no
// outstanding claimed row.
var ErrNoActiveClaim = errors.New("no active claim on task")

// CreateClaim records a new soft claim. Claims are advisory: they
// record who is working a task for status/metrics purposes, they are
// never consulted to decide whether an operation is allowed (that is
// the workspace lock's job).
func (s *Store) CreateClaim(ctx context.Context, taskID, agent, model string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO task_claims (task_id, agent, model, status, claimed_at) VALUES (?, ?, ?, 'claimed', ?)`,
		taskID, agent, model, types.Now())
	return err
}

// ReleaseClaim marks the most recent active claim on a task released.
func (s *Store) ReleaseClaim(ctx context.Context, taskID string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE task_claims SET status = 'released', released_at = ?
		 WHERE id = (SELECT id FROM task_claims WHERE task_id = ? AND status = 'claimed' ORDER BY id DESC LIMIT 1)`,
		types.Now(), taskID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoActiveClaim
	}
	return nil
}

// Claims returns every claim recorded against a task, oldest first.
func (s *Store) Claims(ctx context.Context, taskID string) ([]types.Claim, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT agent, model, status, claimed_at, released_at FROM task_claims WHERE task_id = ? ORDER BY id ASC`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []types.Claim
	for rows.Next() {
		var c types.Claim
		var releasedAt sql.NullString
		if err := rows.Scan(&c.Agent, &c.Model, &c.Status, &c.ClaimedAt, &releasedAt); err != nil {
			return nil, err
		}
		c.Task = taskID
		c.ReleasedAt = releasedAt.String
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
