package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kkeeland/trak/internal/types"
)

// ErrTaskNotFound is returned when a task id (or suffix) resolves to
// nothing.
var ErrTaskNotFound = errors.New("task not found")

// ErrAmbiguousID is returned when a suffix match resolves to more than
// one task.
var ErrAmbiguousID = errors.New("task id is ambiguous")

const taskColumns = `id, title, description, status, priority, project, tags,
	parent_id, epic_id, is_epic, convoy_id, created_at, updated_at,
	agent_session, assigned_to, verification_status, verified_by,
	created_from, verify_command, wip_snapshot, autonomy, budget_usd,
	retry_count, max_retries, last_failure_reason, retry_after,
	timeout_seconds, cost_usd, tokens_in, tokens_out, tokens_used,
	model_used, duration_seconds`

func scanTask(row interface{ Scan(...any) error }) (*types.Task, error) {
	var t types.Task
	var parentID, epicID, retryAfter sql.NullString
	var isEpic int
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Project, &t.Tags,
		&parentID, &epicID, &isEpic, &t.ConvoyID, &t.CreatedAt, &t.UpdatedAt,
		&t.AgentSession, &t.AssignedTo, &t.VerificationStatus, &t.VerifiedBy,
		&t.CreatedFrom, &t.VerifyCommand, &t.WIPSnapshot, &t.Autonomy, &t.BudgetUSD,
		&t.RetryCount, &t.MaxRetries, &t.LastFailureReason, &retryAfter,
		&t.TimeoutSeconds, &t.CostUSD, &t.TokensIn, &t.TokensOut, &t.TokensUsed,
		&t.ModelUsed, &t.DurationSeconds,
	); err != nil {
		return nil, err
	}
	t.ParentID = parentID.String
	t.EpicID = epicID.String
	t.IsEpic = isEpic != 0
	t.RetryAfter = retryAfter.String
	return &t, nil
}

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, t *types.Task) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (
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

// GetTask fetches one task by exact id.
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ResolveID finds a task by exact id, falling back to a unique
// suffix match (trailing characters of the hex portion), matching the
// CLI convenience of typing a short unambiguous suffix.
func (s *Store) ResolveID(ctx context.Context, idOrSuffix string) (*types.Task, error) {
	if t, err := s.GetTask(ctx, idOrSuffix); err == nil {
		return t, nil
	} else if !errors.Is(err, ErrTaskNotFound) {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id LIKE ?`, "%"+idOrSuffix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, ErrTaskNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d tasks", ErrAmbiguousID, idOrSuffix, len(matches))
	}
}

// TaskFilter narrows ListTasks results. Zero values mean "no filter".
type TaskFilter struct {
	Status   types.Status
	Project  string
	Priority *int
	EpicID   string
	Autonomy types.Autonomy
}

// ListTasks returns tasks matching filter, ordered by priority then
// creation time.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]*types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Project != "" {
		query += ` AND project = ?`
		args = append(args, filter.Project)
	}
	if filter.Priority != nil {
		query += ` AND priority = ?`
		args = append(args, *filter.Priority)
	}
	if filter.EpicID != "" {
		query += ` AND epic_id = ?`
		args = append(args, filter.EpicID)
	}
	if filter.Autonomy != "" {
		query += ` AND autonomy = ?`
		args = append(args, filter.Autonomy)
	}
	query += ` ORDER BY priority ASC, created_at ASC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask replaces every mutable column of the task row matching
// t.ID. Callers are expected to have mutated a struct fetched via
// GetTask/ResolveID so unrelated columns round-trip unchanged.
func (s *Store) UpdateTask(ctx context.Context, t *types.Task) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE tasks SET
		title=?, description=?, status=?, priority=?, project=?, tags=?,
		parent_id=?, epic_id=?, is_epic=?, convoy_id=?, updated_at=?,
		agent_session=?, assigned_to=?, verification_status=?, verified_by=?,
		created_from=?, verify_command=?, wip_snapshot=?, autonomy=?, budget_usd=?,
		retry_count=?, max_retries=?, last_failure_reason=?, retry_after=?,
		timeout_seconds=?, cost_usd=?, tokens_in=?, tokens_out=?, tokens_used=?,
		model_used=?, duration_seconds=?
		WHERE id=?`,
		t.Title, t.Description, t.Status, t.Priority, t.Project, t.Tags,
		nullable(t.ParentID), nullable(t.EpicID), boolToInt(t.IsEpic), t.ConvoyID, t.UpdatedAt,
		t.AgentSession, t.AssignedTo, t.VerificationStatus, t.VerifiedBy,
		t.CreatedFrom, t.VerifyCommand, t.WIPSnapshot, t.Autonomy, t.BudgetUSD,
		t.RetryCount, t.MaxRetries, t.LastFailureReason, nullable(t.RetryAfter),
		t.TimeoutSeconds, t.CostUSD, t.TokensIn, t.TokensOut, t.TokensUsed,
		t.ModelUsed, t.DurationSeconds,
		t.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task row; foreign keys cascade to dependencies,
// task_log, task_claims, and cost_events.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
