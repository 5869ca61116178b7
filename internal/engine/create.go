package engine

import (
	"context"
	"fmt"

	"github.com/kkeeland/trak/internal/types"
)

// CreateInput carries the fields a caller may set at creation time;
// zero values fall back to built-in defaults.
type CreateInput struct {
	Title       string
	Description string
	Project     string
	Tags        string
	ParentID    string
	EpicID      string
	IsEpic      bool
	Priority    *int
	Autonomy    types.Autonomy
	BudgetUSD   float64
	MaxRetries  *int
	VerifyCmd   string
	CreatedFrom string
}

// Create assigns a fresh id and inserts the task with its defaults:
// status open, autonomy manual, priority 1, max_retries from config.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*types.Task, error) {
	id, err := types.NewTaskID()
	if err != nil {
		return nil, fmt.Errorf("generate task id: %w", err)
	}

	priority := 1
	if in.Priority != nil {
		priority = *in.Priority
	}
	if priority < 0 || priority > 3 {
		return nil, types.ErrInvalidPriority
	}

	autonomy := in.Autonomy
	if autonomy == "" {
		autonomy = types.AutonomyManual
	}

	maxRetries := e.Cfg.DefaultMaxRetries
	if in.MaxRetries != nil {
		maxRetries = *in.MaxRetries
	}

	now := types.Now()
	t := &types.Task{
		ID:                 id,
		Title:              in.Title,
		Description:        in.Description,
		Status:             types.StatusOpen,
		Priority:           priority,
		Project:            in.Project,
		Tags:               in.Tags,
		ParentID:           in.ParentID,
		EpicID:             in.EpicID,
		IsEpic:             in.IsEpic,
		CreatedAt:          now,
		UpdatedAt:          now,
		VerificationStatus: types.VerificationUnset,
		VerifyCommand:      in.VerifyCmd,
		CreatedFrom:        in.CreatedFrom,
		Autonomy:           autonomy,
		BudgetUSD:          in.BudgetUSD,
		MaxRetries:         maxRetries,
	}

	if err := e.Store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := e.Store.AppendJournalEntry(ctx, id, "Task created: "+t.Title, "human"); err != nil {
		return nil, fmt.Errorf("journal create: %w", err)
	}

	e.appendEvent(types.Event{
		Op: types.EventCreate, ID: id, TS: now,
		Data: map[string]interface{}{
			"title": t.Title, "description": t.Description, "status": string(t.Status),
			"priority": t.Priority, "project": t.Project, "tags": t.Tags,
			"parent_id": t.ParentID, "epic_id": t.EpicID, "is_epic": t.IsEpic,
			"autonomy": string(t.Autonomy), "budget_usd": t.BudgetUSD,
			"max_retries": t.MaxRetries, "verify_command": t.VerifyCommand,
			"created_from": t.CreatedFrom, "created_at": now, "updated_at": now,
		},
	})
	e.autocommit(fmt.Sprintf("trak: create %s", id))

	return t, nil
}
