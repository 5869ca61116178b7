package engine

import (
	"context"
	"fmt"

	"github.com/kkeeland/trak/internal/types"
)

// LogInput carries an annotation plus optional additive usage fields.
type LogInput struct {
	Entry     string
	Author    string
	TokensIn  int
	TokensOut int
	Duration  float64
	Model     string
	CostUSD   float64
}

// Log appends a JournalEntry and optionally accumulates cost/usage
// fields onto the task.
func (e *Engine) Log(ctx context.Context, idOrSuffix string, in LogInput) (*types.Task, error) {
	t, err := e.Store.ResolveID(ctx, idOrSuffix)
	if err != nil {
		return nil, err
	}

	author := in.Author
	if author == "" {
		author = "human"
	}

	hasUsage := in.TokensIn != 0 || in.TokensOut != 0 || in.Duration != 0 || in.CostUSD != 0 || in.Model != ""
	if hasUsage {
		t.TokensIn += in.TokensIn
		t.TokensOut += in.TokensOut
		t.TokensUsed += in.TokensIn + in.TokensOut
		t.DurationSeconds += in.Duration
		t.CostUSD += in.CostUSD
		if in.Model != "" {
			t.ModelUsed = in.Model
		}
		t.UpdatedAt = types.Now()
		if err := e.Store.UpdateTask(ctx, t); err != nil {
			return nil, fmt.Errorf("log (usage): %w", err)
		}
	}

	if err := e.Store.AppendJournalEntry(ctx, t.ID, in.Entry, author); err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}

	data := map[string]interface{}{"entry": in.Entry, "author": author}
	if hasUsage {
		data["tokens_in"] = t.TokensIn
		data["tokens_out"] = t.TokensOut
		data["tokens_used"] = t.TokensUsed
		data["duration_seconds"] = t.DurationSeconds
		data["cost_usd"] = t.CostUSD
		data["model_used"] = t.ModelUsed
	}
	e.appendEvent(types.Event{Op: types.EventLog, ID: t.ID, TS: types.Now(), Data: data})

	return t, nil
}
