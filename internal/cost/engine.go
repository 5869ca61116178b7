package cost

import (
	"context"
	"fmt"

	"github.com/kkeeland/trak/internal/eventlog"
	"github.com/kkeeland/trak/internal/store"
	"github.com/kkeeland/trak/internal/types"
	"github.com/rs/zerolog/log"
)

// Engine wires the pricing table to the store and event log: Record is
// the only mutating entry point, matching TaskEngine's own
// journal+event-append pattern for every observable change.
type Engine struct {
	Store    *store.Store
	Log      *eventlog.EventLog
	Pricing  *Table
}

// NewEngine builds a cost Engine over an opened store and event log.
func NewEngine(s *store.Store, l *eventlog.EventLog, pricing *Table) *Engine {
	return &Engine{Store: s, Log: l, Pricing: pricing}
}

// Record inserts a CostEvent, lets the store fold its totals into the
// owning task's aggregates, and runs the budget check, emitting a
// one-time journal entry the first time the task crosses into warning
// and once per event that pushes it into (or keeps it past) exceeded.
func (e *Engine) Record(ctx context.Context, ev *types.CostEvent) error {
	before, err := e.Store.GetTask(ctx, ev.Task)
	if err != nil {
		return fmt.Errorf("record cost event: %w", err)
	}
	beforeStatus := Status(before)

	if ev.CostUSD == 0 && ev.Model != "" {
		ev.CostUSD = e.Pricing.Calculate(ev.TokensIn, ev.TokensOut, ev.Model)
	}

	if err := e.Store.RecordCostEvent(ctx, ev); err != nil {
		return fmt.Errorf("record cost event: %w", err)
	}

	after, err := e.Store.GetTask(ctx, ev.Task)
	if err != nil {
		return fmt.Errorf("record cost event: %w", err)
	}
	afterStatus := Status(after)

	switch {
	case afterStatus == BudgetWarning && beforeStatus != BudgetWarning && beforeStatus != BudgetExceeded:
		e.journal(ctx, ev.Task, fmt.Sprintf("Budget warning: $%.2f of $%.2f used", after.CostUSD, after.BudgetUSD))
	case afterStatus == BudgetExceeded:
		e.journal(ctx, ev.Task, fmt.Sprintf("Budget exceeded: $%.2f of $%.2f used", after.CostUSD, after.BudgetUSD))
	}

	if e.Log != nil {
		if err := e.Log.Append(types.Event{
			Op: types.EventUpdate,
			ID: ev.Task,
			TS: ev.Timestamp,
			Data: map[string]interface{}{
				"cost_usd":   after.CostUSD,
				"tokens_in":  after.TokensIn,
				"tokens_out": after.TokensOut,
				"model_used": after.ModelUsed,
			},
		}); err != nil {
			log.Warn().Err(err).Str("task", ev.Task).Msg("cost event append to event log failed")
		}
	}

	return nil
}

// journal is best-effort, matching the engine's own "journal/event
// append failures never fail the primary mutation" policy.
func (e *Engine) journal(ctx context.Context, taskID, entry string) {
	if err := e.Store.AppendJournalEntry(ctx, taskID, entry, "trak"); err != nil {
		log.Warn().Err(err).Str("task", taskID).Msg("budget journal entry failed")
	}
}
