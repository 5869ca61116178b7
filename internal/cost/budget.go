package cost

import "github.com/kkeeland/trak/internal/types"

// BudgetStatus classifies a task's spend against its ceiling.
type BudgetStatus string

const (
	BudgetNone     BudgetStatus = "no-budget"
	BudgetOK       BudgetStatus = "ok"
	BudgetWarning  BudgetStatus = "warning"
	BudgetExceeded BudgetStatus = "exceeded"
)

// Status derives a task's budget status from its BudgetUSD ceiling and
// CostUSD spend so far.
func Status(t *types.Task) BudgetStatus {
	if t.BudgetUSD <= 0 {
		return BudgetNone
	}
	switch {
	case t.CostUSD >= t.BudgetUSD:
		return BudgetExceeded
	case t.CostUSD/t.BudgetUSD >= 0.8:
		return BudgetWarning
	default:
		return BudgetOK
	}
}

// IsAvailable reports whether a task may still be dispatched:
// false iff its budget status is exceeded.
func IsAvailable(t *types.Task) bool {
	return Status(t) != BudgetExceeded
}
