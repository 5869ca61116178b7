package eventlog

import "github.com/kkeeland/trak/internal/types"

// Snapshot is the full-record physical format written by Compact and
// accepted by Replay for legacy interop. It carries the legacy
// `blocked_by` field alongside the authoritative `deps` edge list:
// `blocked_by` is a point-in-time
// convenience (the parent ids that were still incomplete when the
// snapshot was taken) kept for readers that pre-date the dependency
// graph computing readiness live; `deps` is the full parent-id edge
// set and is what Replay treats as authoritative.
type Snapshot struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      types.Status `json:"status"`
	Priority    int    `json:"priority"`
	Project     string `json:"project"`

	BlockedBy []string `json:"blocked_by,omitempty"`
	ParentID  string   `json:"parent_id,omitempty"`
	EpicID    string   `json:"epic_id,omitempty"`
	IsEpic    bool     `json:"is_epic"`
	ConvoyID  string   `json:"convoy_id,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	AgentSession string `json:"agent_session,omitempty"`
	TokensUsed   int    `json:"tokens_used"`
	CostUSD      float64 `json:"cost_usd"`
	Tags         string `json:"tags"`
	AssignedTo   string `json:"assigned_to,omitempty"`

	VerifiedBy         string                    `json:"verified_by,omitempty"`
	VerificationStatus types.VerificationStatus `json:"verification_status"`
	CreatedFrom        string                    `json:"created_from,omitempty"`
	VerifyCommand      string                    `json:"verify_command,omitempty"`
	WIPSnapshot        string                    `json:"wip_snapshot,omitempty"`

	Autonomy  types.Autonomy `json:"autonomy"`
	BudgetUSD float64        `json:"budget_usd,omitempty"`

	TokensIn        int     `json:"tokens_in"`
	TokensOut       int     `json:"tokens_out"`
	ModelUsed       string  `json:"model_used,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`

	RetryCount        int    `json:"retry_count"`
	MaxRetries        int    `json:"max_retries"`
	LastFailureReason string `json:"last_failure_reason,omitempty"`
	RetryAfter        string `json:"retry_after,omitempty"`
	TimeoutSeconds    int    `json:"timeout_seconds,omitempty"`

	Journal []types.JournalEntry `json:"journal,omitempty"`
	Deps    []string             `json:"deps,omitempty"`
	Claims  []types.Claim        `json:"claims,omitempty"`
}

// ToTask converts a Snapshot into the canonical Task representation.
func (s Snapshot) ToTask() *types.Task {
	return &types.Task{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		Status:             s.Status,
		Priority:           s.Priority,
		Project:            s.Project,
		Tags:               s.Tags,
		ParentID:           s.ParentID,
		EpicID:             s.EpicID,
		IsEpic:             s.IsEpic,
		ConvoyID:           s.ConvoyID,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		AgentSession:       s.AgentSession,
		AssignedTo:         s.AssignedTo,
		VerificationStatus: s.VerificationStatus,
		VerifiedBy:         s.VerifiedBy,
		CreatedFrom:        s.CreatedFrom,
		VerifyCommand:      s.VerifyCommand,
		WIPSnapshot:        s.WIPSnapshot,
		Autonomy:           s.Autonomy,
		BudgetUSD:          s.BudgetUSD,
		RetryCount:         s.RetryCount,
		MaxRetries:         s.MaxRetries,
		LastFailureReason:  s.LastFailureReason,
		RetryAfter:         s.RetryAfter,
		TimeoutSeconds:     s.TimeoutSeconds,
		CostUSD:            s.CostUSD,
		TokensIn:           s.TokensIn,
		TokensOut:          s.TokensOut,
		TokensUsed:         s.TokensUsed,
		ModelUsed:          s.ModelUsed,
		DurationSeconds:    s.DurationSeconds,
		Journal:            s.Journal,
		Deps:               s.Deps,
		Claims:             s.Claims,
	}
}

// SnapshotOf converts a Task into its wire Snapshot, computing
// BlockedBy from the supplied set of parent ids not yet in {done,
// archived} (callers pass the result of graph.BlockedReason).
func SnapshotOf(t *types.Task, blockedBy []string) Snapshot {
	return Snapshot{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		Status:             t.Status,
		Priority:           t.Priority,
		Project:            t.Project,
		BlockedBy:          blockedBy,
		ParentID:           t.ParentID,
		EpicID:             t.EpicID,
		IsEpic:             t.IsEpic,
		ConvoyID:           t.ConvoyID,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		AgentSession:       t.AgentSession,
		TokensUsed:         t.TokensUsed,
		CostUSD:            t.CostUSD,
		Tags:               t.Tags,
		AssignedTo:         t.AssignedTo,
		VerifiedBy:         t.VerifiedBy,
		VerificationStatus: t.VerificationStatus,
		CreatedFrom:        t.CreatedFrom,
		VerifyCommand:      t.VerifyCommand,
		WIPSnapshot:        t.WIPSnapshot,
		Autonomy:           t.Autonomy,
		BudgetUSD:          t.BudgetUSD,
		TokensIn:           t.TokensIn,
		TokensOut:          t.TokensOut,
		ModelUsed:          t.ModelUsed,
		DurationSeconds:    t.DurationSeconds,
		RetryCount:         t.RetryCount,
		MaxRetries:         t.MaxRetries,
		LastFailureReason:  t.LastFailureReason,
		RetryAfter:         t.RetryAfter,
		TimeoutSeconds:     t.TimeoutSeconds,
		Journal:            t.Journal,
		Deps:               t.Deps,
		Claims:             t.Claims,
	}
}
