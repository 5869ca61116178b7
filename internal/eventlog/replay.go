package eventlog

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kkeeland/trak/internal/types"
)

// Replay reads the log file, detects its physical format from the
// first non-blank line, and reconstructs the full task set, keyed by
// id, with each task's Journal/Deps/Claims populated and its Journal
// and Claims sorted by timestamp (Deps keep log order).
func (l *EventLog) Replay() (map[string]*types.Task, error) {
	lines, err := readLines(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return replayLines(lines)
}

func replayLines(lines [][]byte) (map[string]*types.Task, error) {
	if len(lines) == 0 {
		return map[string]*types.Task{}, nil
	}
	if isEventFormat(lines[0]) {
		return foldEvents(lines)
	}
	return foldSnapshots(lines)
}

// isEventFormat reports whether a line has both "op" and "ts" keys,
// the event-record discriminator.
func isEventFormat(line []byte) bool {
	var probe struct {
		Op json.RawMessage `json:"op"`
		TS json.RawMessage `json:"ts"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return false
	}
	return probe.Op != nil && probe.TS != nil
}

func foldSnapshots(lines [][]byte) (map[string]*types.Task, error) {
	tasks := make(map[string]*types.Task, len(lines))
	for _, line := range lines {
		var snap Snapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		tasks[snap.ID] = snap.ToTask()
	}
	sortAll(tasks)
	return tasks, nil
}

func foldEvents(lines [][]byte) (map[string]*types.Task, error) {
	tasks := make(map[string]*types.Task)
	for _, line := range lines {
		var ev types.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if err := foldOne(tasks, ev); err != nil {
			return nil, fmt.Errorf("fold event %s/%s: %w", ev.Op, ev.ID, err)
		}
	}
	sortAll(tasks)
	return tasks, nil
}

func foldOne(tasks map[string]*types.Task, ev types.Event) error {
	switch ev.Op {
	case types.EventCreate:
		t := newTaskDefaults(ev.ID, ev.TS)
		applyFields(t, ev.Data)
		tasks[ev.ID] = t

	case types.EventUpdate:
		t, ok := tasks[ev.ID]
		if !ok {
			t = newTaskDefaults(ev.ID, ev.TS)
			tasks[ev.ID] = t
		}
		applyFields(t, ev.Data)
		t.UpdatedAt = ev.TS

	case types.EventClose:
		t, ok := tasks[ev.ID]
		if !ok {
			t = newTaskDefaults(ev.ID, ev.TS)
			tasks[ev.ID] = t
		}
		applyFields(t, ev.Data)
		if t.Status == "" {
			t.Status = types.StatusDone
		}
		t.UpdatedAt = ev.TS

	case types.EventLog:
		t, ok := tasks[ev.ID]
		if !ok {
			t = newTaskDefaults(ev.ID, ev.TS)
			tasks[ev.ID] = t
		}
		author := strField(ev.Data, "author")
		if author == "" {
			author = "human"
		}
		t.Journal = append(t.Journal, types.JournalEntry{
			Timestamp: ev.TS,
			Entry:     strField(ev.Data, "entry"),
			Author:    author,
		})

	case types.EventDepAdd:
		t, ok := tasks[ev.ID]
		if !ok {
			t = newTaskDefaults(ev.ID, ev.TS)
			tasks[ev.ID] = t
		}
		parent := strField(ev.Data, "parent_id")
		if !contains(t.Deps, parent) {
			t.Deps = append(t.Deps, parent)
		}

	case types.EventDepRm:
		t, ok := tasks[ev.ID]
		if !ok {
			return nil
		}
		parent := strField(ev.Data, "parent_id")
		t.Deps = remove(t.Deps, parent)

	case types.EventClaim:
		t, ok := tasks[ev.ID]
		if !ok {
			t = newTaskDefaults(ev.ID, ev.TS)
			tasks[ev.ID] = t
		}
		status := strField(ev.Data, "status")
		if status == "" {
			status = string(types.ClaimClaimed)
		}
		t.Claims = append(t.Claims, types.Claim{
			Task:      ev.ID,
			Agent:     strField(ev.Data, "agent"),
			Model:     strField(ev.Data, "model"),
			Status:    types.ClaimStatus(status),
			ClaimedAt: ev.TS,
		})

	default:
		return fmt.Errorf("unknown event op %q", ev.Op)
	}
	return nil
}

func newTaskDefaults(id, ts string) *types.Task {
	return &types.Task{
		ID:                 id,
		Status:             types.StatusOpen,
		Priority:           1,
		Autonomy:           types.AutonomyManual,
		MaxRetries:         3,
		VerificationStatus: types.VerificationUnset,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}
}

// applyFields merges the changed-field map from an event's Data onto
// t. Unknown keys are ignored; this keeps Replay forward-compatible
// with events carrying fields an older binary doesn't recognize.
func applyFields(t *types.Task, data map[string]interface{}) {
	for key, raw := range data {
		switch key {
		case "title":
			t.Title = toStr(raw)
		case "description":
			t.Description = toStr(raw)
		case "status":
			t.Status = types.Status(toStr(raw))
		case "priority":
			t.Priority = int(toNum(raw))
		case "project":
			t.Project = toStr(raw)
		case "tags":
			t.Tags = toStr(raw)
		case "parent_id":
			t.ParentID = toStr(raw)
		case "epic_id":
			t.EpicID = toStr(raw)
		case "is_epic":
			t.IsEpic = toBool(raw)
		case "convoy_id":
			t.ConvoyID = toStr(raw)
		case "agent_session":
			t.AgentSession = toStr(raw)
		case "assigned_to":
			t.AssignedTo = toStr(raw)
		case "verification_status":
			t.VerificationStatus = types.VerificationStatus(toStr(raw))
		case "verified_by":
			t.VerifiedBy = toStr(raw)
		case "created_from":
			t.CreatedFrom = toStr(raw)
		case "verify_command":
			t.VerifyCommand = toStr(raw)
		case "wip_snapshot":
			t.WIPSnapshot = toStr(raw)
		case "autonomy":
			t.Autonomy = types.Autonomy(toStr(raw))
		case "budget_usd":
			t.BudgetUSD = toNum(raw)
		case "retry_count":
			t.RetryCount = int(toNum(raw))
		case "max_retries":
			t.MaxRetries = int(toNum(raw))
		case "last_failure_reason":
			t.LastFailureReason = toStr(raw)
		case "retry_after":
			t.RetryAfter = toStr(raw)
		case "timeout_seconds":
			t.TimeoutSeconds = int(toNum(raw))
		case "cost_usd":
			t.CostUSD = toNum(raw)
		case "tokens_in":
			t.TokensIn = int(toNum(raw))
		case "tokens_out":
			t.TokensOut = int(toNum(raw))
		case "tokens_used":
			t.TokensUsed = int(toNum(raw))
		case "model_used":
			t.ModelUsed = toStr(raw)
		case "duration_seconds":
			t.DurationSeconds = toNum(raw)
		case "created_at":
			t.CreatedAt = toStr(raw)
		case "updated_at":
			t.UpdatedAt = toStr(raw)
		}
	}
}

func sortAll(tasks map[string]*types.Task) {
	for _, t := range tasks {
		sort.Slice(t.Journal, func(i, j int) bool { return t.Journal[i].Timestamp < t.Journal[j].Timestamp })
		sort.Slice(t.Claims, func(i, j int) bool { return t.Claims[i].ClaimedAt < t.Claims[j].ClaimedAt })
	}
}

func strField(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok {
		return ""
	}
	return toStr(v)
}

func toStr(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toNum(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func toBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
