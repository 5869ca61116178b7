package eventlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/kkeeland/trak/internal/types"
)

// Compact rewrites the log as one snapshot line per task, sorted by
// creation time, atomically: write to a sibling .tmp file, then
// rename over the original so a crash mid-write never leaves a
// truncated log. blockedBy supplies each task's current incomplete-
// parent list (typically graph.BlockedReason's output) for the
// legacy `blocked_by` field.
func (l *EventLog) Compact(tasks map[string]*types.Task, blockedBy map[string][]string) error {
	ordered := make([]*types.Task, 0, len(tasks))
	for _, t := range tasks {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].CreatedAt < ordered[j].CreatedAt })

	var buf bytes.Buffer
	for _, t := range ordered {
		snap := SnapshotOf(t, blockedBy[t.ID])
		line, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot %s: %w", t.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	tmp := l.Path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write compacted log: %w", err)
	}
	if err := os.Rename(tmp, l.Path); err != nil {
		return fmt.Errorf("rename compacted log: %w", err)
	}
	return nil
}
