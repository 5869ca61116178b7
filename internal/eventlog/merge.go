package eventlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kkeeland/trak/internal/types"
)

var (
	markerOurs  = []byte("<<<<<<<")
	markerMid   = []byte("=======")
	markerTheir = []byte(">>>>>>>")
)

// MergeResult is the outcome of resolving a git-conflicted log: the
// fully merged, newline-delimited snapshot content ready to write back
// to disk, and the ids of tasks that were actually in conflict (present
// with diverging updated_at on both sides) for the caller to surface.
type MergeResult struct {
	Resolved  []byte
	Conflicts []string
}

// Merge partitions raw conflicted file content into shared/ours/theirs
// sections by git's standard conflict markers, replays each partition
// independently, and for every task id present on both sides keeps the
// record with the later updated_at (ties go to theirs). Ids present on
// only one side pass through unchanged. The shared partition (lines
// outside any marker block) is merged in first and is never itself in
// conflict. Output is sorted by created_at.
func Merge(content []byte) (MergeResult, error) {
	shared, ours, theirs, err := partition(content)
	if err != nil {
		return MergeResult{}, err
	}

	sharedTasks, err := replayLines(shared)
	if err != nil {
		return MergeResult{}, fmt.Errorf("replay shared partition: %w", err)
	}
	oursTasks, err := replayLines(ours)
	if err != nil {
		return MergeResult{}, fmt.Errorf("replay ours partition: %w", err)
	}
	theirsTasks, err := replayLines(theirs)
	if err != nil {
		return MergeResult{}, fmt.Errorf("replay theirs partition: %w", err)
	}

	merged := make(map[string]*types.Task, len(sharedTasks)+len(oursTasks)+len(theirsTasks))
	for id, t := range sharedTasks {
		merged[id] = t
	}

	var conflicts []string
	for id, t := range oursTasks {
		merged[id] = t
	}
	for id, theirTask := range theirsTasks {
		ourTask, inOurs := oursTasks[id]
		if !inOurs {
			merged[id] = theirTask
			continue
		}
		if ourTask.UpdatedAt != theirTask.UpdatedAt {
			conflicts = append(conflicts, id)
		}
		// Later updated_at wins; a tie (including exact equality) goes
		// to theirs.
		if theirTask.UpdatedAt >= ourTask.UpdatedAt {
			merged[id] = theirTask
		} else {
			merged[id] = ourTask
		}
	}
	sort.Strings(conflicts)

	ordered := make([]*types.Task, 0, len(merged))
	for _, t := range merged {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].CreatedAt < ordered[j].CreatedAt })

	var buf bytes.Buffer
	for _, t := range ordered {
		snap := SnapshotOf(t, nil)
		line, err := json.Marshal(snap)
		if err != nil {
			return MergeResult{}, fmt.Errorf("encode merged snapshot %s: %w", t.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	return MergeResult{Resolved: buf.Bytes(), Conflicts: conflicts}, nil
}

// partition splits raw file content into shared, ours, and theirs line
// sets. Lines outside any <<<<<<< ... >>>>>>> block belong to shared;
// lines between <<<<<<< and ======= belong to ours; lines between
// ======= and >>>>>>> belong to theirs.
func partition(content []byte) (shared, ours, theirs [][]byte, err error) {
	lines := bytes.Split(content, []byte("\n"))

	inOurs := false
	inTheirs := false
	for _, line := range lines {
		trimmed := trimSpace(line)
		switch {
		case bytes.HasPrefix(trimmed, markerOurs):
			inOurs = true
			inTheirs = false
			continue
		case bytes.HasPrefix(trimmed, markerMid) && inOurs:
			inOurs = false
			inTheirs = true
			continue
		case bytes.HasPrefix(trimmed, markerTheir):
			inTheirs = false
			continue
		}

		if len(trimmed) == 0 {
			continue
		}

		switch {
		case inOurs:
			ours = append(ours, line)
		case inTheirs:
			theirs = append(theirs, line)
		default:
			shared = append(shared, line)
		}
	}
	return shared, ours, theirs, nil
}
