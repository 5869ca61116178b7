package lockmgr

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/kkeeland/trak/internal/types"
)

// AcquireResult is the outcome of AcquireOrQueue.
type AcquireResult struct {
	Acquired         bool
	Queued           bool
	AlreadyQueued    bool
	Position         int
	Lock             *types.Lock
	HolderTask       string
	OverlappingFiles []string
}

// AcquireOrQueue tries Acquire; on conflict, enqueues the request at a
// position determined by ascending priority then FIFO, unless the task
// is already queued for this repo.
func (m *Manager) AcquireOrQueue(ctx context.Context, repo, taskID, agent string, files []string, priority int) (AcquireResult, error) {
	lock, err := m.Acquire(ctx, repo, taskID, agent, files)
	if err == nil {
		return AcquireResult{Acquired: true, Lock: lock}, nil
	}

	var wc *wrappedConflict
	if !errors.As(err, &wc) {
		return AcquireResult{}, err
	}
	conflict := wc.Conflict

	guard := m.flockGuard(repo)
	if err := guard.Lock(); err != nil {
		return AcquireResult{}, err
	}
	defer guard.Unlock()

	entries, err := m.readQueue(repo)
	if err != nil {
		return AcquireResult{}, err
	}

	for i, e := range entries {
		if e.Task == taskID {
			return AcquireResult{AlreadyQueued: true, Position: i + 1, HolderTask: conflict.HolderTask}, nil
		}
	}

	entry := types.QueueEntry{
		ID:        uuid.NewString(),
		Task:      taskID,
		Agent:     agent,
		Files:     files,
		Timestamp: types.Now(),
		Priority:  priority,
	}
	entries = append(entries, entry)
	sortQueue(entries)

	if err := m.writeQueue(repo, entries); err != nil {
		return AcquireResult{}, err
	}

	m.appendAudit(types.AuditEvent{
		Kind: types.AuditQueue, RepoPath: repo, Task: taskID,
		Agent: agent, Timestamp: types.Now(),
	})

	position := 1
	for i, e := range entries {
		if e.ID == entry.ID {
			position = i + 1
			break
		}
	}

	return AcquireResult{
		Queued: true, Position: position, HolderTask: conflict.HolderTask,
		OverlappingFiles: conflict.OverlappingFiles,
	}, nil
}

func sortQueue(entries []types.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return entries[i].Timestamp < entries[j].Timestamp
	})
}

func (m *Manager) readQueue(repo string) ([]types.QueueEntry, error) {
	data, err := os.ReadFile(m.queuePath(repo))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []types.QueueEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e types.QueueEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("decode queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func (m *Manager) writeQueue(repo string, entries []types.QueueEntry) error {
	if len(entries) == 0 {
		err := os.Remove(m.queuePath(repo))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return os.WriteFile(m.queuePath(repo), buf.Bytes(), 0o644)
}

// dequeue removes taskID's entry from repo's queue, if present.
func (m *Manager) dequeue(repo, taskID string) error {
	entries, err := m.readQueue(repo)
	if err != nil {
		return err
	}
	filtered := entries[:0]
	removed := false
	for _, e := range entries {
		if e.Task == taskID {
			removed = true
			continue
		}
		filtered = append(filtered, e)
	}
	if !removed {
		return nil
	}
	if err := m.writeQueue(repo, filtered); err != nil {
		return err
	}
	m.appendAudit(types.AuditEvent{
		Kind: types.AuditDequeue, RepoPath: repo, Task: taskID, Timestamp: types.Now(),
	})
	return nil
}
