package lockmgr

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkeeland/trak/internal/types"
)

// ErrConflict is returned by Acquire when a different task already
// holds a conflicting lock.
var ErrConflict = errors.New("lock conflict")

// ErrNotHolder is returned by Renew/Release-style operations when the
// caller does not hold the lock it's trying to act on.
var ErrNotHolder = errors.New("caller does not hold this lock")

// Conflict carries the detail needed to report a conflicting Acquire:
// the kind of conflict and, for file locks, the overlapping patterns.
type Conflict struct {
	Kind             types.LockKind
	HolderTask       string
	HolderAgent      string
	OverlappingFiles []string
}

func (c *Conflict) Error() string {
	return "lock held by " + c.HolderTask
}

// readLock loads task's lock file for repo, auto-expiring and deleting
// it (with an audit entry) if it has lapsed. Returns nil, nil if there
// is no live lock for this task.
func (m *Manager) readLock(repo, taskID string) (*types.Lock, error) {
	path := m.lockPath(repo, taskID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var l types.Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}

	if isExpired(&l, time.Now()) {
		_ = os.Remove(path)
		m.appendAudit(types.AuditEvent{
			Kind: types.AuditExpire, RepoPath: repo, Task: l.TaskID,
			Agent: l.Agent, Timestamp: types.Now(),
		})
		return nil, nil
	}
	return &l, nil
}

// otherLocks returns every live, non-expired lock held on repo by a
// task other than taskID, auto-expiring stale ones as a side effect.
func (m *Manager) otherLocks(repo, taskID string) ([]*types.Lock, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	prefix := m.lockFilePrefix(repo)
	var locks []*types.Lock
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}

		path := filepath.Join(m.Dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var l types.Lock
		if err := json.Unmarshal(data, &l); err != nil {
			continue
		}
		if l.TaskID == taskID {
			continue
		}

		if isExpired(&l, time.Now()) {
			_ = os.Remove(path)
			m.appendAudit(types.AuditEvent{
				Kind: types.AuditExpire, RepoPath: l.RepoPath, Task: l.TaskID,
				Agent: l.Agent, Timestamp: types.Now(),
			})
			continue
		}

		locks = append(locks, &l)
	}
	return locks, nil
}

func (m *Manager) writeLock(repo, taskID string, l *types.Lock) error {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(m.lockPath(repo, taskID), data, 0o644)
}

// unionFiles merges b into a, skipping patterns already present by
// exact string match — the same literal-equality notion patternsOverlap
// checks first, short of its broader directory-prefix/glob overlap
// semantics, which would wrongly collapse distinct-but-overlapping
// patterns into one.
func unionFiles(a, b []string) []string {
	out := make([]string, len(a), len(a)+len(b))
	copy(out, a)
	for _, y := range b {
		found := false
		for _, x := range out {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			out = append(out, y)
		}
	}
	return out
}

// Acquire attempts to reserve repo for task. files empty means a
// whole-repo lock. Guarded by an OS advisory flock scoped to a sibling
// file to narrow the cross-process read-modify-write race.
func (m *Manager) Acquire(ctx context.Context, repo, taskID, agent string, files []string) (*types.Lock, error) {
	guard := m.flockGuard(repo)
	if err := guard.Lock(); err != nil {
		return nil, err
	}
	defer guard.Unlock()

	existing, err := m.readLock(repo, taskID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// Same task re-acquiring (e.g. a renew-by-acquire); refresh
		// expiry and union in any newly requested file patterns rather
		// than dropping the ones already held.
		existing.ExpiresAt = types.FormatTime(time.Now().Add(m.Timeout))
		existing.Files = unionFiles(existing.Files, files)
		if err := m.writeLock(repo, taskID, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	others, err := m.otherLocks(repo, taskID)
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		conflict := m.classifyConflict(other, files)
		if conflict != nil {
			m.appendAudit(types.AuditEvent{
				Kind: types.AuditConflict, RepoPath: repo, Task: taskID,
				Agent: agent, Timestamp: types.Now(), Detail: conflict.Error(),
			})
			return nil, conflictErr(conflict)
		}
	}

	kind := types.LockKindFiles
	if len(files) == 0 {
		kind = types.LockKindRepo
	}
	l := &types.Lock{
		TaskID:    taskID,
		RepoPath:  repo,
		Files:     files,
		Timestamp: types.Now(),
		PID:       os.Getpid(),
		Agent:     agent,
		ExpiresAt: types.FormatTime(time.Now().Add(m.Timeout)),
		LockType:  kind,
	}
	if err := m.writeLock(repo, taskID, l); err != nil {
		return nil, err
	}

	m.appendAudit(types.AuditEvent{
		Kind: types.AuditAcquire, RepoPath: repo, Task: taskID,
		Agent: agent, Timestamp: types.Now(),
	})

	_ = m.dequeue(repo, taskID)
	return l, nil
}

// classifyConflict decides whether a different task's existing lock
// blocks the new request. Returns nil if the new request can proceed
// alongside the existing lock (non-overlapping file locks).
func (m *Manager) classifyConflict(existing *types.Lock, requestFiles []string) *Conflict {
	if existing.LockType == types.LockKindRepo {
		return &Conflict{Kind: types.LockKindRepo, HolderTask: existing.TaskID, HolderAgent: existing.Agent}
	}

	// existing is a files lock.
	if len(requestFiles) == 0 {
		return &Conflict{Kind: types.LockKindRepo, HolderTask: existing.TaskID, HolderAgent: existing.Agent}
	}

	if !Overlaps(existing.Files, requestFiles) {
		return nil
	}

	return &Conflict{
		Kind: types.LockKindFiles, HolderTask: existing.TaskID, HolderAgent: existing.Agent,
		OverlappingFiles: overlappingSet(existing.Files, requestFiles),
	}
}

func overlappingSet(a, b []string) []string {
	var out []string
	for _, x := range a {
		for _, y := range b {
			if patternsOverlap(x, y) {
				out = append(out, y)
				break
			}
		}
	}
	return out
}

func conflictErr(c *Conflict) error {
	return &wrappedConflict{Conflict: c}
}

type wrappedConflict struct {
	*Conflict
}

func (w *wrappedConflict) Unwrap() error { return ErrConflict }
func (w *wrappedConflict) Is(target error) bool {
	return target == ErrConflict
}

// Release deletes taskID's lock file for repo unconditionally —
// callers are expected to have verified ownership themselves if that
// matters to them. It does not auto-promote the queue; a waiting agent
// must retry Acquire on its own.
func (m *Manager) Release(repo, taskID, agent string) error {
	guard := m.flockGuard(repo)
	if err := guard.Lock(); err != nil {
		return err
	}
	defer guard.Unlock()

	if err := os.Remove(m.lockPath(repo, taskID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	m.appendAudit(types.AuditEvent{
		Kind: types.AuditRelease, RepoPath: repo, Task: taskID,
		Agent: agent, Timestamp: types.Now(),
	})
	return nil
}

// Break force-deletes every lock file held on repo, by any task,
// regardless of holder — an emergency recovery hatch, not a targeted
// release.
func (m *Manager) Break(repo, breakBy, reason string) error {
	guard := m.flockGuard(repo)
	if err := guard.Lock(); err != nil {
		return err
	}
	defer guard.Unlock()

	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	prefix := m.lockFilePrefix(repo)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		if err := os.Remove(filepath.Join(m.Dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	m.appendAudit(types.AuditEvent{
		Kind: types.AuditBreak, RepoPath: repo, Task: breakBy,
		Timestamp: types.Now(), Detail: reason,
	})
	return nil
}

// Renew extends the current holder's expiry by m.Timeout from now.
// Only the current holder (by taskID) may renew.
func (m *Manager) Renew(repo, taskID string) (*types.Lock, error) {
	guard := m.flockGuard(repo)
	if err := guard.Lock(); err != nil {
		return nil, err
	}
	defer guard.Unlock()

	existing, err := m.readLock(repo, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.TaskID != taskID {
		return nil, ErrNotHolder
	}
	existing.ExpiresAt = types.FormatTime(time.Now().Add(m.Timeout))
	if err := m.writeLock(repo, taskID, existing); err != nil {
		return nil, err
	}
	return existing, nil
}
