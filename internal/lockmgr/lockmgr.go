// Package lockmgr implements trak's workspace lock manager: file-based
// repo/file locks with priority queues, audit logging, expiry, and
// emergency break, cooperating across processes on one host without a
// daemon.
package lockmgr

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DirName is the lock-state directory inside the trak directory.
const DirName = "locks"

// DefaultTimeout is the lock expiry used when lock.timeout is unset.
const DefaultTimeout = 30 * time.Minute

// Manager is a handle to the lock directory for one trak project.
type Manager struct {
	Dir     string
	Timeout time.Duration
}

// New builds a Manager rooted at trakDir/locks, creating the directory
// lazily on first write. A zero timeout falls back to DefaultTimeout.
func New(trakDir string, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{Dir: filepath.Join(trakDir, DirName), Timeout: timeout}
}

// RepoHash returns the 12-hex-character SHA-256 prefix used to name a
// repo's lock/queue files.
func RepoHash(absRepoPath string) string {
	return hashPrefix(absRepoPath)
}

func hashPrefix(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// lockFilePrefix is the shared prefix of every lock file belonging to
// repo, regardless of which task holds it.
func (m *Manager) lockFilePrefix(repo string) string {
	return RepoHash(repo) + "-"
}

// lockPath names one task's lock file within repo's lock set. Keying
// on (repo, task) rather than repo alone lets multiple tasks hold
// independent, non-overlapping file locks on the same repo at once
// without one Acquire's write clobbering another's record.
func (m *Manager) lockPath(repo, taskID string) string {
	return filepath.Join(m.Dir, m.lockFilePrefix(repo)+hashPrefix(taskID)+".lock")
}

func (m *Manager) queuePath(repo string) string {
	return filepath.Join(m.Dir, RepoHash(repo)+".queue")
}

func (m *Manager) auditPath() string {
	return filepath.Join(m.Dir, "audit.jsonl")
}

// flockGuard returns a gofrs/flock-backed OS advisory lock scoped to a
// sibling .flock file for the given lock/queue path, narrowing (not
// eliminating) the read-modify-write TOCTOU window around a repo's
// lock state.
func (m *Manager) flockGuard(repo string) *flock.Flock {
	return flock.New(filepath.Join(m.Dir, RepoHash(repo)+".flock"))
}
