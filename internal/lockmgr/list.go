package lockmgr

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkeeland/trak/internal/types"
)

// List scans the locks directory, returning every live lock and
// auto-expiring any stale ones as a side effect (mirroring readLock's
// single-lock behavior, but across the whole directory).
func (m *Manager) List() ([]*types.Lock, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var locks []*types.Lock
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
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
