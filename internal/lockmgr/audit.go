package lockmgr

import (
	"encoding/json"
	"os"

	"github.com/kkeeland/trak/internal/types"
)

// appendAudit records one lock-transition event. Best-effort: a
// failure here never blocks the caller's acquire/release decision,
// matching the engine's own journal/event-append failure policy.
func (m *Manager) appendAudit(ev types.AuditEvent) {
	f, err := os.OpenFile(m.auditPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = f.Write(append(line, '\n'))
}
