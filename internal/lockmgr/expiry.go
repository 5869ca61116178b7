package lockmgr

import (
	"syscall"
	"time"

	"github.com/kkeeland/trak/internal/types"
)

// isExpired reports whether a lock has passed its expiry timestamp or
// its holder process is no longer alive.
func isExpired(l *types.Lock, now time.Time) bool {
	if expiresAt, err := types.ParseTime(l.ExpiresAt); err == nil && now.After(expiresAt) {
		return true
	}
	return !pidAlive(l.PID)
}

// pidAlive sends signal 0 to pid, which performs no action but reports
// whether the process exists and is signalable. This is the one
// correctness-critical answer the relational store and event log can't
// give us — it depends on live OS state, not on trak's own data — so it
// stays on syscall rather than a library.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil
}
