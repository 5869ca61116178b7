// Package engine is trak's single mutator: every create/status-change/
// assign/close/fail/retry/log/dep operation goes through TaskEngine, in
// that order: resolve id, validate, store writes, journal entry, one
// event-log append, optional git autocommit. The store writes and the
// journal entry are separate store calls; an operation's writes are not
// wrapped in one transaction, so a failure part-way leaves the earlier
// writes in place.
package engine

import (
	"github.com/kkeeland/trak/internal/eventlog"
	"github.com/kkeeland/trak/internal/store"
	"github.com/kkeeland/trak/internal/types"
	"github.com/rs/zerolog/log"
)

// GitSync is the out-of-scope VCS collaborator: only its effects
// (commit exists, HEAD moved) matter to trak, never its wire format or
// subprocess details.
type GitSync interface {
	// HeadCommit returns the current HEAD hash, or "" if not in a repo.
	HeadCommit() (string, error)
	// CommitExists reports whether hash is a reachable commit.
	CommitExists(hash string) (bool, error)
	// CommitsSince lists commit hashes made after ref, most recent first.
	CommitsSince(ref string) ([]string, error)
	// CommitMessage returns the subject line of a commit.
	CommitMessage(hash string) (string, error)
	// Autocommit commits all pending changes with message if autocommit
	// is enabled; a no-op implementation is valid.
	Autocommit(message string) error
}

// Config carries the subset of project configuration TaskEngine needs.
type Config struct {
	DefaultMaxRetries int
	BackoffMinutes    []int
	Autocommit        bool
}

// DefaultConfig returns the built-in retry/backoff defaults.
func DefaultConfig() Config {
	return Config{
		DefaultMaxRetries: 3,
		BackoffMinutes:    []int{1, 5, 15, 30, 60},
		Autocommit:        false,
	}
}

// Engine is the TaskEngine: wired to the store, event log, an optional
// GitSync, and configuration.
type Engine struct {
	Store *store.Store
	Log   *eventlog.EventLog
	Git   GitSync
	Cfg   Config

	// VerifyRunner executes a task's verify_command and reports whether
	// it exited zero. cmd/trak wires this to a thin os/exec wrapper;
	// tests substitute a fake. The subprocess boundary is kept behind
	// this seam rather than called directly so the engine stays
	// testable without spawning real shells.
	VerifyRunner func(cmd string) (bool, error)
}

// New builds an Engine. git may be nil, in which case git-dependent
// behaviors (wip_snapshot capture, commit verification, git-proof soft
// check) degrade gracefully rather than erroring.
func New(s *store.Store, l *eventlog.EventLog, git GitSync, cfg Config) *Engine {
	return &Engine{Store: s, Log: l, Git: git, Cfg: cfg}
}

// appendEvent is best-effort: a failure here never fails the already-
// committed store mutation.
func (e *Engine) appendEvent(ev types.Event) {
	if e.Log == nil {
		return
	}
	if err := e.Log.Append(ev); err != nil {
		log.Warn().Err(err).Str("task", ev.ID).Str("op", string(ev.Op)).Msg("event log append failed")
	}
}

// autocommit is best-effort and only runs when enabled.
func (e *Engine) autocommit(message string) {
	if !e.Cfg.Autocommit || e.Git == nil {
		return
	}
	if err := e.Git.Autocommit(message); err != nil {
		log.Warn().Err(err).Msg("autocommit failed")
	}
}
