// Package orchestrator drives the auto-dispatch loop: it finds ready,
// auto-autonomy tasks, acquires their workspace locks, and hands them
// to the gateway as spawned agent sessions, bounded to a fixed
// concurrency.
package orchestrator

import (
	"time"

	"github.com/kkeeland/trak/internal/cost"
	"github.com/kkeeland/trak/internal/engine"
	"github.com/kkeeland/trak/internal/gateway"
	"github.com/kkeeland/trak/internal/lockmgr"
	"github.com/kkeeland/trak/internal/store"
)

// DefaultMaxAgents is the default bound on simultaneously dispatched
// agents.
const DefaultMaxAgents = 3

// DefaultMinPriority excludes tasks with priority above this value
// (priority is lowest-number-first) from auto-dispatch unless
// overridden.
const DefaultMinPriority = 1

// DefaultPollInterval is how often watch mode re-scans for ready work
// absent an earlier lock-release wakeup.
const DefaultPollInterval = 5 * time.Second

// Config controls dispatch behavior.
type Config struct {
	MaxAgents   int
	MinPriority int
	Project     string
	RepoPath    string
	Model       string
}

func (c Config) withDefaults() Config {
	if c.MaxAgents <= 0 {
		c.MaxAgents = DefaultMaxAgents
	}
	if c.MinPriority == 0 {
		c.MinPriority = DefaultMinPriority
	}
	return c
}

// Orchestrator wires together the components a dispatch cycle needs.
type Orchestrator struct {
	Store   *store.Store
	Engine  *engine.Engine
	Locks   *lockmgr.Manager
	Gateway *gateway.Client
	Cfg     Config
}

// New builds an Orchestrator with defaults applied.
func New(s *store.Store, e *engine.Engine, locks *lockmgr.Manager, gw *gateway.Client, cfg Config) *Orchestrator {
	return &Orchestrator{Store: s, Engine: e, Locks: locks, Gateway: gw, Cfg: cfg.withDefaults()}
}

// DispatchReport summarizes one dispatch cycle.
type DispatchReport struct {
	Considered int
	Dispatched []string
	Skipped    map[string]string // task id -> reason
}

func (r *DispatchReport) skip(id, reason string) {
	if r.Skipped == nil {
		r.Skipped = make(map[string]string)
	}
	r.Skipped[id] = reason
}

// costAvailable exists so tests can stub budget checks; production
// code always delegates to cost.IsAvailable.
var costAvailable = cost.IsAvailable
