package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kkeeland/trak/internal/cost"
	"github.com/kkeeland/trak/internal/engine"
	"github.com/kkeeland/trak/internal/eventlog"
	"github.com/kkeeland/trak/internal/formatter"
	"github.com/kkeeland/trak/internal/gateway"
	"github.com/kkeeland/trak/internal/lockmgr"
	"github.com/kkeeland/trak/internal/orchestrator"
	"github.com/kkeeland/trak/internal/store"
)

// app bundles the opened store and its dependent collaborators for one
// command invocation. Every RunE that touches the store builds one of
// these first and defers app.Close().
type app struct {
	Store   *store.Store
	Log     *eventlog.EventLog
	Engine  *engine.Engine
	Locks   *lockmgr.Manager
	Cost    *cost.Engine
	Gateway *gateway.Client
}

func openApp(ctx context.Context, allowMissing bool) (*app, error) {
	if cfg.Store.Path != "" {
		if err := os.Setenv(store.EnvOverride, cfg.Store.Path); err != nil {
			return nil, err
		}
	}
	s, err := store.Open(ctx, allowMissing)
	if err != nil {
		return nil, err
	}

	elog := eventlog.Open(s.Dir)

	engCfg := engine.Config{
		DefaultMaxRetries: cfg.Retry.MaxRetries,
		BackoffMinutes:    cfg.BackoffMinutes(),
		Autocommit:        false,
	}

	eng := engine.New(s, elog, &engine.ExecGitSync{}, engCfg)
	eng.VerifyRunner = runShellVerify

	lockTimeout, err := time.ParseDuration(cfg.Lock.Timeout)
	if err != nil {
		lockTimeout = lockmgr.DefaultTimeout
	}
	locks := lockmgr.New(s.Dir, lockTimeout)

	pricing := cost.NewTable(parsePricingOverrides(cfg.Cost.PricingOverrides))
	costEngine := cost.NewEngine(s, elog, pricing)

	gw := gateway.New(cfg.Gateway.URL, cfg.Gateway.Token)

	return &app{Store: s, Log: elog, Engine: eng, Locks: locks, Cost: costEngine, Gateway: gw}, nil
}

func (a *app) Close() error {
	return a.Store.Close()
}

// runShellVerify is the subprocess boundary engine.Engine.VerifyRunner
// calls into for `trak close --verify`; it runs cmd through the shell
// and reports exit status.
func runShellVerify(cmd string) (bool, error) {
	c := exec.Command("sh", "-c", cmd)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	err := c.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}

func newOrchestrator(a *app, project, repoPath string) *orchestrator.Orchestrator {
	ocfg := orchestrator.Config{
		MaxAgents:   cfg.Orchestrator.MaxAgents,
		MinPriority: cfg.Orchestrator.MinPriority,
		Project:     project,
		RepoPath:    repoPath,
	}
	return orchestrator.New(a.Store, a.Engine, a.Locks, a.Gateway, ocfg)
}

// parsePricingOverrides converts config's "in,out[,cache]" string
// encoding into the cost package's ModelPrice map.
func parsePricingOverrides(raw map[string]string) map[string]cost.ModelPrice {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]cost.ModelPrice, len(raw))
	for model, spec := range raw {
		parts := strings.Split(spec, ",")
		if len(parts) < 2 {
			continue
		}
		in, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		o, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		price := cost.ModelPrice{InputPerMillion: in, OutputPerMillion: o}
		if len(parts) >= 3 {
			if c, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err == nil {
				price.CachePerMillion = c
			}
		}
		out[model] = price
	}
	return out
}

// repoPath resolves the workspace root the orchestrator locks
// against: the current working directory. Lock identity only needs a
// stable absolute path, not a git-root walk like store.Locate does.
func repoPath() (string, error) {
	return os.Getwd()
}

var stdoutWriter = os.Stdout

func outputFormat() string {
	if cfg != nil && cfg.Output != "" {
		return cfg.Output
	}
	return "table"
}

func render(v interface{}, tableFn func()) error {
	switch outputFormat() {
	case "json":
		return formatter.NewJSON().Format(os.Stdout, v)
	case "yaml":
		return formatter.NewYAML().Format(os.Stdout, v)
	default:
		tableFn()
		return nil
	}
}
