package orchestrator

import (
	"strconv"
	"time"

	"github.com/kkeeland/trak/internal/types"
)

// DefaultAgentTimeout is the final fallback when nothing more specific
// applies.
const DefaultAgentTimeout = 900 * time.Second

// TimeoutConfig is the subset of project configuration the timeout
// chain consults, ordered from least to most specific in the
// resolution below.
type TimeoutConfig struct {
	AgentTimeout    string            // global agent.timeout
	ProjectTimeout  map[string]string // project.<name>.timeout
	ProfileTimeout  map[string]string // timeout.profile.<tag>.timeout, keyed by tag
}

// ResolveTimeout implements the precedence chain: CLI flag >
// task.timeout_seconds > project config > tag-profile config > global
// agent.timeout > 900s default.
func ResolveTimeout(cliFlag string, t *types.Task, tags []string, cfg TimeoutConfig) time.Duration {
	if cliFlag != "" {
		if d, ok := parseTimeoutValue(cliFlag); ok {
			return d
		}
	}
	if t.TimeoutSeconds > 0 {
		return time.Duration(t.TimeoutSeconds) * time.Second
	}
	if t.Project != "" {
		if raw, ok := cfg.ProjectTimeout[t.Project]; ok {
			if d, ok := parseTimeoutValue(raw); ok {
				return d
			}
		}
	}
	for _, tag := range tags {
		if raw, ok := cfg.ProfileTimeout[tag]; ok {
			if d, ok := parseTimeoutValue(raw); ok {
				return d
			}
		}
	}
	if cfg.AgentTimeout != "" {
		if d, ok := parseTimeoutValue(cfg.AgentTimeout); ok {
			return d
		}
	}
	return DefaultAgentTimeout
}

// parseTimeoutValue accepts either a Go duration string ("30m",
// "1h30m", "90s") or a bare integer number of seconds.
func parseTimeoutValue(raw string) (time.Duration, bool) {
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return d, true
}
