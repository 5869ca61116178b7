package orchestrator

import (
	"testing"
	"time"

	"github.com/kkeeland/trak/internal/types"
)

func TestResolveTimeout_CLIFlagWins(t *testing.T) {
	task := &types.Task{TimeoutSeconds: 60, Project: "p"}
	cfg := TimeoutConfig{AgentTimeout: "10m", ProjectTimeout: map[string]string{"p": "5m"}}

	got := ResolveTimeout("2m", task, nil, cfg)
	if got != 2*time.Minute {
		t.Errorf("got %v, want 2m", got)
	}
}

func TestResolveTimeout_TaskFieldBeatsProjectAndProfile(t *testing.T) {
	task := &types.Task{TimeoutSeconds: 30, Project: "p"}
	cfg := TimeoutConfig{ProjectTimeout: map[string]string{"p": "5m"}}

	got := ResolveTimeout("", task, nil, cfg)
	if got != 30*time.Second {
		t.Errorf("got %v, want 30s", got)
	}
}

func TestResolveTimeout_ProjectBeatsProfileAndGlobal(t *testing.T) {
	task := &types.Task{Project: "p"}
	cfg := TimeoutConfig{
		AgentTimeout:   "20m",
		ProjectTimeout: map[string]string{"p": "7m"},
		ProfileTimeout: map[string]string{"slow": "15m"},
	}

	got := ResolveTimeout("", task, []string{"slow"}, cfg)
	if got != 7*time.Minute {
		t.Errorf("got %v, want 7m", got)
	}
}

func TestResolveTimeout_ProfileBeatsGlobal(t *testing.T) {
	task := &types.Task{}
	cfg := TimeoutConfig{
		AgentTimeout:   "20m",
		ProfileTimeout: map[string]string{"slow": "15m"},
	}

	got := ResolveTimeout("", task, []string{"fast", "slow"}, cfg)
	if got != 15*time.Minute {
		t.Errorf("got %v, want 15m", got)
	}
}

func TestResolveTimeout_GlobalBeatsDefault(t *testing.T) {
	task := &types.Task{}
	cfg := TimeoutConfig{AgentTimeout: "20m"}

	got := ResolveTimeout("", task, nil, cfg)
	if got != 20*time.Minute {
		t.Errorf("got %v, want 20m", got)
	}
}

func TestResolveTimeout_FallsBackToDefault(t *testing.T) {
	got := ResolveTimeout("", &types.Task{}, nil, TimeoutConfig{})
	if got != DefaultAgentTimeout {
		t.Errorf("got %v, want default %v", got, DefaultAgentTimeout)
	}
}

func TestResolveTimeout_BareIntegerIsSeconds(t *testing.T) {
	got := ResolveTimeout("45", &types.Task{}, nil, TimeoutConfig{})
	if got != 45*time.Second {
		t.Errorf("got %v, want 45s", got)
	}
}

func TestResolveTimeout_InvalidFlagFallsThrough(t *testing.T) {
	task := &types.Task{}
	cfg := TimeoutConfig{AgentTimeout: "10m"}

	got := ResolveTimeout("not-a-duration", task, nil, cfg)
	if got != 10*time.Minute {
		t.Errorf("got %v, want 10m (invalid flag ignored)", got)
	}
}
