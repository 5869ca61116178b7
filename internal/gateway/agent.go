package gateway

import (
	"context"
	"encoding/json"
	"fmt"
)

// mainSessionKey is the fixed session key trak spawns agents under;
// the gateway multiplexes tool calls by session, and trak only ever
// drives one logical conversation per agent.
const mainSessionKey = "agent:main:main"

// SpawnRequest describes one agent dispatch.
type SpawnRequest struct {
	Task              string
	Label             string
	Cleanup           bool
	RunTimeoutSeconds int
	Model             string
}

// SpawnResult is the gateway's acknowledgement of a spawn.
type SpawnResult struct {
	SessionID string `json:"sessionId"`
	Label     string `json:"label"`
}

// SpawnAgent asks the gateway to start an agent session for task.
func (c *Client) SpawnAgent(ctx context.Context, req SpawnRequest) (*SpawnResult, error) {
	args := map[string]interface{}{
		"task":              req.Task,
		"label":             req.Label,
		"cleanup":           req.Cleanup,
		"runTimeoutSeconds": req.RunTimeoutSeconds,
	}
	if req.Model != "" {
		args["model"] = req.Model
	}

	raw, err := c.Invoke(ctx, "sessions_spawn", args, mainSessionKey)
	if err != nil {
		return nil, fmt.Errorf("spawn agent: %w", err)
	}

	var out SpawnResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("spawn agent: decode result: %w", err)
		}
	}
	return &out, nil
}

// Session is one entry from sessions_list.
type Session struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// Probe lists active gateway sessions, used by orchestrator watch mode
// to reconcile dispatched agents against what's actually still running.
func (c *Client) Probe(ctx context.Context) ([]Session, error) {
	raw, err := c.Invoke(ctx, "sessions_list", map[string]interface{}{}, mainSessionKey)
	if err != nil {
		return nil, fmt.Errorf("probe sessions: %w", err)
	}

	var out struct {
		Sessions []Session `json:"sessions"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("probe sessions: decode result: %w", err)
		}
	}
	return out.Sessions, nil
}
