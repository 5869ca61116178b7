package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// invokeRequest is the body of POST /tools/invoke.
type invokeRequest struct {
	Tool       string                 `json:"tool"`
	Args       map[string]interface{} `json:"args"`
	SessionKey string                 `json:"sessionKey,omitempty"`
}

// invokeResponse is the tool-invocation envelope returned by the
// gateway, successful or not.
type invokeResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *invokeError    `json:"error,omitempty"`
}

type invokeError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *invokeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// authError wraps a response whose HTTP status indicates the request
// cannot succeed by retrying (401/403): the caller should surface it
// immediately instead of burning the backoff schedule.
type authError struct {
	StatusCode int
}

func (e *authError) Error() string {
	return fmt.Sprintf("gateway auth failed: HTTP %d", e.StatusCode)
}

// Client talks to a running clawdbot-style gateway over its tool
// invocation HTTP API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New builds a Client from discovery if url/token are empty.
func New(url, token string) *Client {
	if url == "" {
		url, token = Discover()
	}
	return &Client{
		BaseURL:    url,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Invoke calls a named gateway tool with args, retrying transient
// failures on a fixed 1s/2s/4s schedule. HTTP 401/403 responses are
// treated as permanent and returned immediately.
func (c *Client) Invoke(ctx context.Context, tool string, args map[string]interface{}, sessionKey string) (json.RawMessage, error) {
	reqBody, err := json.Marshal(invokeRequest{Tool: tool, Args: args, SessionKey: sessionKey})
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal request: %w", err)
	}

	var result json.RawMessage
	schedule := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	bo := backoff.WithContext(newFixedScheduleBackoff(schedule), ctx)

	operation := func() error {
		resp, invokeErr := c.doInvoke(ctx, reqBody)
		if invokeErr != nil {
			var ae *authError
			if isAuthError(invokeErr, &ae) {
				return backoff.Permanent(invokeErr)
			}
			return invokeErr
		}
		result = resp
		return nil
	}

	notify := func(err error, d time.Duration) {
		log.Warn().Err(err).Dur("backoff", d).Str("tool", tool).Msg("gateway invoke retrying")
	}

	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doInvoke(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/tools/invoke", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &authError{StatusCode: resp.StatusCode}
	}

	var out invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gateway: decode response: %w", err)
	}
	if !out.OK {
		if out.Error != nil {
			return nil, out.Error
		}
		return nil, fmt.Errorf("gateway: tool invocation failed")
	}
	return out.Result, nil
}

func isAuthError(err error, target **authError) bool {
	ae, ok := err.(*authError)
	if !ok {
		return false
	}
	*target = ae
	return true
}
