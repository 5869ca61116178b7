package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInvoke_SuccessReturnsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools/invoke" {
			t.Errorf("path=%q, want /tools/invoke", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"sessionId":"s1"}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	raw, err := c.Invoke(context.Background(), "sessions_spawn", map[string]interface{}{"task": "x"}, "key")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SessionID != "s1" {
		t.Errorf("sessionId=%q, want s1", out.SessionID)
	}
}

func TestInvoke_AuthErrorIsNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.Invoke(context.Background(), "sessions_spawn", nil, "key")
	if err == nil {
		t.Fatal("want error for 401 response")
	}
	if attempts != 1 {
		t.Errorf("attempts=%d, want exactly 1 (auth errors should not retry)", attempts)
	}
}

func TestInvoke_ToolErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":{"message":"boom","code":"E1"}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.Invoke(context.Background(), "sessions_spawn", nil, "key")
	if err == nil {
		t.Fatal("want error for ok=false response")
	}
	if got := err.Error(); got != "E1: boom" {
		t.Errorf("err=%q, want %q", got, "E1: boom")
	}
}

func TestSpawnAgent_DecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body invokeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Tool != "sessions_spawn" {
			t.Errorf("tool=%q, want sessions_spawn", body.Tool)
		}
		w.Write([]byte(`{"ok":true,"result":{"sessionId":"sess-1","label":"worker"}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	res, err := c.SpawnAgent(context.Background(), SpawnRequest{Task: "do thing", Label: "worker"})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if res.SessionID != "sess-1" || res.Label != "worker" {
		t.Errorf("result=%+v, want sessionId=sess-1 label=worker", res)
	}
}

func TestProbe_ListsSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":{"sessions":[{"id":"a","label":"l1","status":"running"}]}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	sessions, err := c.Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "a" {
		t.Errorf("sessions=%+v, want one session with id=a", sessions)
	}
}
