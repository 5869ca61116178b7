package orchestrator

import (
	"context"
	"testing"

	"github.com/kkeeland/trak/internal/gateway"
)

func TestWatch_RunsOneCycleThenStopsOnCancel(t *testing.T) {
	srv := fakeGatewayServer(t, nil)
	defer srv.Close()

	o, _, _ := newTestOrchestrator(t, Config{})
	o.Gateway = gateway.New(srv.URL, "")

	ctx, cancel := context.WithCancel(context.Background())
	lockDir := t.TempDir()

	cycles := 0
	err := o.Watch(ctx, lockDir, DispatchOptions{}, func(report *DispatchReport, runErr error) {
		cycles++
		if runErr != nil {
			t.Errorf("cycle error: %v", runErr)
		}
		cancel()
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if cycles != 1 {
		t.Errorf("cycles=%d, want exactly 1", cycles)
	}
}
