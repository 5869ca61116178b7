package gateway

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func TestFixedSchedule_WalksThenStops(t *testing.T) {
	bo := newFixedScheduleBackoff([]time.Duration{time.Second, 2 * time.Second, 4 * time.Second})

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := bo.NextBackOff(); got != w {
			t.Errorf("attempt %d: got %v, want %v", i, got, w)
		}
	}
	if got := bo.NextBackOff(); got != backoff.Stop {
		t.Errorf("after schedule exhausted: got %v, want Stop", got)
	}
}

func TestFixedSchedule_ResetRestartsSchedule(t *testing.T) {
	bo := newFixedScheduleBackoff([]time.Duration{time.Second, 2 * time.Second})
	bo.NextBackOff()
	bo.NextBackOff()
	bo.Reset()

	if got := bo.NextBackOff(); got != time.Second {
		t.Errorf("after reset: got %v, want %v", got, time.Second)
	}
}
