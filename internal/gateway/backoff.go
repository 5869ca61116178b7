package gateway

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// fixedSchedule is a backoff.BackOff that walks a fixed list of
// durations and then stops, rather than cenkalti/backoff's default
// exponential curve — the gateway protocol calls for exactly three
// retries after the first attempt, waiting 1s, 2s and 4s.
type fixedSchedule struct {
	schedule []time.Duration
	attempt  int
}

func newFixedScheduleBackoff(schedule []time.Duration) backoff.BackOff {
	return &fixedSchedule{schedule: schedule}
}

func (f *fixedSchedule) NextBackOff() time.Duration {
	if f.attempt >= len(f.schedule) {
		return backoff.Stop
	}
	d := f.schedule[f.attempt]
	f.attempt++
	return d
}

func (f *fixedSchedule) Reset() {
	f.attempt = 0
}
