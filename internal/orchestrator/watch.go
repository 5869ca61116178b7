package orchestrator

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchCycle is invoked once per dispatch cycle in Watch, so callers
// can render a report after each pass.
type WatchCycle func(*DispatchReport, error)

// Watch polls for ready work every DefaultPollInterval, waking early
// on lock-directory changes (a release may free up capacity sooner),
// and exits cleanly on SIGINT/SIGTERM.
func (o *Orchestrator) Watch(ctx context.Context, lockDir string, opts DispatchOptions, onCycle WatchCycle) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("watch: fsnotify unavailable, falling back to poll-only")
	} else {
		defer watcher.Close()
		if addErr := watcher.Add(lockDir); addErr != nil {
			log.Warn().Err(addErr).Str("dir", lockDir).Msg("watch: could not watch lock directory")
		}
	}

	dispatched := make(map[string]bool)
	if opts.Dispatched != nil {
		dispatched = opts.Dispatched
	}

	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()

	runCycle := func() {
		opts.Dispatched = dispatched
		report, runErr := o.Run(ctx, opts)
		if report != nil {
			for _, id := range report.Dispatched {
				dispatched[id] = true
			}
		}
		onCycle(report, runErr)
	}

	runCycle()

	var events chan fsnotify.Event
	var errs chan error
	if watcher != nil {
		events = watcher.Events
		errs = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			runCycle()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Write) != 0 {
				runCycle()
			}
		case werr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(werr).Msg("watch: fsnotify error")
		}
	}
}
