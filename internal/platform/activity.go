package platform

import (
	"context"
	"errors"
	"time"

	"slidewake/internal/logging"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultActivityInterval is how often ActivityWatcher samples the idle time.
const DefaultActivityInterval = time.Second

// ActivityOptions contains runtime options for ActivityWatcher.
type ActivityOptions struct {
	Clock    clockwork.Clock
	Interval time.Duration
}

// ActivityWatcher reports user input by sampling an IdleProvider: whenever
// the idle time goes down between two samples, somebody touched the machine.
type ActivityWatcher struct {
	provider   IdleProvider
	onActivity func()
	clock      clockwork.Clock
	interval   time.Duration
	log        zerolog.Logger
}

// NewActivityWatcher creates a watcher that calls onActivity after input.
func NewActivityWatcher(ctx context.Context, provider IdleProvider, onActivity func(), options ActivityOptions) *ActivityWatcher {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.Interval <= 0 {
		options.Interval = DefaultActivityInterval
	}
	return &ActivityWatcher{
		provider:   provider,
		onActivity: onActivity,
		clock:      options.Clock,
		interval:   options.Interval,
		log:        logging.FromContext(ctx).With().Str("component", "activity").Logger(),
	}
}

// Run samples until ctx is done. It returns nil early when the host cannot
// report idle time.
func (watcher *ActivityWatcher) Run(ctx context.Context) error {
	if watcher.provider == nil {
		return nil
	}

	ticker := watcher.clock.NewTicker(watcher.interval)
	defer ticker.Stop()

	var (
		previous time.Duration
		sampled  bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}

		idle, err := watcher.provider.IdleDuration()
		if errors.Is(err, ErrIdleUnsupported) {
			watcher.log.Info().Msg("idle time unavailable, input detection disabled")
			return nil
		}
		if err != nil {
			watcher.log.Debug().Err(err).Msg("idle sample failed")
			sampled = false
			continue
		}

		if sampled && idle < previous && watcher.onActivity != nil {
			watcher.log.Trace().Dur("idle", idle).Msg("user input detected")
			watcher.onActivity()
		}
		previous = idle
		sampled = true
	}
}
