// Package guard keeps the display awake with two independent strategies: a
// platform screen lock and a hidden, continuously playing keep-alive element.
// Every failure is logged and swallowed; nothing here is fatal.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"slidewake/internal/logging"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultInterval is how often the watchdog re-verifies both strategies.
const DefaultInterval = 10 * time.Second

const releaseTimeout = 5 * time.Second

// ErrScreenLockUnsupported indicates the host exposes no screen lock primitive.
var ErrScreenLockUnsupported = errors.New("screen lock unsupported")

// LockHandle is a held platform screen lock.
type LockHandle interface {
	// Released is closed when the platform revokes the lock.
	Released() <-chan struct{}
	Release(ctx context.Context) error
}

// ScreenLock requests a platform "keep screen on" lock.
type ScreenLock interface {
	Acquire(ctx context.Context) (LockHandle, error)
}

// KeepAlive is a near-invisible looping element whose playback discourages
// the host from blanking the screen.
type KeepAlive interface {
	Paused() bool
	Play() error
}

// Attempt is the outcome of one strategy attempt.
type Attempt string

const (
	AttemptOK      Attempt = "ok"
	AttemptSkipped Attempt = "skipped"
	AttemptFailed  Attempt = "failed"
)

// Options contains runtime options for Guard.
type Options struct {
	Clock    clockwork.Clock
	Interval time.Duration
}

// Stats counts what the guard has attempted so far.
type Stats struct {
	Active       bool   `json:"active"`
	Session      string `json:"session,omitempty"`
	LockHeld     bool   `json:"lock_held"`
	LockAttempts int    `json:"lock_attempts"`
	LockFailures int    `json:"lock_failures"`
	Revocations  int    `json:"revocations"`
	Releases     int    `json:"releases"`
	PlayAttempts int    `json:"play_attempts"`
	PlayFailures int    `json:"play_failures"`
	Ticks        int    `json:"ticks"`
	Signals      int    `json:"signals"`

	LastLock Attempt `json:"last_lock,omitempty"`
	LastPlay Attempt `json:"last_play,omitempty"`
}

// Guard is the display-awake watchdog. The zero value is not usable; call New.
type Guard struct {
	lifecycle sync.Mutex // serializes SetActive

	mu        sync.Mutex
	lock      ScreenLock
	keepAlive KeepAlive
	clock     clockwork.Clock
	interval  time.Duration
	log       zerolog.Logger
	session   *session
	stats     Stats
}

// session owns every resource of one activation.
type session struct {
	id      string
	cancel  context.CancelFunc
	signals chan string
	done    chan struct{}
	handle  LockHandle
}

// New creates an inactive guard. Either strategy may be nil.
func New(ctx context.Context, lock ScreenLock, keepAlive KeepAlive, options Options) *Guard {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.Interval <= 0 {
		options.Interval = DefaultInterval
	}
	return &Guard{
		lock:      lock,
		keepAlive: keepAlive,
		clock:     options.Clock,
		interval:  options.Interval,
		log:       logging.FromContext(ctx).With().Str("component", "guard").Logger(),
	}
}

// SetActive turns the guard on or off. Turning it off cancels the watchdog,
// drops every subscription and releases the lock if held, and returns only
// after the watchdog goroutine has exited.
func (guard *Guard) SetActive(ctx context.Context, active bool) {
	guard.lifecycle.Lock()
	defer guard.lifecycle.Unlock()

	guard.mu.Lock()
	current := guard.session
	guard.mu.Unlock()

	if active == (current != nil) {
		return
	}

	if !active {
		current.cancel()
		<-current.done
		guard.mu.Lock()
		guard.session = nil
		guard.stats.Active = false
		guard.stats.Session = ""
		guard.stats.LockHeld = false
		guard.mu.Unlock()
		guard.log.Info().Str("session", current.id).Msg("guard deactivated")
		return
	}

	runCtx, cancel := context.WithCancel(logging.WithContext(context.WithoutCancel(ctx), guard.log))
	next := &session{
		id:      uuid.NewString(),
		cancel:  cancel,
		signals: make(chan string, 1),
		done:    make(chan struct{}),
	}
	guard.mu.Lock()
	guard.session = next
	guard.stats.Active = true
	guard.stats.Session = next.id
	guard.mu.Unlock()

	guard.log.Info().Str("session", next.id).Dur("interval", guard.interval).Msg("guard activated")
	go guard.run(runCtx, next)
}

// Active reports whether a watchdog session is running.
func (guard *Guard) Active() bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.session != nil
}

// Visible re-arms both strategies after the presentation returns to the foreground.
func (guard *Guard) Visible() {
	guard.signal("visible")
}

// Interaction re-arms both strategies after user input, when the host is most
// likely to allow playback and lock requests.
func (guard *Guard) Interaction() {
	guard.signal("interaction")
}

// Close deactivates the guard.
func (guard *Guard) Close() {
	guard.SetActive(context.Background(), false)
}

// Stats returns a copy of the attempt counters.
func (guard *Guard) Stats() Stats {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.stats
}

func (guard *Guard) signal(reason string) {
	guard.mu.Lock()
	current := guard.session
	guard.mu.Unlock()
	if current == nil {
		return
	}
	select {
	case current.signals <- reason:
	default:
	}
}

func (guard *Guard) run(ctx context.Context, current *session) {
	defer close(current.done)
	defer guard.release(current)

	ticker := guard.clock.NewTicker(guard.interval)
	defer ticker.Stop()

	guard.rearm(ctx, current, "activate")

	for {
		var revoked <-chan struct{}
		if current.handle != nil {
			revoked = current.handle.Released()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			guard.mu.Lock()
			guard.stats.Ticks++
			guard.mu.Unlock()
			guard.rearm(ctx, current, "watchdog")
		case reason := <-current.signals:
			guard.mu.Lock()
			guard.stats.Signals++
			guard.mu.Unlock()
			guard.rearm(ctx, current, reason)
		case <-revoked:
			guard.mu.Lock()
			guard.stats.Revocations++
			guard.mu.Unlock()
			guard.log.Warn().Msg("screen lock revoked by platform, reacquiring")
			guard.release(current)
			guard.acquire(ctx, current)
		}
	}
}

// rearm attempts both strategies; each is a no-op when already satisfied.
func (guard *Guard) rearm(ctx context.Context, current *session, reason string) {
	if ctx.Err() != nil {
		return
	}
	lock := guard.acquire(ctx, current)
	play := guard.play()
	guard.log.Trace().
		Str("reason", reason).
		Str("lock", string(lock)).
		Str("play", string(play)).
		Msg("re-armed")
}

func (guard *Guard) acquire(ctx context.Context, current *session) Attempt {
	if guard.lock == nil || current.handle != nil {
		return AttemptSkipped
	}

	handle, err := guard.lock.Acquire(ctx)
	result := AttemptOK
	if err != nil || handle == nil {
		result = AttemptFailed
	}

	guard.mu.Lock()
	guard.stats.LockAttempts++
	guard.stats.LastLock = result
	if result == AttemptFailed {
		guard.stats.LockFailures++
	} else {
		guard.stats.LockHeld = true
	}
	guard.mu.Unlock()

	switch {
	case errors.Is(err, ErrScreenLockUnsupported):
		guard.log.Debug().Err(err).Msg("screen lock unavailable, relying on keep-alive")
	case err != nil:
		guard.log.Warn().Err(err).Msg("screen lock request failed (non-fatal)")
	case handle == nil:
		guard.log.Warn().Msg("screen lock request returned no handle")
	default:
		current.handle = handle
		guard.log.Info().Msg("screen lock active")
	}
	return result
}

func (guard *Guard) play() Attempt {
	if guard.keepAlive == nil || !guard.keepAlive.Paused() {
		return AttemptSkipped
	}

	err := guard.keepAlive.Play()
	result := AttemptOK
	if err != nil {
		result = AttemptFailed
	}

	guard.mu.Lock()
	guard.stats.PlayAttempts++
	guard.stats.LastPlay = result
	if err != nil {
		guard.stats.PlayFailures++
	}
	guard.mu.Unlock()

	if err != nil {
		guard.log.Warn().Err(err).Msg("keep-alive playback prevented")
		return result
	}
	guard.log.Debug().Msg("keep-alive playing")
	return result
}

// release drops the session's handle. A revoked handle still holds platform
// resources, so it goes through here too.
func (guard *Guard) release(current *session) {
	if current.handle == nil {
		return
	}
	handle := current.handle
	current.handle = nil

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	err := handle.Release(ctx)

	guard.mu.Lock()
	guard.stats.Releases++
	guard.stats.LockHeld = false
	guard.mu.Unlock()

	if err != nil {
		guard.log.Warn().Err(err).Msg("screen lock release failed (non-fatal)")
		return
	}
	guard.log.Debug().Msg("screen lock released")
}
