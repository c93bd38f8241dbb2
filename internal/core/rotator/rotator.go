package rotator

import (
	"context"
	"sync"

	"slidewake/internal/core/media"
	"slidewake/internal/logging"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Options contains runtime options for Rotator.
type Options struct {
	Clock clockwork.Clock
}

// Rotator is a state machine that moves the active slide through a playlist.
type Rotator struct {
	lifecycle sync.Mutex // serializes Mount, Unmount and Close

	mu       sync.Mutex
	clock    clockwork.Clock
	policy   DwellPolicy
	log      zerolog.Logger
	playlist *media.Playlist
	state    State
	index    int
	current  *mount
	events   []chan Event
	closed   bool
}

// mount is the timing session of one playlist.
type mount struct {
	playlist *media.Playlist
	stop     chan struct{}
	done     chan struct{}
	pending  bool
}

// New creates a Rotator with the provided dwell policy.
func New(ctx context.Context, policy DwellPolicy, options Options) *Rotator {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if policy == nil {
		policy = FirstSlideDwell{}
	}
	return &Rotator{
		clock:  options.Clock,
		policy: policy,
		log:    logging.FromContext(ctx).With().Str("component", "rotator").Logger(),
		state:  StateEmpty,
	}
}

// Subscribe registers a new observer channel.
func (rotator *Rotator) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	rotator.mu.Lock()
	defer rotator.mu.Unlock()
	if rotator.closed {
		close(ch)
		return ch
	}
	rotator.events = append(rotator.events, ch)
	return ch
}

// SetPolicy replaces the dwell policy. The pending timer keeps its duration;
// the next one armed uses policy.
func (rotator *Rotator) SetPolicy(policy DwellPolicy) {
	if policy == nil {
		return
	}
	rotator.mu.Lock()
	defer rotator.mu.Unlock()
	rotator.policy = policy
}

// Mount starts showing playlist from index 0.
// Mounting the playlist that is already mounted is a no-op; any other
// playlist, even one with identical entries, cancels the pending timer first.
func (rotator *Rotator) Mount(playlist *media.Playlist) {
	rotator.lifecycle.Lock()
	defer rotator.lifecycle.Unlock()

	rotator.mu.Lock()
	if rotator.closed || (rotator.current != nil && rotator.current.playlist == playlist) {
		rotator.mu.Unlock()
		return
	}
	previous := rotator.detachLocked()
	rotator.mu.Unlock()
	previous.wait()

	rotator.mu.Lock()
	defer rotator.mu.Unlock()

	rotator.playlist = playlist
	rotator.index = 0
	rotator.state = stateFor(playlist.Len())
	session := &mount{
		playlist: playlist,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	rotator.current = session

	event := Event{
		Type:     EventMounted,
		State:    rotator.state,
		Length:   playlist.Len(),
		At:       rotator.clock.Now(),
		Playlist: playlist,
	}
	if playlist.Len() > 0 {
		event.Entry = playlist.At(0)
	}
	rotator.log.Info().
		Int("length", playlist.Len()).
		Str("state", string(rotator.state)).
		Msg("playlist mounted")

	if rotator.state != StateRotating {
		close(session.done)
		rotator.emitLocked(event)
		return
	}

	event.Dwell = rotator.policy.Dwell(0)
	session.pending = true
	rotator.emitLocked(event)
	go rotator.run(session, playlist.Len())
}

// Unmount cancels any pending advance and forgets the playlist.
func (rotator *Rotator) Unmount() {
	rotator.lifecycle.Lock()
	defer rotator.lifecycle.Unlock()
	rotator.unmount()
}

// Close unmounts and closes every observer channel. The rotator cannot be reused.
func (rotator *Rotator) Close() {
	rotator.lifecycle.Lock()
	defer rotator.lifecycle.Unlock()

	rotator.unmount()

	rotator.mu.Lock()
	if rotator.closed {
		rotator.mu.Unlock()
		return
	}
	rotator.closed = true
	events := rotator.events
	rotator.events = nil
	rotator.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

// Snapshot returns the current rotation state.
func (rotator *Rotator) Snapshot() Snapshot {
	rotator.mu.Lock()
	defer rotator.mu.Unlock()

	snapshot := Snapshot{
		State:  rotator.state,
		Index:  rotator.index,
		Length: rotator.playlist.Len(),
		Title:  rotator.playlist.Title(),
	}
	if rotator.current != nil {
		snapshot.TimerPending = rotator.current.pending
	}
	if snapshot.Length > 0 && rotator.state != StateStopped {
		snapshot.Entry = rotator.playlist.At(rotator.index)
	}
	return snapshot
}

func (rotator *Rotator) unmount() {
	rotator.mu.Lock()
	if rotator.current == nil {
		rotator.mu.Unlock()
		return
	}
	previous := rotator.detachLocked()
	rotator.state = StateStopped
	rotator.emitLocked(Event{
		Type:  EventUnmounted,
		State: StateStopped,
		Index: rotator.index,
		At:    rotator.clock.Now(),
	})
	rotator.playlist = nil
	rotator.index = 0
	rotator.mu.Unlock()

	previous.wait()
	rotator.log.Debug().Msg("playlist unmounted")
}

// detachLocked stops the current session. The caller must wait on the
// returned session after releasing the mutex.
func (rotator *Rotator) detachLocked() *mount {
	previous := rotator.current
	rotator.current = nil
	if previous != nil {
		previous.pending = false
		close(previous.stop)
	}
	return previous
}

func (rotator *Rotator) run(session *mount, length int) {
	defer close(session.done)

	for {
		rotator.mu.Lock()
		if rotator.current != session {
			rotator.mu.Unlock()
			return
		}
		dwell := rotator.policy.Dwell(rotator.index)
		session.pending = true
		rotator.mu.Unlock()

		timer := rotator.clock.NewTimer(dwell)
		select {
		case <-session.stop:
			timer.Stop()
			return
		case <-timer.Chan():
		}

		rotator.mu.Lock()
		if rotator.current != session {
			rotator.mu.Unlock()
			return
		}
		rotator.advanceLocked(length)
		rotator.mu.Unlock()
	}
}

func (rotator *Rotator) advanceLocked(length int) {
	previous := rotator.index
	rotator.index = (previous + 1) % length
	next := rotator.policy.Dwell(rotator.index)

	rotator.log.Debug().
		Int("from", previous).
		Int("to", rotator.index).
		Dur("dwell", next).
		Msg("slide advanced")

	rotator.emitLocked(Event{
		Type:     EventAdvanced,
		State:    rotator.state,
		Index:    rotator.index,
		Previous: previous,
		Entry:    rotator.playlist.At(rotator.index),
		Length:   length,
		Dwell:    next,
		At:       rotator.clock.Now(),
		Playlist: rotator.playlist,
	})
}

func (rotator *Rotator) emitLocked(event Event) {
	for _, ch := range rotator.events {
		select {
		case ch <- event:
		default:
		}
	}
}

func (session *mount) wait() {
	if session != nil {
		<-session.done
	}
}

func stateFor(length int) State {
	switch {
	case length == 0:
		return StateEmpty
	case length == 1:
		return StateSingle
	default:
		return StateRotating
	}
}
