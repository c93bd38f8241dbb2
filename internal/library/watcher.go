package library

import (
	"context"
	"fmt"
	"slices"
	"time"

	"slidewake/internal/core/media"
	"slidewake/internal/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the folder must stay quiet before a rescan.
const DefaultDebounce = 500 * time.Millisecond

// WatcherOptions contains runtime options for Watcher.
type WatcherOptions struct {
	Clock    clockwork.Clock
	Debounce time.Duration
}

// Watcher rescans a media folder after changes and publishes a new playlist
// whenever its contents differ from the last one published.
type Watcher struct {
	dir      string
	title    string
	onChange func(*media.Playlist)
	clock    clockwork.Clock
	debounce time.Duration
	log      zerolog.Logger
	last     []string
}

// NewWatcher creates a Watcher for dir. onChange runs on the watcher goroutine.
func NewWatcher(ctx context.Context, dir, title string, onChange func(*media.Playlist), options WatcherOptions) *Watcher {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.Debounce <= 0 {
		options.Debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		title:    title,
		onChange: onChange,
		clock:    options.Clock,
		debounce: options.Debounce,
		log:      logging.FromContext(ctx).With().Str("component", "library").Str("dir", dir).Logger(),
	}
}

// Load scans the folder once, remembers the result and returns it as a
// playlist. Call it before Run.
func (watcher *Watcher) Load() (*media.Playlist, error) {
	refs, err := Scan(watcher.dir)
	if err != nil {
		return nil, err
	}
	watcher.last = refs
	watcher.log.Info().Int("entries", len(refs)).Msg("media folder loaded")
	return media.NewPlaylist(watcher.title, refs...), nil
}

// Run watches the folder until ctx is done.
func (watcher *Watcher) Run(ctx context.Context) error {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch media dir: %w", err)
	}
	defer notify.Close()

	if err := notify.Add(watcher.dir); err != nil {
		return fmt.Errorf("watch media dir: %w", err)
	}

	var (
		timer clockwork.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-notify.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			watcher.log.Trace().Str("op", event.Op.String()).Str("file", event.Name).Msg("media folder changed")
			if timer == nil {
				timer = watcher.clock.NewTimer(watcher.debounce)
			} else {
				timer.Reset(watcher.debounce)
			}
			fire = timer.Chan()
		case err, ok := <-notify.Errors:
			if !ok {
				return nil
			}
			watcher.log.Warn().Err(err).Msg("media folder watch error")
		case <-fire:
			fire = nil
			watcher.rescan()
		}
	}
}

func (watcher *Watcher) rescan() {
	refs, err := Scan(watcher.dir)
	if err != nil {
		watcher.log.Warn().Err(err).Msg("media folder rescan failed")
		return
	}
	if slices.Equal(refs, watcher.last) {
		return
	}
	watcher.last = refs
	watcher.log.Info().Int("entries", len(refs)).Msg("media folder changed, new playlist")
	if watcher.onChange != nil {
		watcher.onChange(media.NewPlaylist(watcher.title, refs...))
	}
}

func relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return true
	}
	return event.Has(fsnotify.Write) && Supported(event.Name)
}
