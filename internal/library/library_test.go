package library

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"slidewake/internal/core/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
}

func TestScanFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.JPG", "a.png", "clip.mp4", "notes.txt", ".hidden.jpg", "C.webp")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o750))

	refs, err := Scan(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		assert.True(t, filepath.IsAbs(ref))
		names = append(names, filepath.Base(ref))
	}
	assert.Equal(t, []string{"a.png", "b.JPG", "C.webp", "clip.mp4"}, names)
}

func TestScanMissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("photo.JPEG"))
	assert.True(t, Supported("loop.mov"))
	assert.False(t, Supported("readme.md"))
	assert.False(t, Supported("noext"))
}

type playlistSink struct {
	mu        sync.Mutex
	playlists []*media.Playlist
}

func (sink *playlistSink) add(playlist *media.Playlist) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.playlists = append(sink.playlists, playlist)
}

func (sink *playlistSink) latest() *media.Playlist {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.playlists) == 0 {
		return nil
	}
	return sink.playlists[len(sink.playlists)-1]
}

func (sink *playlistSink) count() int {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return len(sink.playlists)
}

func TestWatcherPublishesDebouncedPlaylist(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg")

	sink := &playlistSink{}
	watcher := NewWatcher(context.Background(), dir, "Lobby", sink.add, WatcherOptions{Debounce: 50 * time.Millisecond})
	initial, err := watcher.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, initial.Len())
	assert.Equal(t, "Lobby", initial.Title())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// fsnotify needs a moment to register the directory.
	require.Eventually(t, func() bool {
		touch(t, dir, "b.jpg", "c.mp4")
		return sink.count() > 0
	}, 5*time.Second, 100*time.Millisecond)

	require.Eventually(t, func() bool {
		latest := sink.latest()
		return latest != nil && latest.Len() == 3
	}, 5*time.Second, 20*time.Millisecond)
	latest := sink.latest()
	assert.Equal(t, "Lobby", latest.Title())
	assert.NotSame(t, initial, latest)
}

func TestWatcherIgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg")

	sink := &playlistSink{}
	watcher := NewWatcher(context.Background(), dir, "", sink.add, WatcherOptions{Debounce: 20 * time.Millisecond})
	_, err := watcher.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	touch(t, dir, "notes.txt")
	time.Sleep(200 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Zero(t, sink.count())
}

func TestWatcherRunFailsForMissingDir(t *testing.T) {
	watcher := NewWatcher(context.Background(), filepath.Join(t.TempDir(), "absent"), "", nil, WatcherOptions{})
	assert.Error(t, watcher.Run(context.Background()))
}
