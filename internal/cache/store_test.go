package cache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"slidewake/internal/logging"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context {
	logger := logging.New(logging.Config{Level: zerolog.DebugLevel, Format: "json", Output: io.Discard})
	return logging.WithContext(context.Background(), logger)
}

func openTestStore(t *testing.T, generation string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := OpenDB(testCtx(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(testCtx(), db, generation, Options{}), path
}

type mediaServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newMediaServer(t *testing.T) *mediaServer {
	t.Helper()
	server := &mediaServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		server.hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/video.mp4", func(w http.ResponseWriter, r *http.Request) {
		server.hits.Add(1)
		w.Header().Set("Content-Type", "video/mp4")
		if r.Header.Get("Range") != "" {
			w.Header().Set("Content-Range", "bytes 0-3/8")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte("mp4-"))
			return
		}
		_, _ = w.Write([]byte("mp4-full"))
	})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, r *http.Request) {
		server.hits.Add(1)
		http.NotFound(w, r)
	})
	server.Server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestOpenDBRejectsEmptyPath(t *testing.T) {
	_, err := OpenDB(testCtx(), "")
	assert.Error(t, err)
}

func TestOpenDBIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	db, err := OpenDB(testCtx(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDB(testCtx(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestPutAndGet(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := OpenDB(testCtx(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := NewStore(testCtx(), db, "", Options{Clock: clock})

	assert.Equal(t, DefaultGeneration, store.Generation())

	_, err = store.Get(testCtx(), "https://example.com/a.jpg")
	assert.ErrorIs(t, err, ErrNotCached)

	require.NoError(t, store.Put(testCtx(), Entry{
		URL:         "https://example.com/a.jpg",
		Status:      http.StatusOK,
		ContentType: "image/jpeg",
		Body:        []byte("one"),
	}))
	require.NoError(t, store.Put(testCtx(), Entry{
		URL:    "https://example.com/a.jpg",
		Status: http.StatusOK,
		Body:   []byte("two"),
	}))

	entry, err := store.Get(testCtx(), "https://example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), entry.Body)
	assert.Empty(t, entry.ContentType)
	assert.True(t, entry.StoredAt.Equal(clock.Now()))
}

func TestInstallToleratesFailures(t *testing.T) {
	server := newMediaServer(t)
	store, _ := openTestStore(t, "gen-a")

	assets := []string{server.URL + "/a.jpg", server.URL + "/missing.png"}
	media := []string{server.URL + "/video.mp4", server.URL + "/a.jpg", "http://127.0.0.1:1/unreachable.jpg"}

	report, err := store.Install(testCtx(), assets, media)
	require.NoError(t, err)
	assert.Equal(t, InstallReport{Requested: 4, Stored: 2, Failed: 2}, report)

	entry, err := store.Get(testCtx(), server.URL+"/video.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", entry.ContentType)
	assert.Equal(t, []byte("mp4-full"), entry.Body)

	_, err = store.Get(testCtx(), server.URL+"/missing.png")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestInstallReportsCancellation(t *testing.T) {
	server := newMediaServer(t)
	store, _ := openTestStore(t, "gen-a")

	ctx, cancel := context.WithCancel(testCtx())
	cancel()
	_, err := store.Install(ctx, []string{server.URL + "/a.jpg"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActivateDeletesOtherGenerations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := OpenDB(testCtx(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	old := NewStore(testCtx(), db, "slidewake-v0", Options{})
	current := NewStore(testCtx(), db, "slidewake-v1", Options{})
	require.NoError(t, old.Put(testCtx(), Entry{URL: "https://example.com/a.jpg", Status: 200, Body: []byte("old")}))
	require.NoError(t, old.Put(testCtx(), Entry{URL: "https://example.com/b.jpg", Status: 200, Body: []byte("old")}))
	require.NoError(t, current.Put(testCtx(), Entry{URL: "https://example.com/a.jpg", Status: 200, Body: []byte("new")}))

	generations, err := current.Generations(testCtx())
	require.NoError(t, err)
	assert.Equal(t, []string{"slidewake-v0", "slidewake-v1"}, generations)

	removed, err := current.Activate(testCtx())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	generations, err = current.Generations(testCtx())
	require.NoError(t, err)
	assert.Equal(t, []string{"slidewake-v1"}, generations)

	entry, err := current.Get(testCtx(), "https://example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), entry.Body)

	_, err = old.Get(testCtx(), "https://example.com/a.jpg")
	assert.ErrorIs(t, err, ErrNotCached)
}
