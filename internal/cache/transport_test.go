package cache

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, client *http.Client, url string, header http.Header) (*http.Response, []byte) {
	t.Helper()
	request, err := http.NewRequestWithContext(testCtx(), http.MethodGet, url, nil)
	require.NoError(t, err)
	for key, values := range header {
		request.Header[key] = values
	}
	response, err := client.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response, body
}

func TestTransportServesInstalledEntries(t *testing.T) {
	server := newMediaServer(t)
	store, _ := openTestStore(t, "gen-a")
	_, err := store.Install(testCtx(), nil, []string{server.URL + "/a.jpg"})
	require.NoError(t, err)
	before := server.hits.Load()

	client := &http.Client{Transport: NewTransport(store)}
	response, body := get(t, client, server.URL+"/a.jpg", nil)

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "hit", response.Header.Get(CacheHeader))
	assert.Equal(t, "image/jpeg", response.Header.Get("Content-Type"))
	assert.Equal(t, []byte("jpeg-bytes"), body)
	assert.Equal(t, before, server.hits.Load())
}

func TestTransportBypassesRangeRequests(t *testing.T) {
	server := newMediaServer(t)
	store, _ := openTestStore(t, "gen-a")
	_, err := store.Install(testCtx(), nil, []string{server.URL + "/video.mp4"})
	require.NoError(t, err)
	before := server.hits.Load()

	client := &http.Client{Transport: NewTransport(store)}
	response, body := get(t, client, server.URL+"/video.mp4", http.Header{"Range": {"bytes=0-3"}})

	assert.Equal(t, http.StatusPartialContent, response.StatusCode)
	assert.Empty(t, response.Header.Get(CacheHeader))
	assert.Equal(t, []byte("mp4-"), body)
	assert.Equal(t, before+1, server.hits.Load())

	entry, err := store.Get(testCtx(), server.URL+"/video.mp4")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4-full"), entry.Body)
}

func TestTransportMissGoesToNetworkWithoutWriteBack(t *testing.T) {
	server := newMediaServer(t)
	store, _ := openTestStore(t, "gen-a")

	client := &http.Client{Transport: NewTransport(store)}
	response, body := get(t, client, server.URL+"/a.jpg", nil)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Empty(t, response.Header.Get(CacheHeader))
	assert.Equal(t, []byte("jpeg-bytes"), body)

	_, err := store.Get(testCtx(), server.URL+"/a.jpg")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestTransportWithoutStorePassesThrough(t *testing.T) {
	server := newMediaServer(t)
	client := &http.Client{Transport: &Transport{}}
	response, _ := get(t, client, server.URL+"/a.jpg", nil)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, int32(1), server.hits.Load())
}
