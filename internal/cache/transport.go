package cache

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
)

// CacheHeader marks responses served from the cache.
const CacheHeader = "X-Slidewake-Cache"

// Transport serves GET requests from a Store and falls through to Next on a
// miss. Range requests always go to the network so partial media responses
// never land in, or come out of, the cache. Network responses are not written
// back; only Install populates a generation.
type Transport struct {
	Store *Store
	Next  http.RoundTripper
}

// NewTransport returns a Transport over store, using the default transport on misses.
func NewTransport(store *Store) *Transport {
	return &Transport{Store: store, Next: http.DefaultTransport}
}

func (transport *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	next := transport.Next
	if next == nil {
		next = http.DefaultTransport
	}
	if transport.Store == nil || request.Method != http.MethodGet || request.Header.Get("Range") != "" {
		return next.RoundTrip(request)
	}

	entry, err := transport.Store.Get(request.Context(), request.URL.String())
	if err != nil {
		if !errors.Is(err, ErrNotCached) {
			transport.Store.log.Warn().Err(err).Str("url", request.URL.String()).Msg("cache lookup failed")
		}
		return next.RoundTrip(request)
	}

	header := make(http.Header)
	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}
	header.Set("Content-Length", strconv.Itoa(len(entry.Body)))
	header.Set(CacheHeader, "hit")

	return &http.Response{
		Status:        strconv.Itoa(entry.Status) + " " + http.StatusText(entry.Status),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       request,
	}, nil
}
