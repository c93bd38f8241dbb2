// Package cache keeps a generation-scoped copy of the slideshow's remote
// assets in SQLite so the show keeps running without a network.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"slidewake/internal/logging"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultGeneration names the cache generation of this release. Bumping it
// makes Activate discard everything stored by older releases.
const DefaultGeneration = "slidewake-v1"

// DefaultConcurrency bounds parallel fetches during Install.
const DefaultConcurrency = 4

// ErrNotCached is returned by Get when the current generation has no entry.
var ErrNotCached = errors.New("not cached")

// Entry is one stored response.
type Entry struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
	StoredAt    time.Time
}

// InstallReport summarizes an Install run.
type InstallReport struct {
	Requested int
	Stored    int
	Failed    int
}

// Options contains runtime options for Store.
type Options struct {
	Client      *http.Client
	Clock       clockwork.Clock
	Concurrency int
}

// Store is the cache of one generation.
type Store struct {
	db          *sql.DB
	generation  string
	client      *http.Client
	clock       clockwork.Clock
	concurrency int
	log         zerolog.Logger
}

// NewStore wraps an open cache database. Requests made by Install go through
// options.Client, never through the cache itself.
func NewStore(ctx context.Context, db *sql.DB, generation string, options Options) *Store {
	if generation == "" {
		generation = DefaultGeneration
	}
	if options.Client == nil {
		options.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	return &Store{
		db:          db,
		generation:  generation,
		client:      options.Client,
		clock:       options.Clock,
		concurrency: options.Concurrency,
		log:         logging.FromContext(ctx).With().Str("component", "cache").Str("generation", generation).Logger(),
	}
}

// Generation returns the generation this store reads and writes.
func (store *Store) Generation() string {
	return store.generation
}

// Get returns the stored response for url in the current generation.
func (store *Store) Get(ctx context.Context, url string) (*Entry, error) {
	row := store.db.QueryRowContext(ctx,
		`SELECT url, status, content_type, body, stored_at FROM entries WHERE generation = ? AND url = ?`,
		store.generation, url)

	var (
		entry    Entry
		storedAt int64
	)
	err := row.Scan(&entry.URL, &entry.Status, &entry.ContentType, &entry.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	entry.StoredAt = time.UnixMilli(storedAt)
	return &entry, nil
}

// Put stores entry in the current generation, replacing any previous copy.
func (store *Store) Put(ctx context.Context, entry Entry) error {
	if entry.StoredAt.IsZero() {
		entry.StoredAt = store.clock.Now()
	}
	if entry.Body == nil {
		entry.Body = []byte{}
	}
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO entries (generation, url, status, content_type, body, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (generation, url) DO UPDATE SET
		   status = excluded.status,
		   content_type = excluded.content_type,
		   body = excluded.body,
		   stored_at = excluded.stored_at`,
		store.generation, entry.URL, entry.Status, entry.ContentType, entry.Body, entry.StoredAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Install prefetches assets and media into the current generation. A failed
// URL is logged and counted but never aborts the others; only cancellation of
// ctx is returned as an error.
func (store *Store) Install(ctx context.Context, assets, media []string) (InstallReport, error) {
	urls := dedupe(append(append([]string{}, assets...), media...))
	report := InstallReport{Requested: len(urls)}

	var stored, failed atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(store.concurrency)
	for _, url := range urls {
		group.Go(func() error {
			if err := store.fetch(groupCtx, url); err != nil {
				failed.Add(1)
				store.log.Warn().Err(err).Str("url", url).Msg("prefetch failed")
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	_ = group.Wait()

	report.Stored = int(stored.Load())
	report.Failed = int(failed.Load())
	store.log.Info().
		Int("requested", report.Requested).
		Int("stored", report.Stored).
		Int("failed", report.Failed).
		Msg("cache install finished")

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("install cache: %w", err)
	}
	return report, nil
}

// Activate deletes every generation except the current one and returns how
// many entries were removed.
func (store *Store) Activate(ctx context.Context) (int64, error) {
	result, err := store.db.ExecContext(ctx, `DELETE FROM entries WHERE generation <> ?`, store.generation)
	if err != nil {
		return 0, fmt.Errorf("activate cache generation: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("activate cache generation: %w", err)
	}
	if removed > 0 {
		store.log.Info().Int64("removed", removed).Msg("old cache generations deleted")
	}
	return removed, nil
}

// Generations lists every generation present in the database.
func (store *Store) Generations(ctx context.Context) ([]string, error) {
	rows, err := store.db.QueryContext(ctx, `SELECT DISTINCT generation FROM entries ORDER BY generation`)
	if err != nil {
		return nil, fmt.Errorf("list cache generations: %w", err)
	}
	defer rows.Close()

	var generations []string
	for rows.Next() {
		var generation string
		if err := rows.Scan(&generation); err != nil {
			return nil, fmt.Errorf("list cache generations: %w", err)
		}
		generations = append(generations, generation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cache generations: %w", err)
	}
	return generations, nil
}

func (store *Store) fetch(ctx context.Context, url string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	response, err := store.client.Do(request)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("fetch: unexpected status %s", response.Status)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return store.Put(ctx, Entry{
		URL:         url,
		Status:      response.StatusCode,
		ContentType: response.Header.Get("Content-Type"),
		Body:        body,
	})
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
