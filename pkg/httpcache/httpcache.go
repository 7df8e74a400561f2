// Package httpcache fetches HTTP resources through a shared response cache,
// with per-host pacing and retries for transient failures.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"
)

// UserAgent is the browser User-Agent sent with web requests.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

// DefaultMinInterval is the default pause between two requests to one host.
const DefaultMinInterval = 1100 * time.Millisecond

// Stats tracks cache hit/miss statistics.
type Stats struct {
	Hits   int64
	Misses int64
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

var hits, misses atomic.Int64

// CacheStats returns the process-wide cache statistics.
func CacheStats() Stats {
	return Stats{Hits: hits.Load(), Misses: misses.Load()}
}

// ResetStats resets the cache statistics.
func ResetStats() {
	hits.Store(0)
	misses.Store(0)
}

// Cacher is a get-or-fetch cache. Concurrent misses for one key should share
// a single fetch.
type Cacher interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
	TTL() time.Duration
}

// Cache is a Cacher backed by sfcache with optional disk persistence.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl time.Duration
}

// New creates a Cache persisted under the user cache dir (~/.cache/instainfo).
func New(ttl time.Duration) (*Cache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(cacheDir, "instainfo"))
}

// NewNull creates a Cache that keeps entries in memory only.
func NewNull(ttl time.Duration) *Cache {
	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte](), sfcache.TTL(ttl))
	if err != nil {
		panic("sfcache.NewTiered with null store: " + err.Error())
	}
	return &Cache{TieredCache: tc, ttl: ttl}
}

// NewWithPath creates a Cache persisted at cachePath.
func NewWithPath(ttl time.Duration, cachePath string) (*Cache, error) {
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	store, err := localfs.New[string, []byte]("instainfo", cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](store, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// HTTPError is a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Fetcher issues GET requests through an optional Cacher.
type Fetcher struct {
	client   *http.Client
	cache    Cacher
	logger   *slog.Logger
	validate func(body []byte) bool
	pacer    *hostPacer
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithCache routes requests through c. A nil Cacher disables caching.
func WithCache(c Cacher) FetcherOption {
	return func(f *Fetcher) { f.cache = c }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// WithValidator stores only bodies for which validate returns true. Rejected
// bodies are still returned to the caller.
func WithValidator(validate func(body []byte) bool) FetcherOption {
	return func(f *Fetcher) { f.validate = validate }
}

// WithMinInterval sets the pause between two requests to one host.
func WithMinInterval(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.pacer = &hostPacer{interval: d} }
}

// NewFetcher creates a Fetcher using client for network requests.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: client,
		logger: slog.Default(),
		pacer:  &hostPacer{interval: DefaultMinInterval},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// entry is the cached form of a response. Definitive failures such as 404 are
// cached too, so repeated investigations of a missing account stay offline.
type entry struct {
	Body   []byte `json:"body,omitempty"`
	Status int    `json:"status"`
}

// errUncacheable carries a body that was fetched but must not be stored.
type errUncacheable struct{ body []byte }

func (*errUncacheable) Error() string { return "response not cacheable" }

// Get performs req, serving it from the cache when possible. Requests carrying
// cookies are cached separately from anonymous ones.
func (f *Fetcher) Get(ctx context.Context, req *http.Request) ([]byte, error) {
	if f.cache == nil {
		misses.Add(1)
		return f.fetch(ctx, req)
	}

	key := req.URL.String()
	if req.Header.Get("Cookie") != "" {
		key += "|session"
	}
	sum := sha256.Sum256([]byte(key))

	fetched := false
	raw, err := f.cache.GetSet(ctx, hex.EncodeToString(sum[:]), func(ctx context.Context) ([]byte, error) {
		fetched = true
		misses.Add(1)
		f.logger.DebugContext(ctx, "cache miss", "url", req.URL.String())
		return f.fetchEntry(ctx, req)
	}, f.cache.TTL())
	if !fetched {
		hits.Add(1)
		f.logger.DebugContext(ctx, "cache hit", "url", req.URL.String())
	}

	var unc *errUncacheable
	if errors.As(err, &unc) {
		return unc.body, nil
	}
	if err != nil {
		return nil, err
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.Status != http.StatusOK {
		return nil, &HTTPError{URL: req.URL.String(), StatusCode: e.Status}
	}
	return e.Body, nil
}

// fetchEntry fetches req and encodes the outcome for the cache. Errors
// returned from here are never stored.
func (f *Fetcher) fetchEntry(ctx context.Context, req *http.Request) ([]byte, error) {
	body, err := f.fetch(ctx, req)

	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr) && cacheableStatus(httpErr.StatusCode):
		return json.Marshal(entry{Status: httpErr.StatusCode})
	case err != nil:
		return nil, err
	case f.validate != nil && !f.validate(body):
		f.logger.DebugContext(ctx, "response failed validation, not caching", "url", req.URL.String())
		return nil, &errUncacheable{body: body}
	}
	return json.Marshal(entry{Status: http.StatusOK, Body: body})
}

// cacheableStatus reports whether an error status is a stable answer rather
// than a transient condition. 401 is excluded: Instagram also sends it while
// throttling anonymous clients.
func cacheableStatus(code int) bool {
	switch code {
	case http.StatusNotFound, http.StatusGone, http.StatusForbidden:
		return true
	default:
		return false
	}
}

func (f *Fetcher) fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return retry.DoWithData(
		func() ([]byte, error) {
			if err := f.pacer.wait(ctx, req.URL.Host, f.logger); err != nil {
				return nil, err
			}

			resp, err := f.client.Do(req.WithContext(ctx))
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // read-only body

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
			}
			return io.ReadAll(resp.Body)
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(transient),
		retry.OnRetry(func(n uint, err error) {
			f.logger.DebugContext(ctx, "retrying request", "attempt", n+1, "url", req.URL.String(), "error", err)
		}),
	)
}

// transient reports whether err is worth one more attempt. Rate limits are
// not: backing off is the caller's decision.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// hostPacer keeps at least interval between requests to the same host.
type hostPacer struct {
	mu       sync.Mutex
	next     map[string]time.Time
	interval time.Duration
}

func (p *hostPacer) wait(ctx context.Context, host string, logger *slog.Logger) error {
	if p.interval <= 0 || host == "" {
		return nil
	}

	p.mu.Lock()
	if p.next == nil {
		p.next = make(map[string]time.Time)
	}
	now := time.Now()
	at := p.next[host]
	if at.Before(now) {
		at = now
	}
	p.next[host] = at.Add(p.interval)
	p.mu.Unlock()

	d := time.Until(at)
	if d <= 0 {
		return nil
	}
	logger.DebugContext(ctx, "pacing request", "host", host, "wait", d)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
