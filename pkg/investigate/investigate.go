// Package investigate runs a complete Instagram investigation: it resolves the
// target, fetches the profile and recent posts, runs the contact lookup and
// every analyzer, and assembles the report.
//
// Basic usage:
//
//	r, err := investigate.Run(ctx, "https://instagram.com/johndoe")
//	if err != nil {
//	    log.Fatal(investigate.Classify(err))
//	}
//	_ = r.WriteJSON(os.Stdout)
//
// Several targets can be investigated concurrently; a failure of one never
// affects the others:
//
//	for _, o := range investigate.RunAll(ctx, targets, investigate.WithConcurrency(2)) {
//	    fmt.Println(o.Input, o.Reason)
//	}
package investigate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/analysis"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/auth"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/httpcache"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/instagram"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/lookup"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/metrics"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/report"
)

// ErrInvalidInput is returned when the target does not name an account or post.
var ErrInvalidInput = errors.New("invalid input")

// Re-export provider errors.
var (
	ErrAuthRequired    = profile.ErrAuthRequired
	ErrProfileNotFound = profile.ErrProfileNotFound
	ErrRateLimited     = profile.ErrRateLimited
)

// Provider fetches profile data. *instagram.Client implements it.
type Provider interface {
	FetchProfile(ctx context.Context, handle string) (*profile.Profile, error)
	FetchPosts(ctx context.Context, handle string) ([]profile.Post, error)
	ResolveShortcode(ctx context.Context, shortcode string) (string, error)
}

// Lookuper resolves the masked contact data of a handle. *lookup.Client
// implements it.
type Lookuper interface {
	Lookup(ctx context.Context, handle string) lookup.Result
}

// Archiver persists finished reports. *archive.Store implements it.
type Archiver interface {
	Save(ctx context.Context, r *report.Report) error
}

// Option configures an investigation.
type Option func(*config)

//nolint:govet // fieldalignment: intentional layout for readability
type config struct {
	cache          httpcache.Cacher
	cookies        map[string]string
	logger         *slog.Logger
	provider       Provider
	lookup         Lookuper
	archive        Archiver
	metrics        *metrics.Collector
	now            func() time.Time
	concurrency    int
	browserCookies bool
	noLookup       bool
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithHTTPCache sets the HTTP cache for provider responses.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithCookies sets explicit Instagram session cookies.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBrowserCookies enables reading the session from browser cookie stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserCookies = true }
}

// WithProvider replaces the Instagram client.
func WithProvider(p Provider) Option {
	return func(c *config) { c.provider = p }
}

// WithLookup replaces the contact lookup client.
func WithLookup(l Lookuper) Option {
	return func(c *config) { c.lookup = l }
}

// WithoutLookup skips the contact lookup.
func WithoutLookup() Option {
	return func(c *config) { c.noLookup = true }
}

// WithArchive saves every successful report.
func WithArchive(a Archiver) Option {
	return func(c *config) { c.archive = a }
}

// WithMetrics records outcomes and durations.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *config) { c.metrics = m }
}

// WithConcurrency bounds the number of concurrent investigations in RunAll.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithClock sets the time source for report timestamps and activity ages.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:      slog.Default(),
		now:         time.Now,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Outcome is the result of one investigation in RunAll.
type Outcome struct {
	Report *report.Report
	Err    error
	Input  string
	Reason string // Classify(Err)
}

// Run investigates a single target: a handle, a profile URL, or a post URL.
func Run(ctx context.Context, input string, opts ...Option) (*report.Report, error) {
	cfg := newConfig(opts)
	if err := cfg.setup(ctx); err != nil {
		return nil, err
	}
	return cfg.run(ctx, input)
}

// RunAll investigates every input concurrently. Outcomes are returned in
// input order.
func RunAll(ctx context.Context, inputs []string, opts ...Option) []Outcome {
	outcomes := make([]Outcome, len(inputs))

	cfg := newConfig(opts)
	if err := cfg.setup(ctx); err != nil {
		for i, in := range inputs {
			outcomes[i] = Outcome{Input: in, Err: err, Reason: Classify(err)}
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(cfg.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			r, err := cfg.run(ctx, in)
			outcomes[i] = Outcome{Input: in, Report: r, Err: err, Reason: Classify(err)}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // each outcome carries its own error

	return outcomes
}

// setup builds the default provider and lookup client unless they were given.
func (cfg *config) setup(ctx context.Context) error {
	if cfg.provider == nil {
		sources := []auth.Source{auth.NewStaticSource(cfg.cookies), auth.EnvSource{}}
		if cfg.browserCookies {
			sources = append(sources, auth.NewBrowserSource(cfg.logger))
		}
		cookies, err := auth.Chain(ctx, sources...)
		if err != nil {
			return fmt.Errorf("read session cookies: %w", err)
		}

		opts := []instagram.Option{instagram.WithLogger(cfg.logger)}
		if cfg.cache != nil {
			opts = append(opts, instagram.WithHTTPCache(cfg.cache))
		}
		if len(cookies) > 0 {
			cfg.logger.InfoContext(ctx, "using Instagram session cookies")
			opts = append(opts, instagram.WithCookies(cookies))
		}
		client, err := instagram.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("create instagram client: %w", err)
		}
		cfg.provider = client
	}

	if cfg.lookup == nil && !cfg.noLookup {
		cfg.lookup = lookup.New(lookup.WithLogger(cfg.logger))
	}
	if cfg.noLookup {
		cfg.lookup = nil
	}
	return nil
}

func (cfg *config) run(ctx context.Context, input string) (*report.Report, error) {
	start := time.Now()
	r, err := cfg.investigate(ctx, input)
	cfg.metrics.ObserveInvestigation(Classify(err), time.Since(start))
	if err != nil {
		cfg.logger.WarnContext(ctx, "investigation failed", "input", input, "reason", Classify(err), "error", err)
	}
	return r, err
}

func (cfg *config) investigate(ctx context.Context, input string) (*report.Report, error) {
	ref := instagram.Classify(input)

	handle := ref.Handle
	if ref.Kind == instagram.RefPost {
		cfg.logger.InfoContext(ctx, "resolving post owner", "shortcode", ref.Shortcode)
		owner, err := cfg.provider.ResolveShortcode(ctx, ref.Shortcode)
		if err != nil {
			return nil, fmt.Errorf("resolve post %s: %w", ref.Shortcode, err)
		}
		handle = owner
	}
	if handle == "" {
		return nil, fmt.Errorf("%q: %w", input, ErrInvalidInput)
	}

	p, err := cfg.provider.FetchProfile(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", handle, err)
	}

	var posts []profile.Post
	var lr *lookup.Result
	g, gctx := errgroup.WithContext(ctx)

	if !p.IsPrivate && p.MediaCount > 0 {
		g.Go(func() error {
			var err error
			posts, err = cfg.provider.FetchPosts(gctx, p.Username)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// Analysis tolerates an empty post list.
				cfg.logger.WarnContext(gctx, "fetching posts failed", "username", p.Username, "error", err)
				posts = nil
			}
			return nil
		})
	}
	if cfg.lookup != nil {
		g.Go(func() error {
			res := cfg.lookup.Lookup(gctx, p.Username)
			cfg.metrics.ObserveLookup(lookupLabel(res), res.Attempts)
			if res.Err != nil {
				cfg.logger.WarnContext(gctx, "contact lookup failed", "username", p.Username, "kind", res.Err.Kind, "error", res.Err.Message)
			}
			lr = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := cfg.now()
	blocks := analysis.Analyze(p, posts, now)

	r, err := report.Assemble(p, blocks, lr, report.WithTimestamp(now))
	if err != nil {
		return nil, err
	}

	if cfg.archive != nil {
		if err := cfg.archive.Save(ctx, r); err != nil {
			cfg.logger.WarnContext(ctx, "archiving report failed", "username", r.Username, "error", err)
		}
	}

	cfg.logger.InfoContext(ctx, "investigation complete", "username", r.Username, "posts", len(posts), "id", r.ID)
	return r, nil
}

func lookupLabel(res lookup.Result) string {
	switch {
	case res.Err != nil:
		return string(res.Err.Kind)
	case res.Data == nil || res.Data.Empty():
		return "empty"
	default:
		return "ok"
	}
}

// Classify maps an investigation error to a short user-visible reason.
func Classify(err error) string {
	var te *profile.TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, profile.ErrProfileNotFound):
		return "not_found"
	case errors.Is(err, profile.ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, profile.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &te):
		return "transport"
	default:
		return "internal"
	}
}
