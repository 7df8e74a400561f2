// Command instainfo investigates Instagram accounts and prints a JSON report.
//
// Usage:
//
//	instainfo johndoe
//	instainfo https://instagram.com/johndoe https://instagram.com/p/Cx9z/
//	instainfo -json -db postgres://localhost/instainfo johndoe
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/archive"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/auth"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/httpcache"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/investigate"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/metrics"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	debug := flag.Bool("debug", false, "enable debug logging")
	verbose := flag.Bool("v", false, "verbose logging (same as -debug)")
	exportJSON := flag.Bool("json", false, "also write each report to <user>_investigation_<timestamp>.json")
	noBrowser := flag.Bool("no-browser", false, "disable reading the Instagram session from browser stores")
	noCache := flag.Bool("no-cache", false, "disable HTTP caching")
	cacheTTL := flag.Duration("cache-ttl", 24*time.Hour, "cache time-to-live")
	redisAddr := flag.String("redis", os.Getenv("INSTAINFO_REDIS_ADDR"), "share the HTTP cache through Redis at this address")
	noLookup := flag.Bool("no-lookup", false, "skip the obfuscated contact lookup")
	dbURL := flag.String("db", os.Getenv("INSTAINFO_DATABASE_URL"), "archive reports in this Postgres database")
	history := flag.Int("history", 0, "with -db, print the last N archived investigations of each account")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout (0 for none)")
	concurrency := flag.Int("concurrency", 4, "maximum concurrent investigations")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: instainfo [options] <username|profile URL|post URL>...")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nSession cookies (optional, read from browsers by default):")
		for _, v := range auth.EnvVars() {
			fmt.Fprintf(os.Stderr, "  %s\n", v)
		}
		return 2
	}

	logLevel := slog.LevelInfo
	if *debug || *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	opts := []investigate.Option{
		investigate.WithLogger(logger),
		investigate.WithConcurrency(*concurrency),
	}
	if !*noBrowser {
		opts = append(opts, investigate.WithBrowserCookies())
	}
	if *noLookup {
		opts = append(opts, investigate.WithoutLookup())
	}

	if !*noCache {
		cacheOpt, closeCache := setupCache(ctx, logger, *redisAddr, *cacheTTL)
		defer closeCache()
		if cacheOpt != nil {
			opts = append(opts, cacheOpt)
		}
	}

	var store *archive.Store
	if *dbURL != "" {
		var err error
		store, err = archive.New(ctx, *dbURL)
		if err != nil {
			logger.Warn("failed to open archive, continuing without it", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, investigate.WithArchive(store))
		}
	}

	if *metricsAddr != "" {
		collector, err := metrics.New()
		if err != nil {
			logger.Warn("failed to initialize metrics", "error", err)
		} else {
			opts = append(opts, investigate.WithMetrics(collector))
			srv := serveMetrics(logger, *metricsAddr, collector)
			defer func() {
				if err := srv.Close(); err != nil {
					logger.Warn("failed to stop metrics server", "error", err)
				}
			}()
		}
	}

	outcomes := investigate.RunAll(ctx, flag.Args(), opts...)

	exit := 0
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %s\n", o.Input, describe(o))
			exit = 1
			continue
		}
		if err := o.Report.WriteJSON(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
			return 1
		}
		if *exportJSON {
			if err := writeFile(o.Report); err != nil {
				fmt.Fprintf(os.Stderr, "Export error: %v\n", err)
				exit = 1
				continue
			}
			logger.Info("report exported", "file", o.Report.Filename())
		}
		if store != nil && *history > 0 {
			if err := printHistory(ctx, store, o.Report.Username, *history); err != nil {
				logger.Warn("failed to read archive history", "username", o.Report.Username, "error", err)
			}
		}
	}

	stats := httpcache.CacheStats()
	logger.Debug("cache stats", "hits", stats.Hits, "misses", stats.Misses, "hit_rate", fmt.Sprintf("%.0f%%", stats.HitRate()))
	return exit
}

// printHistory writes the archived follower counts of username to stderr.
func printHistory(ctx context.Context, store *archive.Store, username string, limit int) error {
	entries, err := store.History(ctx, username, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "History for @%s:\n", username)
	for i, e := range entries {
		delta := ""
		if i+1 < len(entries) {
			delta = fmt.Sprintf(" (%+d)", e.Followers-entries[i+1].Followers)
		}
		fmt.Fprintf(os.Stderr, "  %s  %d followers%s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Followers, delta)
	}
	return nil
}

// setupCache returns the cache option and a cleanup func. Redis is preferred
// when configured; the disk cache is the fallback.
func setupCache(ctx context.Context, logger *slog.Logger, redisAddr string, ttl time.Duration) (investigate.Option, func()) {
	if redisAddr != "" {
		rc, err := httpcache.NewRedis(ctx, redisAddr, ttl)
		if err == nil {
			logger.Debug("Redis HTTP cache initialized", "addr", redisAddr, "ttl", ttl.String())
			return investigate.WithHTTPCache(rc), func() {
				if err := rc.Close(); err != nil {
					logger.Warn("failed to close Redis cache", "error", err)
				}
			}
		}
		logger.Warn("failed to connect to Redis, falling back to disk cache", "error", err)
	}

	dc, err := httpcache.New(ttl)
	if err != nil {
		logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		return nil, func() {}
	}
	logger.Debug("HTTP cache initialized", "ttl", ttl.String())
	return investigate.WithHTTPCache(dc), func() {
		if err := dc.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}
}

func serveMetrics(logger *slog.Logger, addr string, collector *metrics.Collector) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func describe(o investigate.Outcome) string {
	switch o.Reason {
	case "invalid_input":
		return "not a username, profile URL, or post URL"
	case "not_found":
		return "account not found"
	case "auth_required":
		return "Instagram requires a login; sign in with a browser or set " + strings.Join(auth.EnvVars(), "/")
	case "rate_limited":
		return "rate limited by Instagram, try again later"
	case "canceled":
		return "timed out"
	case "transport":
		return "network error: " + o.Err.Error()
	default:
		return o.Err.Error()
	}
}

func writeFile(r *report.Report) error {
	f, err := os.Create(r.Filename())
	if err != nil {
		return err
	}
	if err := r.WriteJSON(f); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return err
	}
	return f.Close()
}
