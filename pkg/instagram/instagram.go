// Package instagram fetches Instagram profiles and their most recent posts
// via the anonymous web API.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/httpcache"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
)

const (
	apiBase = "https://i.instagram.com"
	webBase = "https://www.instagram.com"

	// webAppID is required for anonymous access to the web API.
	webAppID = "936619743392459"
)

// Client handles Instagram requests.
type Client struct {
	fetcher *httpcache.Fetcher
	logger  *slog.Logger
	cookies map[string]string
	apiBase string
	webBase string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpcache.Cacher
	logger  *slog.Logger
	cookies map[string]string
	baseURL string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithCookies sends an existing browser session (sessionid, csrftoken, ...)
// with every request. Logged-in requests are less likely to hit the login wall.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBaseURL points both the API and web endpoints at baseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// New creates an Instagram client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	// Certificates are always verified: requests may carry the user's session.
	httpClient := &http.Client{Timeout: 10 * time.Second}

	c := &Client{
		fetcher: httpcache.NewFetcher(httpClient,
			httpcache.WithCache(cfg.cache),
			httpcache.WithLogger(cfg.logger),
			httpcache.WithValidator(looksLikeJSON),
		),
		logger:  cfg.logger,
		cookies: cfg.cookies,
		apiBase: apiBase,
		webBase: webBase,
	}
	if cfg.baseURL != "" {
		c.apiBase, c.webBase = cfg.baseURL, cfg.baseURL
	}
	return c, nil
}

// FetchProfile retrieves the profile snapshot for handle.
func (c *Client) FetchProfile(ctx context.Context, handle string) (*profile.Profile, error) {
	user, err := c.fetchUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	p := user.toProfile()
	c.logger.DebugContext(ctx, "parsed instagram profile",
		"username", p.Username,
		"name", p.FullName,
		"verified", p.IsVerified,
		"followers", p.Followers,
	)
	return p, nil
}

// FetchPosts returns the posts embedded in the profile response, newest first.
// Private accounts yield no posts.
func (c *Client) FetchPosts(ctx context.Context, handle string) ([]profile.Post, error) {
	user, err := c.fetchUser(ctx, handle)
	if err != nil {
		return nil, err
	}
	if user.IsPrivate {
		return nil, nil
	}

	edges := user.EdgeOwnerToTimelineMedia.Edges
	posts := make([]profile.Post, 0, len(edges))
	for _, e := range edges {
		posts = append(posts, e.Node.toPost())
	}
	return posts, nil
}

// ResolveShortcode returns the handle of the account that published a post.
func (c *Client) ResolveShortcode(ctx context.Context, shortcode string) (string, error) {
	c.logger.InfoContext(ctx, "resolving instagram post owner", "shortcode", shortcode)

	u := fmt.Sprintf("%s/p/%s/?__a=1&__d=dis", c.webBase, url.PathEscape(shortcode))
	body, err := c.get(ctx, u)
	if err != nil {
		return "", mapError(err, u)
	}

	var resp postResponse
	if err := decode(body, &resp); err != nil {
		return "", mapParseError(err, body, u)
	}

	switch {
	case len(resp.Items) > 0 && resp.Items[0].User.Username != "":
		return resp.Items[0].User.Username, nil
	case resp.GraphQL.ShortcodeMedia.Owner.Username != "":
		return resp.GraphQL.ShortcodeMedia.Owner.Username, nil
	default:
		return "", fmt.Errorf("post %s: %w", shortcode, profile.ErrProfileNotFound)
	}
}

func (c *Client) fetchUser(ctx context.Context, handle string) (*userInfo, error) {
	c.logger.InfoContext(ctx, "fetching instagram profile", "username", handle)

	u := fmt.Sprintf("%s/api/v1/users/web_profile_info/?username=%s", c.apiBase, url.QueryEscape(handle))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, mapError(err, u)
	}

	var resp apiResponse
	if err := decode(body, &resp); err != nil {
		return nil, mapParseError(err, body, u)
	}
	if resp.RequireLogin {
		return nil, fmt.Errorf("%s: %w", handle, profile.ErrAuthRequired)
	}
	if resp.Status == "fail" && strings.Contains(strings.ToLower(resp.Message), "wait") {
		return nil, fmt.Errorf("%s: %w", handle, profile.ErrRateLimited)
	}
	if resp.Data.User == nil || resp.Data.User.Username == "" {
		return nil, fmt.Errorf("%s: %w", handle, profile.ErrProfileNotFound)
	}
	return resp.Data.User, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-Ig-App-Id", webAppID)
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "application/json")
	if cookie := cookieHeader(c.cookies); cookie != "" {
		req.Header.Set("Cookie", cookie)
		if token := c.cookies["csrftoken"]; token != "" {
			req.Header.Set("X-CSRFToken", token)
		}
	}

	return c.fetcher.Get(ctx, req)
}

// looksLikeJSON keeps login walls and HTML error pages out of the cache.
func looksLikeJSON(body []byte) bool {
	body = bytes.TrimSpace(body)
	return len(body) > 0 && (body[0] == '{' || body[0] == '[')
}

func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+cookies[name])
	}
	return strings.Join(parts, "; ")
}

func decode(body []byte, v any) error {
	if !looksLikeJSON(body) {
		return errNotJSON
	}
	return json.Unmarshal(body, v)
}

var errNotJSON = errors.New("response is not JSON")

// mapError translates fetch failures into the profile error taxonomy.
func mapError(err error, u string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var httpErr *httpcache.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", u, profile.ErrProfileNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", u, profile.ErrAuthRequired)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", u, profile.ErrRateLimited)
		}
	}
	return &profile.TransportError{URL: u, Err: err}
}

// mapParseError treats an HTML body as the login wall Instagram serves to
// anonymous clients it no longer trusts.
func mapParseError(err error, body []byte, u string) error {
	if errors.Is(err, errNotJSON) && bytes.Contains(bytes.ToLower(body), []byte("<html")) {
		return fmt.Errorf("%s: login page returned: %w", u, profile.ErrAuthRequired)
	}
	return &profile.TransportError{URL: u, Err: fmt.Errorf("parse response: %w", err)}
}
