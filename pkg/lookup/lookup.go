// Package lookup queries Instagram's account-recovery lookup endpoint, which
// returns the obfuscated email and phone number attached to a handle.
package lookup

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	// DefaultEndpoint is the recovery lookup URL.
	DefaultEndpoint = "https://i.instagram.com/api/v1/users/lookup/"

	userAgent = "Instagram 101.0.0.15.120"
	appID     = "124024574287414"

	defaultAttempts   = 3
	defaultRetryDelay = 2 * time.Second
	requestTimeout    = 10 * time.Second
)

// Kind classifies a failed lookup.
type Kind string

// Failure kinds.
const (
	RateLimited Kind = "rate_limited"
	Other       Kind = "other"
)

// Failure describes why a lookup produced no data.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Message
}

// Contact is the masked contact data returned by the endpoint.
type Contact struct {
	ObfuscatedEmail string `json:"obfuscated_email,omitempty"`
	ObfuscatedPhone string `json:"obfuscated_phone,omitempty"`
}

// Empty reports whether the endpoint returned no contact hints.
func (c *Contact) Empty() bool {
	return c.ObfuscatedEmail == "" && c.ObfuscatedPhone == ""
}

// Result holds exactly one of Data or Err. An answer without contact data
// yields an empty Contact.
type Result struct {
	Data     *Contact `json:"data,omitempty"`
	Err      *Failure `json:"error,omitempty"`
	Attempts int      `json:"-"`
}

// MalformedBodyError is returned when the response body is not JSON. Instagram
// serves an HTML page instead of JSON when it throttles a client.
type MalformedBodyError struct {
	Err        error
	StatusCode int
}

func (e *MalformedBodyError) Error() string {
	return fmt.Sprintf("malformed response body (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *MalformedBodyError) Unwrap() error { return e.Err }

// Client performs lookups. It holds no per-handle state.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	retryDelay time.Duration
	attempts   uint
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithEndpoint overrides the lookup URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithAttempts sets the total number of attempts.
func WithAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// New creates a lookup client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     slog.Default(),
		endpoint:   DefaultEndpoint,
		retryDelay: defaultRetryDelay,
		attempts:   defaultAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup queries the endpoint for handle. Only malformed bodies are retried;
// once those are exhausted the result is RateLimited. Any other failure ends
// the lookup at once with kind Other. Lookup never returns a Go error: every
// outcome is described by the Result.
func (c *Client) Lookup(ctx context.Context, handle string) Result {
	var attempts int
	var last error

	contact, err := retry.DoWithData(
		func() (*Contact, error) {
			attempts++
			contact, err := c.do(ctx, handle)
			last = err
			return contact, err
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(isMalformed),
		retry.OnRetry(func(n uint, err error) {
			c.logger.DebugContext(ctx, "retrying lookup", "attempt", n+1, "username", handle, "error", err)
		}),
	)

	res := Result{Attempts: attempts}
	switch {
	case err == nil:
		res.Data = contact
	case ctx.Err() != nil:
		res.Err = &Failure{Kind: Other, Message: ctx.Err().Error()}
	case isMalformed(last):
		c.logger.WarnContext(ctx, "lookup exhausted retries", "username", handle, "attempts", attempts)
		res.Err = &Failure{Kind: RateLimited, Message: "rate limit"}
	default:
		res.Err = &Failure{Kind: Other, Message: last.Error()}
	}
	return res
}

func isMalformed(err error) bool {
	var mb *MalformedBodyError
	return errors.As(err, &mb)
}

// signedBody encodes the form body the endpoint expects.
func signedBody(handle string) (string, error) {
	payload, err := json.Marshal(struct {
		Q            string `json:"q"`
		SkipRecovery string `json:"skip_recovery"`
	}{Q: handle, SkipRecovery: "1"})
	if err != nil {
		return "", err
	}
	return "signed_body=SIGNATURE." + url.QueryEscape(string(payload)), nil
}

func (c *Client) do(ctx context.Context, handle string) (*Contact, error) {
	body, err := signedBody(handle)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-IG-App-ID", appID)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")

	c.logger.DebugContext(ctx, "lookup request", "username", handle, "url", c.endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // intentional

	data, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var payload response
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &MalformedBodyError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := payload.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}

	return &Contact{ObfuscatedEmail: payload.Email, ObfuscatedPhone: string(payload.Phone)}, nil
}

// readBody decodes the body by hand: setting Accept-Encoding ourselves turns
// off the transport's transparent decompression.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close() //nolint:errcheck // read-only
		r = gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close() //nolint:errcheck // read-only
		r = zr
	}
	return io.ReadAll(r)
}

type response struct {
	Message string      `json:"message"`
	Email   string      `json:"obfuscated_email"`
	Phone   flexibleStr `json:"obfuscated_phone"`
}

// flexibleStr accepts a JSON string or number.
type flexibleStr string

func (f *flexibleStr) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleStr(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleStr(n.String())
	return nil
}
