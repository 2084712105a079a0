// Package fetch provides the rate-limited, retrying HTTP layer shared by
// every network-touching component.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/tokscope/tokscope/pkg/httpcache"
)

// maxBody caps how much of any response body is read.
const maxBody = 1024 * 1024 // 1MB limit

// globalLimiter is the process-wide request budget. Every Fetcher built
// without a private limiter shares it, so concurrent analyses contend
// for one budget instead of multiplying it.
var globalLimiter = rate.NewLimiter(rate.Every(6*time.Second), 10)

// SetBudget retunes the process-wide limiter to calls per window.
// Calls beyond the budget block until capacity frees.
func SetBudget(calls int, window time.Duration) {
	if calls <= 0 || window <= 0 {
		return
	}
	globalLimiter.SetLimit(rate.Every(window / time.Duration(calls)))
	globalLimiter.SetBurst(calls)
}

// Config tunes the fetch layer. Zero fields fall back to DefaultConfig values.
type Config struct {
	CallsPerWindow int           // request budget per window
	Window         time.Duration // window the budget refills over
	RetryAttempts  uint          // total attempts per request
	RetryDelay     time.Duration // fixed delay between attempts
	Timeout        time.Duration // per-attempt hard timeout
}

// DefaultConfig returns the standard budget: 10 calls per minute,
// 3 attempts 2 seconds apart, 10 second timeout.
func DefaultConfig() Config {
	return Config{
		CallsPerWindow: 10,
		Window:         time.Minute,
		RetryAttempts:  3,
		RetryDelay:     2 * time.Second,
		Timeout:        10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CallsPerWindow <= 0 {
		c.CallsPerWindow = def.CallsPerWindow
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = def.RetryAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// HTTPError represents a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// NetworkError represents a transport failure that survived the whole
// retry budget.
type NetworkError struct {
	Err      error
	URL      string
	Attempts uint
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Fetcher issues GET requests through the shared rate limiter with
// automatic retries and identifying-header rotation.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	cache   httpcache.Cacher
	logger  *slog.Logger
	cfg     Config
}

// Option adjusts a Fetcher.
type Option func(*Fetcher)

// WithLogger routes fetch diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithCache enables response caching.
func WithCache(cache httpcache.Cacher) Option {
	return func(f *Fetcher) { f.cache = cache }
}

// WithCookieJar installs jar on the underlying client, typically loaded
// via pkg/auth.
func WithCookieJar(jar http.CookieJar) Option {
	return func(f *Fetcher) { f.client.SetCookieJar(jar) }
}

// WithLimiter replaces the shared limiter with a private one.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithTransport replaces the underlying HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) { f.client.SetTransport(rt) }
}

// New builds a Fetcher. The budget in cfg retunes the process-wide
// limiter; the most recent call wins.
func New(cfg Config, opts ...Option) *Fetcher {
	cfg = cfg.withDefaults()
	SetBudget(cfg.CallsPerWindow, cfg.Window)

	f := &Fetcher{limiter: globalLimiter, cfg: cfg}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetDoNotParseResponse(true)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return f.limiter.Wait(req.Context())
	})
	f.client = client

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches rawURL through the shared budget. headers are merged over
// the rotated identifying set; caller values win. A nil headers map is
// fine.
func (f *Fetcher) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	if f.cache == nil {
		return f.do(ctx, rawURL, headers)
	}

	// Authenticated responses differ from anonymous ones; key them apart.
	cacheKey := rawURL
	if jar := f.client.GetClient().Jar; jar != nil {
		if u, err := url.Parse(rawURL); err == nil && len(jar.Cookies(u)) > 0 {
			cacheKey += "|auth"
		}
	}

	var wasFetched bool
	data, err := f.cache.GetSet(ctx, httpcache.URLToKey(cacheKey), func(ctx context.Context) ([]byte, error) {
		wasFetched = true
		cacheMisses.Add(1)
		if f.logger != nil {
			f.logger.InfoContext(ctx, "cache miss", "url", rawURL)
		}
		body, fetchErr := f.do(ctx, rawURL, headers)
		if fetchErr != nil {
			// Cache errors too, to avoid hammering the site.
			var httpErr *HTTPError
			if errors.As(fetchErr, &httpErr) {
				return fmt.Appendf(nil, "ERROR:%d", httpErr.StatusCode), nil
			}
			return fmt.Appendf(nil, "NETERR:%s", fetchErr.Error()), nil
		}
		return body, nil
	}, f.cache.TTL())
	if err != nil {
		return nil, err
	}

	if !wasFetched {
		cacheHits.Add(1)
		if f.logger != nil {
			f.logger.DebugContext(ctx, "cache hit", "url", rawURL)
		}
	}

	// Negative cache entries round-trip as tagged strings.
	s := string(data)
	if code, found := strings.CutPrefix(s, "ERROR:"); found {
		status, _ := strconv.Atoi(code) //nolint:errcheck // 0 is acceptable default
		return nil, &HTTPError{URL: rawURL, StatusCode: status}
	}
	if msg, found := strings.CutPrefix(s, "NETERR:"); found {
		return nil, fmt.Errorf("cached network error: %s", msg)
	}
	return data, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	merged := identifyingHeaders()
	for k, v := range headers {
		merged[k] = v
	}

	body, err := retry.DoWithData(
		func() ([]byte, error) {
			resp, err := f.client.R().
				SetContext(ctx).
				SetHeaders(merged).
				Get(rawURL)
			if err != nil {
				return nil, err
			}
			raw := resp.RawBody()
			defer raw.Close() //nolint:errcheck // intentional

			if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
				return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode()}
			}

			return io.ReadAll(io.LimitReader(raw, maxBody))
		},
		retry.Context(ctx),
		retry.Attempts(f.cfg.RetryAttempts),
		retry.Delay(f.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			if f.logger != nil {
				f.logger.DebugContext(ctx, "retrying request", "attempt", n+1, "url", rawURL, "error", err)
			}
		}),
	)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return nil, httpErr
		}
		return nil, &NetworkError{URL: rawURL, Attempts: f.cfg.RetryAttempts, Err: err}
	}
	return body, nil
}

// isRetryableError reports whether err is transient. HTTP 429 and the
// common 5xx statuses are retryable; other statuses are permanent.
// Everything else (timeouts, DNS failures, resets) is retryable.
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}

// Stats tracks cache hit/miss counts across the fetch layer.
type Stats struct {
	Hits   int64
	Misses int64
}

var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// CacheStats returns the current cache statistics.
func CacheStats() Stats {
	return Stats{Hits: cacheHits.Load(), Misses: cacheMisses.Load()}
}

// ResetStats zeroes the cache statistics.
func ResetStats() {
	cacheHits.Store(0)
	cacheMisses.Store(0)
}
