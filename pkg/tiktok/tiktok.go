// Package tiktok extracts public account data: profile details,
// follower and following lists, contact signals, and accounts that tag
// the target in posts. Profile data is fetched API-first with a
// rendered-page fallback; lists, contact mining, and tag search always
// go through a rendered browser session because that content only
// exists client-side.
package tiktok

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tokscope/tokscope/pkg/auth"
	"github.com/tokscope/tokscope/pkg/fetch"
	"github.com/tokscope/tokscope/pkg/httpcache"
	"github.com/tokscope/tokscope/pkg/render"
	"github.com/tokscope/tokscope/pkg/validate"
)

const baseURL = "https://www.tiktok.com"

func apiURL(handle string) string {
	return baseURL + "/api/user/detail/?uniqueId=" + url.QueryEscape(handle)
}

func profileURL(handle string) string {
	return baseURL + "/@" + url.PathEscape(handle)
}

func searchURL(handle string) string {
	return baseURL + "/search?q=" + url.QueryEscape("@"+handle)
}

func tagURL(handle string) string {
	return baseURL + "/tag/" + url.PathEscape(handle)
}

// Match returns true if the URL is a profile URL on the platform.
func Match(urlStr string) bool {
	return strings.Contains(strings.ToLower(urlStr), "tiktok.com/@")
}

var handleFromURL = regexp.MustCompile(`tiktok\.com/@([^/?]+)`)

// extractHandle pulls the account handle out of a profile URL, an
// @-prefixed handle, or a bare handle.
func extractHandle(s string) string {
	if strings.Contains(s, "/") {
		if m := handleFromURL.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
	}
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}

// Limits bounds what extraction accepts and how long it looks. The stat
// maxima clamp values rather than reject records; the scroll counts bound
// how much lazily-loaded content each extraction pulls in.
type Limits struct {
	MaxFollowers int64
	MaxFollowing int64
	MaxLikes     int64
	MaxVideos    int64

	// PlausibleFollowerCeiling flags keyword-classified follower counts
	// above it as misreads and zeroes them. Structured payload values
	// are trusted and only clamped to MaxFollowers.
	PlausibleFollowerCeiling int64

	PageReadyWait time.Duration // profile page readiness
	SearchWait    time.Duration // search and hashtag result readiness
	ClickWait     time.Duration // per-strategy wait for clickable controls

	ListScrolls    int // follower/following list loads
	CaptionScrolls int // video caption loads on the profile page
	SearchScrolls  int // search and hashtag result loads

	ScrollPause time.Duration // settle time after each scroll
}

// DefaultLimits returns the standard bounds. The following and video
// maxima reflect platform-side caps; the likes maximum is a sanity bound.
func DefaultLimits() Limits {
	return Limits{
		MaxFollowers:             1_000_000_000,
		MaxFollowing:             10_000,
		MaxLikes:                 10_000_000_000,
		MaxVideos:                10_000,
		PlausibleFollowerCeiling: 500_000_000,
		PageReadyWait:            10 * time.Second,
		SearchWait:               15 * time.Second,
		ClickWait:                3 * time.Second,
		ListScrolls:              5,
		CaptionScrolls:           3,
		SearchScrolls:            3,
		ScrollPause:              2 * time.Second,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxFollowers <= 0 {
		l.MaxFollowers = def.MaxFollowers
	}
	if l.MaxFollowing <= 0 {
		l.MaxFollowing = def.MaxFollowing
	}
	if l.MaxLikes <= 0 {
		l.MaxLikes = def.MaxLikes
	}
	if l.MaxVideos <= 0 {
		l.MaxVideos = def.MaxVideos
	}
	if l.PlausibleFollowerCeiling <= 0 {
		l.PlausibleFollowerCeiling = def.PlausibleFollowerCeiling
	}
	if l.PageReadyWait <= 0 {
		l.PageReadyWait = def.PageReadyWait
	}
	if l.SearchWait <= 0 {
		l.SearchWait = def.SearchWait
	}
	if l.ClickWait <= 0 {
		l.ClickWait = def.ClickWait
	}
	if l.ListScrolls <= 0 {
		l.ListScrolls = def.ListScrolls
	}
	if l.CaptionScrolls <= 0 {
		l.CaptionScrolls = def.CaptionScrolls
	}
	if l.SearchScrolls <= 0 {
		l.SearchScrolls = def.SearchScrolls
	}
	if l.ScrollPause <= 0 {
		l.ScrollPause = def.ScrollPause
	}
	return l
}

// Client handles account extraction.
type Client struct {
	fetcher *fetch.Fetcher
	engine  render.Engine
	val     validate.Validator
	limits  Limits
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cookies        map[string]string
	cache          httpcache.Cacher
	logger         *slog.Logger
	engine         render.Engine
	fetchCfg       fetch.Config
	limits         Limits
	browserCookies bool
	stealth        bool
}

// WithCookies sets explicit cookie values.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBrowserCookies enables reading cookies from browser stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserCookies = true }
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithLimits overrides the default extraction bounds. Zero fields keep
// their defaults.
func WithLimits(limits Limits) Option {
	return func(c *config) { c.limits = limits }
}

// WithFetchConfig tunes the direct-request layer. Zero fields keep
// their defaults.
func WithFetchConfig(fc fetch.Config) Option {
	return func(c *config) { c.fetchCfg = fc }
}

// WithEngine substitutes the rendering engine.
func WithEngine(engine render.Engine) Option {
	return func(c *config) { c.engine = engine }
}

// WithStealth applies anti-automation-detection patches to rendered pages.
func WithStealth() Option {
	return func(c *config) { c.stealth = true }
}

// New creates a client.
// Cookies are optional and will be used if provided via: WithCookies >
// environment variables > browser stores.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	var sources []auth.Source
	if len(cfg.cookies) > 0 {
		sources = append(sources, auth.NewStaticSource(cfg.cookies))
	}
	sources = append(sources, auth.EnvSource{})
	if cfg.browserCookies {
		sources = append(sources, auth.NewBrowserSource(cfg.logger))
	}

	cookies, err := auth.ChainSources(ctx, sources...)
	if err != nil {
		cfg.logger.Debug("cookie retrieval failed, continuing without auth", "error", err)
	}

	fetchOpts := []fetch.Option{fetch.WithLogger(cfg.logger)}
	if cfg.cache != nil {
		fetchOpts = append(fetchOpts, fetch.WithCache(cfg.cache))
	}
	if len(cookies) > 0 {
		jar, err := auth.NewCookieJar(auth.Domain, cookies)
		if err != nil {
			return nil, fmt.Errorf("cookie jar creation failed: %w", err)
		}
		fetchOpts = append(fetchOpts, fetch.WithCookieJar(jar))
		cfg.logger.InfoContext(ctx, "client created with cookies", "cookie_count", len(cookies))
	} else {
		cfg.logger.InfoContext(ctx, "client created without cookies")
	}

	engine := cfg.engine
	if engine == nil {
		engine = render.NewChrome(render.Config{
			Stealth:      cfg.stealth,
			UserAgent:    fetch.UserAgent(),
			CookieDomain: auth.Domain,
			Cookies:      cookies,
		}, cfg.logger)
	}

	return &Client{
		fetcher: fetch.New(cfg.fetchCfg, fetchOpts...),
		engine:  engine,
		val:     validate.New(cfg.logger),
		limits:  cfg.limits.withDefaults(),
		logger:  cfg.logger,
	}, nil
}

// sleep pauses for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
