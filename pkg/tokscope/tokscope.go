// Package tokscope runs a complete account analysis: profile record,
// follower and following lists, contact signals, and accounts tagging
// the target.
//
// Basic usage:
//
//	rep, err := tokscope.Analyze(ctx, "@somehandle")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rep.Profile.DisplayName, rep.Profile.FollowerCount)
//
// For authenticated analysis, supply a session cookie:
//
//	rep, err := tokscope.Analyze(ctx, "somehandle",
//	    tokscope.WithCookies(map[string]string{"sessionid": "..."}))
//
// No extraction failure short of an unusable handle aborts a run: each
// category degrades to empty results, and the profile record itself falls
// back to an error-carrying stub, so Analyze always yields one complete
// report per valid handle.
package tokscope

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tokscope/tokscope/pkg/fetch"
	"github.com/tokscope/tokscope/pkg/httpcache"
	"github.com/tokscope/tokscope/pkg/render"
	"github.com/tokscope/tokscope/pkg/report"
	"github.com/tokscope/tokscope/pkg/tiktok"
)

type (
	// Report re-exports report.Report for convenience.
	Report = report.Report
	// HTTPCache re-exports httpcache.Cache for convenience.
	HTTPCache = httpcache.Cache
)

// Re-export common errors.
var (
	ErrBadHandle = report.ErrBadHandle
	ErrNotFound  = report.ErrNotFound
)

// Scope selects which categories an analysis collects beyond the profile
// record, which is always collected.
type Scope struct {
	Followers bool
	Following bool
	Contacts  bool
	Tagged    bool
}

// FullScope enables every category.
func FullScope() Scope {
	return Scope{Followers: true, Following: true, Contacts: true, Tagged: true}
}

// Option configures an Analyze call.
type Option func(*config)

//nolint:govet // fieldalignment: intentional layout for readability
type config struct {
	cache          httpcache.Cacher
	cookies        map[string]string
	logger         *slog.Logger
	engine         render.Engine
	limits         tiktok.Limits
	fetchCfg       fetch.Config
	scope          Scope
	browserCookies bool
	stealth        bool
}

// WithCookies sets explicit cookie values for the authenticated session.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBrowserCookies enables reading cookies from browser stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserCookies = true }
}

// WithHTTPCache sets the HTTP cache for direct responses.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithScope narrows the analysis to selected categories.
func WithScope(scope Scope) Option {
	return func(c *config) { c.scope = scope }
}

// WithLimits overrides extraction bounds and scroll budgets.
func WithLimits(limits tiktok.Limits) Option {
	return func(c *config) { c.limits = limits }
}

// WithFetchConfig tunes the rate-limited request layer.
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

// accountClient is the extraction surface Analyze drives; *tiktok.Client
// implements it.
type accountClient interface {
	Profile(ctx context.Context, handle string) (report.Profile, error)
	Followers(ctx context.Context, handle string) ([]report.Relationship, error)
	Following(ctx context.Context, handle string) ([]report.Relationship, error)
	Contacts(ctx context.Context, handle, bio string) (report.Contacts, error)
	Tagged(ctx context.Context, handle string) ([]report.TaggedUser, error)
}

// Analyze runs a full analysis of handle, which may be a bare handle, an
// @-prefixed handle, or a profile URL. The only error is a handle that
// cannot be resolved at all; every other failure degrades to empty or
// fallback data inside the returned report.
func Analyze(ctx context.Context, handle string, opts ...Option) (*report.Report, error) {
	cfg := &config{logger: slog.Default(), scope: FullScope()}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := tiktok.New(ctx, cfg.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("client setup failed: %w", err)
	}
	return run(ctx, client, cfg.logger, cfg.scope, handle)
}

func (c *config) clientOptions() []tiktok.Option {
	opts := []tiktok.Option{tiktok.WithLogger(c.logger)}
	if len(c.cookies) > 0 {
		opts = append(opts, tiktok.WithCookies(c.cookies))
	}
	if c.browserCookies {
		opts = append(opts, tiktok.WithBrowserCookies())
	}
	if c.cache != nil {
		opts = append(opts, tiktok.WithHTTPCache(c.cache))
	}
	if c.engine != nil {
		opts = append(opts, tiktok.WithEngine(c.engine))
	}
	if c.stealth {
		opts = append(opts, tiktok.WithStealth())
	}
	if c.limits != (tiktok.Limits{}) {
		opts = append(opts, tiktok.WithLimits(c.limits))
	}
	if c.fetchCfg != (fetch.Config{}) {
		opts = append(opts, tiktok.WithFetchConfig(c.fetchCfg))
	}
	return opts
}

// run drives the stages. The profile stage gates everything: it yields
// the canonical handle and the bio the contact stage mines. Every later
// stage is independently guarded so one failure cannot starve the rest.
func run(ctx context.Context, client accountClient, logger *slog.Logger, scope Scope, handle string) (*report.Report, error) {
	logger.InfoContext(ctx, "analysis started", "handle", handle)

	prof, err := client.Profile(ctx, handle)
	if err != nil {
		return nil, err
	}

	rep := &report.Report{
		Profile:   prof,
		Followers: []report.Relationship{},
		Following: []report.Relationship{},
		Contacts:  emptyContacts(),
		Tagged:    []report.TaggedUser{},
	}
	canonical := prof.Handle

	if scope.Followers {
		followers, err := client.Followers(ctx, canonical)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "follower extraction failed", "handle", canonical, "error", err)
		case len(followers) == 0:
			logger.InfoContext(ctx, "follower list unavailable, profile carries the approximate count",
				"handle", canonical, "approx_followers", prof.FollowerCount)
		default:
			rep.Followers = followers
		}
	}

	if scope.Following {
		following, err := client.Following(ctx, canonical)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "following extraction failed", "handle", canonical, "error", err)
		case len(following) == 0:
			logger.InfoContext(ctx, "following list unavailable, profile carries the approximate count",
				"handle", canonical, "approx_following", prof.FollowingCount)
		default:
			rep.Following = following
		}
	}

	if scope.Contacts {
		contacts, err := client.Contacts(ctx, canonical, prof.Bio)
		if err != nil {
			logger.WarnContext(ctx, "contact extraction failed", "handle", canonical, "error", err)
		} else {
			rep.Contacts = contacts
		}
	}

	if scope.Tagged {
		tagged, err := client.Tagged(ctx, canonical)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "tagged-user search failed", "handle", canonical, "error", err)
		case tagged != nil:
			rep.Tagged = tagged
		}
	}

	logger.InfoContext(ctx, "analysis complete",
		"handle", canonical,
		"source", prof.Source,
		"followers", len(rep.Followers),
		"following", len(rep.Following),
		"emails", len(rep.Contacts.Emails),
		"tagged", len(rep.Tagged))
	return rep, nil
}

func emptyContacts() report.Contacts {
	return report.Contacts{
		Emails:      []string{},
		Phones:      []string{},
		SocialLinks: []string{},
		Websites:    []string{},
	}
}
