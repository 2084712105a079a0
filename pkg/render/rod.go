package render

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Chrome is the rod-backed Engine. Each Open launches a fresh browser so
// sessions never share state; Close tears the whole browser down.
type Chrome struct {
	cfg    Config
	logger *slog.Logger
}

// NewChrome returns an Engine that launches local Chrome instances.
func NewChrome(cfg Config, logger *slog.Logger) *Chrome {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chrome{cfg: cfg.withDefaults(), logger: logger}
}

// Open launches a browser, injects cookies, and navigates to pageURL.
// A load that never fires its load event is tolerated: client-rendered
// pages routinely keep loading forever, and callers wait on selectors.
func (c *Chrome) Open(ctx context.Context, pageURL string) (Session, error) {
	l := launcher.New().
		Headless(!c.cfg.Headful).
		Set("disable-blink-features", "AutomationControlled")

	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	teardown := func() {
		if err := browser.Close(); err != nil {
			c.logger.DebugContext(ctx, "browser close", "error", err)
		}
		l.Cleanup()
	}

	if len(c.cfg.Cookies) > 0 {
		if err := browser.SetCookies(cookieParams(c.cfg.CookieDomain, c.cfg.Cookies)); err != nil {
			teardown()
			return nil, fmt.Errorf("set cookies: %w", err)
		}
		c.logger.DebugContext(ctx, "session cookies injected", "count", len(c.cfg.Cookies), "domain", c.cfg.CookieDomain)
	}

	var page *rod.Page
	if c.cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		teardown()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if c.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: c.cfg.UserAgent}); err != nil {
			c.logger.WarnContext(ctx, "user agent override failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, c.cfg.NavTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		teardown()
		return nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		c.logger.DebugContext(ctx, "load event not observed, continuing", "url", pageURL, "error", err)
	}

	c.logger.InfoContext(ctx, "rendered session open", "url", pageURL, "stealth", c.cfg.Stealth)
	return &chromeSession{page: page, browser: browser, lnch: l, logger: c.logger}, nil
}

func cookieParams(domain string, cookies map[string]string) []*proto.NetworkCookieParam {
	domain = "." + strings.TrimPrefix(domain, ".")
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for name, value := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:   name,
			Value:  value,
			Domain: domain,
			Path:   "/",
		})
	}
	return params
}

type chromeSession struct {
	page    *rod.Page
	browser *rod.Browser
	lnch    *launcher.Launcher
	logger  *slog.Logger
}

func (s *chromeSession) Wait(ctx context.Context, css string, timeout time.Duration) bool {
	if _, err := s.page.Context(ctx).Timeout(timeout).Element(css); err != nil {
		s.logger.DebugContext(ctx, "element never appeared", "css", css, "timeout", timeout)
		return false
	}
	return true
}

func (s *chromeSession) Click(ctx context.Context, css, contains string, timeout time.Duration) bool {
	page := s.page.Context(ctx).Timeout(timeout)

	var el *rod.Element
	var err error
	if contains != "" {
		el, err = page.ElementR(css, "/"+regexp.QuoteMeta(contains)+"/i")
	} else {
		el, err = page.Element(css)
	}
	if err != nil {
		s.logger.DebugContext(ctx, "clickable element not found", "css", css, "contains", contains)
		return false
	}

	if err := el.ScrollIntoView(); err != nil {
		s.logger.DebugContext(ctx, "scroll into view failed", "css", css, "error", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		s.logger.DebugContext(ctx, "click failed", "css", css, "error", err)
		return false
	}
	return true
}

func (s *chromeSession) ScrollBottom(ctx context.Context) {
	if _, err := s.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		s.logger.DebugContext(ctx, "scroll failed", "error", err)
	}
}

func (s *chromeSession) Height(ctx context.Context) int {
	res, err := s.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		s.logger.DebugContext(ctx, "height read failed", "error", err)
		return 0
	}
	return res.Value.Int()
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("read rendered dom: %w", err)
	}
	return res.Value.Str(), nil
}

func (s *chromeSession) Close() {
	if err := s.page.Close(); err != nil {
		s.logger.Debug("page close", "error", err)
	}
	if err := s.browser.Close(); err != nil {
		s.logger.Debug("browser close", "error", err)
	}
	s.lnch.Cleanup()
}
