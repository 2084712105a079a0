package tiktok

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/tokscope/tokscope/pkg/fetch"
	"github.com/tokscope/tokscope/pkg/render"
)

// fakeSession is a scripted render.Session. Fields script what each call
// observes; counters record what extraction did to the page.
type fakeSession struct {
	html      string // served by HTML before any scroll
	htmlAfter string // served by HTML once scrolled, when set
	htmlErr   error
	ready     bool                  // blanket Wait answer
	waitFn    func(css string) bool // overrides ready when set
	clickable map[string]bool       // "css|contains" entries that accept a click
	heights   []int                 // successive Height readings, last repeats

	scrolls  int
	clicks   []string
	closed   bool
	heightAt int
}

func (s *fakeSession) Wait(_ context.Context, css string, _ time.Duration) bool {
	if s.waitFn != nil {
		return s.waitFn(css)
	}
	return s.ready
}

func (s *fakeSession) Click(_ context.Context, css, contains string, _ time.Duration) bool {
	key := css + "|" + contains
	s.clicks = append(s.clicks, key)
	return s.clickable[key]
}

func (s *fakeSession) ScrollBottom(_ context.Context) { s.scrolls++ }

func (s *fakeSession) Height(_ context.Context) int {
	if len(s.heights) == 0 {
		return 0
	}
	if s.heightAt >= len(s.heights) {
		return s.heights[len(s.heights)-1]
	}
	h := s.heights[s.heightAt]
	s.heightAt++
	return h
}

func (s *fakeSession) HTML(_ context.Context) (string, error) {
	if s.htmlErr != nil {
		return "", s.htmlErr
	}
	if s.scrolls > 0 && s.htmlAfter != "" {
		return s.htmlAfter, nil
	}
	return s.html, nil
}

func (s *fakeSession) Close() { s.closed = true }

// fakeEngine serves scripted sessions keyed by page URL. URLs with no
// script get a blank session whose waits all time out.
type fakeEngine struct {
	mu      sync.Mutex
	pages   map[string]*fakeSession
	openErr error
	opened  []string
}

func (e *fakeEngine) Open(_ context.Context, pageURL string) (render.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened = append(e.opened, pageURL)
	if e.openErr != nil {
		return nil, e.openErr
	}
	if s, ok := e.pages[pageURL]; ok {
		return s, nil
	}
	return &fakeSession{}, nil
}

func (e *fakeEngine) openedURLs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.opened...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastLimits shrinks every wait so tests spend no real time idling.
func fastLimits() Limits {
	l := DefaultLimits()
	l.PageReadyWait = 50 * time.Millisecond
	l.SearchWait = 50 * time.Millisecond
	l.ClickWait = 10 * time.Millisecond
	l.ScrollPause = time.Millisecond
	return l
}

// rewriteTransport redirects every request to the test server so no test
// touches the real site.
type rewriteTransport struct {
	serverURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = strings.TrimPrefix(t.serverURL, "http://")
	return http.DefaultTransport.RoundTrip(req)
}

// testClient builds a Client on the fake engine. When serverURL is set,
// direct requests are rewritten to it; tests that never fetch pass "".
func testClient(t *testing.T, engine render.Engine, serverURL string) *Client {
	t.Helper()
	t.Setenv("TIKTOK_SESSIONID", "")

	c, err := New(context.Background(),
		WithEngine(engine),
		WithLogger(discardLogger()),
		WithLimits(fastLimits()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cfg := fetch.Config{
		CallsPerWindow: 1000,
		Window:         time.Second,
		RetryAttempts:  1,
		RetryDelay:     time.Millisecond,
		Timeout:        5 * time.Second,
	}
	opts := []fetch.Option{
		fetch.WithLogger(discardLogger()),
		fetch.WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	}
	if serverURL != "" {
		opts = append(opts, fetch.WithTransport(&rewriteTransport{serverURL: serverURL}))
	}
	c.fetcher = fetch.New(cfg, opts...)
	return c
}
