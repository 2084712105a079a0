// Package render drives a real browser to load pages whose content only
// exists after client-side rendering. Extractors talk to the Engine and
// Session interfaces; the Chrome implementation in this package is the only
// code that touches the browser directly, so tests substitute fakes.
package render

import (
	"context"
	"time"
)

// Engine opens rendered sessions. One session corresponds to one browser
// lifetime: callers open a session per extraction and close it when done.
type Engine interface {
	Open(ctx context.Context, url string) (Session, error)
}

// Session is a live rendered page. Wait and Click report presence rather
// than failing: a selector that never appears is an expected outcome on a
// site that rotates markup, so both return false instead of an error.
// Only HTML returns an error, because losing the page is a session fault.
type Session interface {
	// Wait blocks until css matches an element or timeout passes.
	Wait(ctx context.Context, css string, timeout time.Duration) bool

	// Click locates css, optionally filtered to elements whose text
	// contains the given substring, and clicks the first match. It
	// returns false when nothing clickable appeared within timeout.
	Click(ctx context.Context, css, contains string, timeout time.Duration) bool

	// ScrollBottom scrolls the window to the bottom of the document.
	ScrollBottom(ctx context.Context)

	// Height reports the current document scroll height, or 0 when it
	// cannot be read. Callers compare successive values to detect that
	// scrolling has stopped loading new content.
	Height(ctx context.Context) int

	// HTML returns the rendered DOM serialized as HTML.
	HTML(ctx context.Context) (string, error)

	// Close releases the page and whatever browser backs it.
	Close()
}

// Config tunes how Chrome sessions are opened.
type Config struct {
	// Headful shows the browser window instead of running headless.
	Headful bool

	// Stealth applies anti-automation-detection patches to each page.
	Stealth bool

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string

	// CookieDomain is the domain cookies are registered under.
	CookieDomain string

	// Cookies are injected into the browser before navigation.
	Cookies map[string]string

	// NavTimeout bounds navigation plus initial page load.
	NavTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	return c
}
