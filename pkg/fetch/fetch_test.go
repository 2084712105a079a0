package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/tokscope/tokscope/pkg/httpcache"
)

func testConfig() Config {
	return Config{
		CallsPerWindow: 1000,
		Window:         time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Millisecond,
		Timeout:        5 * time.Second,
	}
}

func noLimit() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 0)
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(testConfig(), WithLimiter(noLimit()))
	body, err := f.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Get() = %q, want %q", body, "ok")
	}
}

func TestGetHeaderMerge(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(testConfig(), WithLimiter(noLimit()))
	_, err := f.Get(context.Background(), srv.URL, map[string]string{
		"User-Agent": "analysis-client/9.9",
		"X-Custom":   "1",
	})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if ua := got.Get("User-Agent"); ua != "analysis-client/9.9" {
		t.Errorf("caller User-Agent override lost, got %q", ua)
	}
	if v := got.Get("X-Custom"); v != "1" {
		t.Errorf("caller header missing, got %q", v)
	}
	if v := got.Get("Accept-Language"); v != "en-US,en;q=0.9" {
		t.Errorf("default Accept-Language missing, got %q", v)
	}
	if v := got.Get("DNT"); v != "1" {
		t.Errorf("default DNT missing, got %q", v)
	}
	if v := got.Get("Referer"); v == "" {
		t.Error("default Referer missing")
	}
}

func TestGetRotatesUserAgent(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(testConfig(), WithLimiter(noLimit()))
	if _, err := f.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ua := got.Get("User-Agent"); !slices.Contains(userAgents, ua) {
		t.Errorf("User-Agent %q not from the pool", ua)
	}
}

func TestGetRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(testConfig(), WithLimiter(noLimit()))
	body, err := f.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Get() = %q, want %q", body, "ok")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server saw %d calls, want 3", n)
	}
}

func TestGetPermanentStatusNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(testConfig(), WithLimiter(noLimit()))
	_, err := f.Get(context.Background(), srv.URL, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Get() error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, http.StatusNotFound)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want 1", n)
	}
}

func TestGetExhaustedRetriesSurfaceStatus(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RetryAttempts = 2
	f := New(cfg, WithLimiter(noLimit()))
	_, err := f.Get(context.Background(), srv.URL, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Get() error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, http.StatusServiceUnavailable)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server saw %d calls, want 2", n)
	}
}

func TestGetNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	target := srv.URL
	srv.Close()

	cfg := testConfig()
	cfg.RetryAttempts = 2
	f := New(cfg, WithLimiter(noLimit()))
	_, err := f.Get(context.Background(), target, nil)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Get() error = %v, want *NetworkError", err)
	}
	if netErr.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", netErr.Attempts)
	}
	if netErr.Unwrap() == nil {
		t.Error("Unwrap() = nil, want wrapped transport error")
	}
}

func TestGetCachesResponses(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("cached"))
	}))
	defer srv.Close()

	cache, err := httpcache.NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath() error = %v", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	f := New(testConfig(), WithLimiter(noLimit()), WithCache(cache))
	ctx := context.Background()

	for range 2 {
		body, err := f.Get(ctx, srv.URL, nil)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(body) != "cached" {
			t.Errorf("Get() = %q, want %q", body, "cached")
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want 1 (second should hit cache)", n)
	}
}

func TestGetCachesErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cache, err := httpcache.NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath() error = %v", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	f := New(testConfig(), WithLimiter(noLimit()), WithCache(cache))
	ctx := context.Background()

	for range 2 {
		_, err := f.Get(ctx, srv.URL, nil)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("Get() error = %v, want *HTTPError", err)
		}
		if httpErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, http.StatusNotFound)
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want 1 (error should be cached)", n)
	}
}

func TestLimiterBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(testConfig(), WithLimiter(rate.NewLimiter(rate.Every(60*time.Millisecond), 1)))
	ctx := context.Background()

	start := time.Now()
	for range 2 {
		if _, err := f.Get(ctx, srv.URL, nil); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("two calls finished in %v, want the second blocked by the limiter", elapsed)
	}
}

func TestConfigDefaults(t *testing.T) {
	got := Config{}.withDefaults()
	want := DefaultConfig()
	if got != want {
		t.Errorf("Config{}.withDefaults() = %+v, want %+v", got, want)
	}
}
