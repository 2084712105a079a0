package htmlutil

import (
	"regexp"
	"strings"
)

// redirectPatterns capture the destination of redirect shells served in
// place of real pages: a meta refresh tag in either attribute order,
// then the usual script-driven location assignments and calls. Bare
// "location" needs a preceding non-identifier so names like geolocation
// do not match.
var redirectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<meta[^>]+http-equiv\s*=\s*["']?refresh["']?[^>]+content\s*=\s*["']?\d+\s*;\s*url\s*=\s*["']?([^"'>\s]+)`),
	regexp.MustCompile(`(?i)<meta[^>]+content\s*=\s*["']?\d+\s*;\s*url\s*=\s*["']?([^"'>\s]+)[^>]+http-equiv\s*=\s*["']?refresh["']?`),
	regexp.MustCompile(`(?i)window\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)(?:^|[^\w.])location(?:\.href)?\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)document\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)window\.location\.(?:replace|assign)\s*\(\s*["']([^"']+)["']\s*\)`),
	regexp.MustCompile(`(?i)(?:^|[^\w.])location\.replace\s*\(\s*["']([^"']+)["']\s*\)`),
}

// ExtractRedirectURL returns the target a page immediately redirects to,
// or "" when the page does not redirect. A page that bounces the visitor
// somewhere else is not the page that was asked for, so callers treat a
// non-empty result as extraction failure. Fragment-only and self targets
// do not count as redirects.
func ExtractRedirectURL(content string) string {
	for _, p := range redirectPatterns {
		m := p.FindStringSubmatch(content)
		if len(m) < 2 {
			continue
		}
		target := strings.TrimRight(strings.TrimSpace(m[1]), `"'>`)
		if target == "" || strings.HasPrefix(target, "#") || target == "." || target == "./" {
			continue
		}
		return target
	}
	return ""
}
