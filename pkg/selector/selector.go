// Package selector resolves ordered fallback chains of structural queries
// against rendered documents. The source site rotates markup and class
// names across releases and locales, so every extraction point is written
// as a Chain: an ordered list of candidate queries tried until one yields
// content. Adding a new markup variant is a data change, not a code change.
package selector

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Query is one selection strategy: a CSS selector plus an optional
// case-insensitive substring filter on element text. Name identifies the
// strategy in logs.
type Query struct {
	Name     string
	CSS      string
	Contains string
}

// Chain is an ordered list of queries tried until one matches.
type Chain []Query

// Root is any scope a query can run against: a whole document or a
// sub-selection being treated as one.
type Root interface {
	Find(string) *goquery.Selection
}

// Resolve tries each query in order and returns the first non-empty
// selection along with the query that produced it, logging which strategy
// succeeded. ok is false when every strategy came up empty; callers treat
// that as "not found", never as an error.
func Resolve(root Root, chain Chain, logger *slog.Logger) (sel *goquery.Selection, matched Query, ok bool) {
	for _, q := range chain {
		s := root.Find(q.CSS)
		if q.Contains != "" {
			needle := strings.ToLower(q.Contains)
			s = s.FilterFunction(func(_ int, node *goquery.Selection) bool {
				return strings.Contains(strings.ToLower(node.Text()), needle)
			})
		}
		if s.Length() > 0 {
			if logger != nil {
				logger.Debug("selector matched", "strategy", q.Name, "css", q.CSS, "matches", s.Length())
			}
			return s, q, true
		}
	}
	return nil, Query{}, false
}

// Text resolves chain and returns the trimmed text of the first match.
func Text(root Root, chain Chain, logger *slog.Logger) (string, bool) {
	s, _, ok := Resolve(root, chain, logger)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s.First().Text()), true
}

// Texts resolves chain and returns the trimmed text of every node matched
// by the winning strategy, skipping empty nodes. A nil result means no
// strategy matched.
func Texts(root Root, chain Chain, logger *slog.Logger) []string {
	s, _, ok := Resolve(root, chain, logger)
	if !ok {
		return nil
	}
	var out []string
	s.Each(func(_ int, node *goquery.Selection) {
		if t := strings.TrimSpace(node.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// Attr resolves chain and returns the named attribute of the first match.
func Attr(root Root, chain Chain, name string, logger *slog.Logger) (string, bool) {
	s, _, ok := Resolve(root, chain, logger)
	if !ok {
		return "", false
	}
	v, exists := s.First().Attr(name)
	if !exists {
		return "", false
	}
	return strings.TrimSpace(v), true
}
