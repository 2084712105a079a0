// Package htmlutil provides pattern-matching helpers over raw page
// content: contact extraction, URL normalization for deduplication,
// and page-state markers.
package htmlutil

import "strings"

// IsNotFound reports whether page content carries one of the markers
// shown in place of a profile that does not exist or was removed.
func IsNotFound(content string) bool {
	lower := strings.ToLower(content)
	markers := []string{
		"couldn't find this account",
		"couldn’t find this account",
		"this account cannot be found",
		"page not available",
		"user not found",
		"404 not found",
		"page not found",
	}
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// IsEmptyResults reports whether search page content carries a
// no-results marker instead of a result feed.
func IsEmptyResults(content string) bool {
	lower := strings.ToLower(content)
	markers := []string{
		"no results found",
		"couldn't find any results",
		"couldn’t find any results",
	}
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
