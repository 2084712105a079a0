package htmlutil

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// phonePattern matches international-style numbers with optional
	// space or dash separators: +966 50 123 4567, 050-123-4567.
	phonePattern = regexp.MustCompile(`\+?\d[\d\s-]{7,}\d`)

	// urlPattern matches absolute http(s) URLs embedded in running text.
	urlPattern = regexp.MustCompile(`https?://[\w.-]+\.[a-zA-Z]{2,}[\w./\-~?=%&#+:]*`)
)

// EmailAddresses extracts email addresses from page content.
// Filters out common placeholders like noreply@ and example@ and
// addresses whose top-level domain is not a recognized one.
func EmailAddresses(content string) []string {
	var emails []string
	seen := make(map[string]bool)

	for _, email := range emailPattern.FindAllString(content, -1) {
		email = strings.ToLower(email)

		if strings.HasPrefix(email, "noreply@") ||
			strings.HasPrefix(email, "no-reply@") ||
			strings.HasPrefix(email, "example@") ||
			strings.Contains(email, "@example.") ||
			strings.Contains(email, "@test.") ||
			strings.Contains(email, "@localhost") {
			continue
		}

		if !validEmailDomain(email) {
			continue
		}

		if !seen[email] {
			seen[email] = true
			emails = append(emails, email)
		}
	}

	return emails
}

// commonTLDs are top-level domains accepted in extracted email addresses.
// Page markup is full of token@version strings and asset names that match
// the email pattern; requiring a recognized TLD drops most of them.
var commonTLDs = map[string]bool{
	"com": true, "org": true, "net": true, "edu": true, "gov": true,
	"io": true, "co": true, "me": true, "info": true, "biz": true,
	"dev": true, "app": true, "ai": true, "tv": true, "cc": true,
	"email": true, "mail": true, "pro": true, "live": true,
	"sa": true, "ae": true, "eg": true, "kw": true, "qa": true,
	"bh": true, "om": true, "jo": true, "ma": true, "tn": true,
	"iq": true, "lb": true, "ye": true, "tr": true,
	"us": true, "uk": true, "ca": true, "de": true, "fr": true,
	"es": true, "it": true, "nl": true, "ru": true, "cn": true,
	"jp": true, "kr": true, "in": true, "pk": true, "id": true,
	"br": true, "au": true,
}

func validEmailDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	parts := strings.Split(email[at+1:], ".")
	if len(parts) < 2 {
		return false
	}
	return commonTLDs[parts[len(parts)-1]]
}

// PhoneNumbers extracts phone numbers from page content. Candidates are
// normalized by stripping spaces and dashes; anything outside 7 to 15
// digits is discarded. Returned values are in normalized form.
func PhoneNumbers(content string) []string {
	var phones []string
	seen := make(map[string]bool)

	for _, match := range phonePattern.FindAllString(content, -1) {
		normalized := normalizePhone(match)

		digits := countDigits(normalized)
		if digits < 7 || digits > 15 {
			continue
		}

		if !seen[normalized] {
			seen[normalized] = true
			phones = append(phones, normalized)
		}
	}

	return phones
}

// normalizePhone keeps only digits and a leading plus sign.
func normalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range phone {
		if (r == '+' && i == 0) || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func countDigits(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

// Links extracts absolute http(s) URLs from page content, in order of
// first appearance. Duplicates are collapsed by NormalizeURL, so two
// spellings of the same page yield one entry.
func Links(content string) []string {
	var links []string
	seen := make(map[string]bool)

	for _, u := range urlPattern.FindAllString(content, -1) {
		u = cleanURL(u)
		if u == "" {
			continue
		}
		key := NormalizeURL(u)
		if !seen[key] {
			seen[key] = true
			links = append(links, u)
		}
	}

	return links
}

// cleanURL trims punctuation the URL pattern can pick up from
// surrounding prose, like the period ending a sentence.
func cleanURL(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimRight(s, ".,:;?&=#+%")
}

// NormalizeURL reduces a URL to a deduplication key: lowercased scheme,
// host, and path with the www prefix, trailing slash, query, and fragment
// discarded. Unparseable input falls back to the lowercased raw string.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(strings.TrimSuffix(rawURL, "/"))
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	key := strings.ToLower(parsed.Scheme) + "://" + host + strings.ToLower(parsed.Path)
	return strings.TrimSuffix(key, "/")
}
