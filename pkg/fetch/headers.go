package fetch

import "math/rand/v2"

// userAgents is the identifying-header rotation pool. Entries are pinned
// rather than fetched so runs behave the same offline.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:146.0) Gecko/20100101 Firefox/146.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.5 Safari/605.1.15",
}

// UserAgent returns one entry from the rotation pool. Rendered sessions use
// it so browser traffic identifies the same way direct requests do.
func UserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// identifyingHeaders builds a fresh per-request header set: a User-Agent
// drawn from the pool plus browser-typical accompaniments.
func identifyingHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      userAgents[rand.IntN(len(userAgents))],
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://www.tiktok.com/",
		"DNT":             "1",
	}
}
