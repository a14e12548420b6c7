package linkresolver

import (
	"net/url"
	"strings"
)

// maxUnwrapHops bounds chained redirect wrappers.
const maxUnwrapHops = 3

// redirectParams are checked in order on known wrapper hosts.
var redirectParams = []string{"url", "u", "uddg", "to", "q"}

// redirectHosts is the fixed list of known redirect/tracking wrappers.
var redirectHosts = map[string]bool{
	"l.facebook.com":  true,
	"lm.facebook.com": true,
	"l.instagram.com": true,
	"away.vk.com":     true,
	"duckduckgo.com":  true,
	"t.umblr.com":     true,
	"href.li":         true,
	"www.google.com":  true,
	"google.com":      true,
}

// Unwrap follows known redirect-wrapper query parameters up to a small hop
// limit. Any parse failure or non-http target abandons unwrapping and
// returns the last good URL.
func Unwrap(rawURL string) string {
	current := rawURL

	for hop := 0; hop < maxUnwrapHops; hop++ {
		next, ok := unwrapOnce(current)
		if !ok {
			return current
		}

		current = next
	}

	return current
}

func unwrapOnce(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if !redirectHosts[host] && !redirectHosts[strings.ToLower(u.Hostname())] {
		return "", false
	}

	query := u.Query()

	for _, param := range redirectParams {
		target := query.Get(param)
		if target == "" {
			continue
		}

		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			continue
		}

		if _, err := url.Parse(target); err != nil {
			return "", false
		}

		return target, true
	}

	return "", false
}
