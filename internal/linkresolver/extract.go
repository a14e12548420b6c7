// Package linkresolver turns raw message text into a primary URL, an
// unwrapped URL, and a normalized cache key. Cosmetically different links
// to the same resource must collapse to one key or the request cache never
// hits.
package linkresolver

import (
	"net/url"
	"strings"
)

// trailing punctuation commonly glued to pasted links.
const trailingPunct = ".,;:!?)]}>'\"„“”»"

// ExtractURL returns the first well-formed http(s) URL in text with
// trailing punctuation stripped, or "" when the text carries no URL. The
// bot stays silent for plain conversation, so "no URL" must be
// distinguishable from a URL.
func ExtractURL(text string) string {
	for _, field := range strings.Fields(text) {
		candidate := strings.TrimRight(field, trailingPunct)

		if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
			continue
		}

		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}

		return candidate
	}

	return ""
}
