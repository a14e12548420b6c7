package linkresolver

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are dropped from every host during normalization.
var trackingParams = map[string]bool{
	"si":         true,
	"igsh":       true,
	"igshid":     true,
	"feature":    true,
	"fbclid":     true,
	"gclid":      true,
	"yclid":      true,
	"ref":        true,
	"ref_src":    true,
	"ref_url":    true,
	"share_id":   true,
	"share_app":  true,
	"sender_web": true,
	"s":          true,
	"t":          true,
	"pp":         true,
	"embeds_referring_euri": true,
}

// identityParams lists the single query parameter that identifies the
// resource on hosts where the path alone is not enough. All other params
// are dropped for these hosts.
var identityParams = map[string]string{
	"youtube.com":       "v",
	"m.youtube.com":     "v",
	"music.youtube.com": "v",
}

// Normalize produces the canonical cache key for a URL: lowercase host with
// a leading "www." stripped, path without a trailing slash (except root),
// and a query string reduced to identifying parameters sorted for
// determinism. On any parse failure the raw string is returned unchanged;
// normalization must never fail a request.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	path := u.EscapedPath()
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	query := normalizeQuery(host, u.Query())

	normalized := u.Scheme + "://" + host + path
	if query != "" {
		normalized += "?" + query
	}

	return normalized
}

func normalizeQuery(host string, query url.Values) string {
	if keep, ok := identityParams[host]; ok {
		if v := query.Get(keep); v != "" {
			return keep + "=" + url.QueryEscape(v)
		}

		return ""
	}

	keys := make([]string, 0, len(query))

	for key := range query {
		if trackingParams[key] || strings.HasPrefix(key, "utm_") {
			continue
		}

		keys = append(keys, key)
	}

	sort.Strings(keys)

	var sb strings.Builder

	for _, key := range keys {
		for _, v := range query[key] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}

			sb.WriteString(url.QueryEscape(key))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}

	return sb.String()
}
