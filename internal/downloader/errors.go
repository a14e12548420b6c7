package downloader

import "strings"

// Code is a semantic classification of a backend failure. The set is
// closed: every raw error from yt-dlp, helper scripts, or HTTP backends is
// mapped onto one of these before it leaves this package.
type Code string

const (
	CodePrivate           Code = "private"
	CodeNotFound          Code = "not_found"
	CodeLoginRequired     Code = "login_required"
	CodeRateLimited       Code = "rate_limited"
	CodeBlocked           Code = "blocked"
	CodeProxyFailed       Code = "proxy_failed"
	CodeTimeout           Code = "timeout"
	CodeUnsupportedURL    Code = "unsupported_url"
	CodeFormatUnavailable Code = "format_unavailable"
	CodeTooLarge          Code = "too_large"
	CodeRedditBlocked     Code = "reddit_blocked"
	CodeUnknown           Code = "unknown"
)

// MediaError carries a classified code plus the raw backend text for
// operator diagnostics. The raw text never reaches end users.
type MediaError struct {
	Code   Code
	Detail string
}

func (e *MediaError) Error() string {
	return string(e.Code) + ": " + e.Detail
}

func newMediaError(code Code, detail string) *MediaError {
	return &MediaError{Code: code, Detail: detail}
}

// NewTooLargeError reports a file that exceeded the size ceiling outside of
// a download, e.g. after transcoding.
func NewTooLargeError(detail string) *MediaError {
	return &MediaError{Code: CodeTooLarge, Detail: detail}
}

// classifyRule maps a predicate over raw backend error text to a code.
// Rules are evaluated in order, first match wins. Substring matching on
// vendor error strings is fragile by nature, so the fixtures in
// errors_test.go pin the phrases we depend on.
type classifyRule struct {
	match func(string) bool
	code  Code
}

func containsAny(subs ...string) func(string) bool {
	return func(text string) bool {
		for _, sub := range subs {
			if strings.Contains(text, sub) {
				return true
			}
		}

		return false
	}
}

var classifyRules = []classifyRule{
	{containsAny("file is larger than max-filesize", "max-filesize"), CodeTooLarge},
	{containsAny("private", "this video is private"), CodePrivate},
	{containsAny("login required", "requires authentication", "sign in to confirm", "use --cookies"), CodeLoginRequired},
	{containsAny("429", "too many requests", "rate-limit", "rate limit"), CodeRateLimited},
	{containsAny("unable to connect to proxy", "proxy connection", "tunnel connection failed", "socks"), CodeProxyFailed},
	{containsAny("403", "forbidden", "blocked"), CodeBlocked},
	{containsAny("404", "not found", "does not exist", "has been removed"), CodeNotFound},
	{containsAny("timed out", "timeout", "deadline exceeded"), CodeTimeout},
	{containsAny("unsupported url", "no suitable extractor"), CodeUnsupportedURL},
	{containsAny("requested format is not available", "no video formats found"), CodeFormatUnavailable},
}

// Classify maps raw backend error text onto the closed code set.
// Unrecognized text falls back to CodeUnknown.
func Classify(raw string) Code {
	text := strings.ToLower(raw)

	for _, rule := range classifyRules {
		if rule.match(text) {
			return rule.code
		}
	}

	return CodeUnknown
}

// userMessages maps each code to exactly one user-facing message.
var userMessages = map[Code]string{
	CodePrivate:           "This post is private, I can't reach it.",
	CodeNotFound:          "Looks like that content was deleted or never existed.",
	CodeLoginRequired:     "The platform wants a login for this one, sorry.",
	CodeRateLimited:       "The platform is rate-limiting me right now. Try again in a bit.",
	CodeBlocked:           "The platform refused to serve this content.",
	CodeProxyFailed:       "My route to the platform is down. Try again later.",
	CodeTimeout:           "The download took too long and was dropped. Try again.",
	CodeUnsupportedURL:    "I don't know how to download from that link.",
	CodeFormatUnavailable: "No downloadable format was available for this content.",
	CodeTooLarge:          "That file is over the size limit I can send to Telegram.",
	CodeRedditBlocked:     "Reddit blocked the download on every route I have.",
	CodeUnknown:           "Something went wrong while downloading. Try resending the link.",
}

// UserMessage returns the plain-language message for a code.
func UserMessage(code Code) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}

	return userMessages[CodeUnknown]
}
