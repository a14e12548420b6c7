package downloader

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Code
	}{
		{"private video", "ERROR: [youtube] abc: Private video. Sign in if you have been granted access", CodePrivate},
		{"login required", "ERROR: [instagram] login required to access this content", CodeLoginRequired},
		{"bot check", "ERROR: [youtube] Sign in to confirm you're not a bot", CodeLoginRequired},
		{"http 404", "ERROR: unable to download video data: HTTP Error 404: Not Found", CodeNotFound},
		{"removed content", "ERROR: [reddit] this post has been removed", CodeNotFound},
		{"http 429", "ERROR: unable to download webpage: HTTP Error 429: Too Many Requests", CodeRateLimited},
		{"http 403", "ERROR: unable to download video data: HTTP Error 403: Forbidden", CodeBlocked},
		{"proxy down", "ERROR: Unable to connect to proxy 10.0.0.1:1080", CodeProxyFailed},
		{"socks failure", "ERROR: SOCKS connection failed", CodeProxyFailed},
		{"timeout", "ERROR: The read operation timed out", CodeTimeout},
		{"context deadline", "context deadline exceeded", CodeTimeout},
		{"unsupported url", "ERROR: Unsupported URL: https://example.com/x", CodeUnsupportedURL},
		{"format unavailable", "ERROR: Requested format is not available", CodeFormatUnavailable},
		{"oversize abort", "ERROR: File is larger than max-filesize (52428800 bytes)", CodeTooLarge},
		{"garbage", "ERROR: something completely different happened", CodeUnknown},
		{"empty", "", CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.raw); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestUserMessage_EveryCodeMapped(t *testing.T) {
	codes := []Code{
		CodePrivate, CodeNotFound, CodeLoginRequired, CodeRateLimited,
		CodeBlocked, CodeProxyFailed, CodeTimeout, CodeUnsupportedURL,
		CodeFormatUnavailable, CodeTooLarge, CodeRedditBlocked, CodeUnknown,
	}

	seen := make(map[string]bool)

	for _, code := range codes {
		msg := UserMessage(code)
		if msg == "" {
			t.Errorf("UserMessage(%q) is empty", code)
		}

		seen[msg] = true
	}

	if len(seen) != len(codes) {
		t.Errorf("expected %d distinct user messages, got %d", len(codes), len(seen))
	}
}

func TestUserMessage_UnknownCodeFallsBack(t *testing.T) {
	if got := UserMessage(Code("nonexistent")); got != userMessages[CodeUnknown] {
		t.Errorf("unmapped code message = %q, want unknown fallback", got)
	}
}
