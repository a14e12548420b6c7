package linkresolver

import "testing"

func TestNormalize_TrackingParams(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "utm params dropped",
			a:    "https://www.youtube.com/watch?v=abc&utm_source=tg&utm_medium=share",
			b:    "https://youtube.com/watch?v=abc",
		},
		{
			name: "si param dropped",
			a:    "https://youtu.be/abc?si=XyZ123",
			b:    "https://youtu.be/abc",
		},
		{
			name: "www prefix stripped",
			a:    "https://www.tiktok.com/@user/video/123",
			b:    "https://tiktok.com/@user/video/123",
		},
		{
			name: "trailing slash stripped",
			a:    "https://reddit.com/r/videos/comments/abc/",
			b:    "https://reddit.com/r/videos/comments/abc",
		},
		{
			name: "instagram share id dropped",
			a:    "https://www.instagram.com/reel/Cxyz/?igsh=MzRl",
			b:    "https://instagram.com/reel/Cxyz",
		},
		{
			name: "youtube keeps only v",
			a:    "https://www.youtube.com/watch?v=abc&list=PL123&index=4&feature=share",
			b:    "https://youtube.com/watch?v=abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, want := Normalize(tt.a), Normalize(tt.b); got != want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.a, got, want)
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	a := "https://example.com/page?b=2&a=1"
	b := "https://example.com/page?a=1&b=2"

	if Normalize(a) != Normalize(b) {
		t.Errorf("param order changed key: %q vs %q", Normalize(a), Normalize(b))
	}
}

func TestNormalize_MalformedInputFallsBack(t *testing.T) {
	raw := "not a url at all"

	if got := Normalize(raw); got != raw {
		t.Errorf("Normalize(%q) = %q, want raw input back", raw, got)
	}
}

func TestNormalize_RootPathKept(t *testing.T) {
	if got := Normalize("https://www.example.com/"); got != "https://example.com/" {
		t.Errorf("Normalize root = %q, want %q", got, "https://example.com/")
	}
}

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain url", "https://youtube.com/watch?v=abc", "https://youtube.com/watch?v=abc"},
		{"url with prefix text", "look at this https://youtu.be/abc", "https://youtu.be/abc"},
		{"trailing punctuation", "https://youtu.be/abc!", "https://youtu.be/abc"},
		{"trailing paren", "(https://youtu.be/abc)", "https://youtu.be/abc"},
		{"plain conversation yields nothing", "hello there", ""},
		{"bare domain without scheme yields nothing", "youtube.com/watch?v=abc", ""},
		{"first of two urls", "https://a.com/x https://b.com/y", "https://a.com/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractURL(tt.text); got != tt.want {
				t.Errorf("ExtractURL(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "facebook wrapper",
			url:  "https://l.facebook.com/l.php?u=https%3A%2F%2Fyoutube.com%2Fwatch%3Fv%3Dabc",
			want: "https://youtube.com/watch?v=abc",
		},
		{
			name: "duckduckgo wrapper",
			url:  "https://duckduckgo.com/l/?uddg=https%3A%2F%2Freddit.com%2Fr%2Fx",
			want: "https://reddit.com/r/x",
		},
		{
			name: "non wrapper host untouched",
			url:  "https://youtube.com/watch?v=abc&u=https%3A%2F%2Fevil.com",
			want: "https://youtube.com/watch?v=abc&u=https%3A%2F%2Fevil.com",
		},
		{
			name: "non http target abandoned",
			url:  "https://l.facebook.com/l.php?u=javascript%3Aalert(1)",
			want: "https://l.facebook.com/l.php?u=javascript%3Aalert(1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unwrap(tt.url); got != tt.want {
				t.Errorf("Unwrap(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestDetectService(t *testing.T) {
	tests := []struct {
		url  string
		want Service
	}{
		{"https://youtube.com/watch?v=abc", ServiceYouTube},
		{"https://youtu.be/abc", ServiceYouTube},
		{"https://music.youtube.com/watch?v=abc", ServiceYTMusic},
		{"https://www.instagram.com/reel/Cxyz/", ServiceInstagram},
		{"https://www.reddit.com/r/videos/comments/abc/", ServiceReddit},
		{"https://redd.it/abc", ServiceReddit},
		{"https://www.tiktok.com/@user/video/123", ServiceTikTok},
		{"https://pin.it/abc", ServicePinterest},
		{"https://music.yandex.ru/album/1/track/2", ServiceYandexMusic},
		{"https://open.spotify.com/track/abc", ServiceSpotify},
		{"https://example.com/video", ServiceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := DetectService(tt.url); got != tt.want {
				t.Errorf("DetectService(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsAudioService(t *testing.T) {
	for _, s := range []Service{ServiceYandexMusic, ServiceSpotify, ServiceYTMusic} {
		if !IsAudioService(s) {
			t.Errorf("IsAudioService(%q) = false, want true", s)
		}
	}

	if IsAudioService(ServiceYouTube) {
		t.Error("IsAudioService(YouTube) = true, want false")
	}
}
