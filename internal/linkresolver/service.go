package linkresolver

import "strings"

// Service is the coarse platform classification tag used for routing and
// for the service column in the request log.
type Service string

const (
	ServicePinterest   Service = "Pinterest"
	ServiceInstagram   Service = "Instagram"
	ServiceReddit      Service = "Reddit"
	ServicePornHub     Service = "PornHub"
	ServiceYouTube     Service = "YouTube"
	ServiceYTMusic     Service = "YouTubeMusic"
	ServiceTikTok      Service = "TikTok"
	ServiceYandexMusic Service = "YandexMusic"
	ServiceSpotify     Service = "Spotify"
	ServiceCached      Service = "Cached_Media"
	ServiceVoice       Service = "Voice"
	ServiceUnknown     Service = "Unknown"
)

// serviceRule pairs a substring predicate with a service tag. Evaluated in
// order, first match wins; this table is the single place "which platform
// is this" gets decided.
type serviceRule struct {
	substrings []string
	service    Service
}

var serviceRules = []serviceRule{
	{[]string{"pinterest.com", "pin.it"}, ServicePinterest},
	{[]string{"instagram.com"}, ServiceInstagram},
	{[]string{"reddit.com", "redd.it"}, ServiceReddit},
	{[]string{"pornhub.com"}, ServicePornHub},
	{[]string{"music.yandex"}, ServiceYandexMusic},
	{[]string{"open.spotify.com"}, ServiceSpotify},
	// music.youtube.com must win over the plain youtube rule or tracks get
	// the video path.
	{[]string{"music.youtube.com"}, ServiceYTMusic},
	{[]string{"youtube.com", "youtu.be"}, ServiceYouTube},
	{[]string{"tiktok.com"}, ServiceTikTok},
}

// DetectService classifies a URL by host substring. Unmatched URLs get
// ServiceUnknown and fall through to the generic extraction attempt.
func DetectService(rawURL string) Service {
	lower := strings.ToLower(rawURL)

	for _, rule := range serviceRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.service
			}
		}
	}

	return ServiceUnknown
}

// IsAudioService reports whether the service delivers audio rather than
// video.
func IsAudioService(s Service) bool {
	return s == ServiceYandexMusic || s == ServiceSpotify || s == ServiceYTMusic
}
