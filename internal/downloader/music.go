package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	xproxy "golang.org/x/net/proxy"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
)

const yandexTracksAPI = "https://api.music.yandex.net/tracks/"

// metadataNoise strips album/year suffixes Yandex and Spotify glue onto
// track metadata ("Song · Album · 2020").
var metadataNoise = regexp.MustCompile(`·.*`)

func cleanTrackMeta(s string) string {
	return strings.TrimSpace(metadataNoise.ReplaceAllString(s, ""))
}

// downloadYandexTrack resolves title/artist through the Yandex Music API
// (behind the configured proxy and auth header), then finds the track on
// YouTube and extracts mp3 audio.
func (d *Downloader) downloadYandexTrack(ctx context.Context, rawURL string) (Result, error) {
	title, artist, err := d.yandexTrackInfo(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	return d.searchAndDownloadAudio(ctx, linkresolver.ServiceYandexMusic, title, artist)
}

// downloadSpotifyTrack scrapes the track page's og: meta tags through the
// SOCKS proxy (Spotify blocks most datacenter ranges), then takes the same
// YouTube search path.
func (d *Downloader) downloadSpotifyTrack(ctx context.Context, rawURL string) (Result, error) {
	title, artist, err := d.spotifyTrackInfo(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	return d.searchAndDownloadAudio(ctx, linkresolver.ServiceSpotify, title, artist)
}

type yandexTrackResponse struct {
	Result []struct {
		Title   string `json:"title"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
	} `json:"result"`
}

func (d *Downloader) yandexTrackInfo(ctx context.Context, rawURL string) (title, artist string, err error) {
	trackID := lastPathSegment(rawURL)
	if trackID == "" {
		return "", "", newMediaError(CodeUnsupportedURL, "no track id in yandex url")
	}

	client, err := proxiedClient(d.cfg.YandexProxy)
	if err != nil {
		return "", "", newMediaError(CodeProxyFailed, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, yandexTracksAPI+trackID, nil)
	if err != nil {
		return "", "", newMediaError(CodeUnknown, err.Error())
	}

	if d.cfg.YandexAuthHeader != "" {
		req.Header.Set("Authorization", d.cfg.YandexAuthHeader)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", newMediaError(Classify(err.Error()), err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", newMediaError(Classify(fmt.Sprintf("HTTP Error %d", resp.StatusCode)), "yandex api status "+resp.Status)
	}

	var track yandexTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return "", "", newMediaError(CodeUnknown, "decode yandex response: "+err.Error())
	}

	if len(track.Result) == 0 || len(track.Result[0].Artists) == 0 {
		return "", "", newMediaError(CodeNotFound, "track metadata missing")
	}

	return cleanTrackMeta(track.Result[0].Title), cleanTrackMeta(track.Result[0].Artists[0].Name), nil
}

func (d *Downloader) spotifyTrackInfo(ctx context.Context, rawURL string) (title, artist string, err error) {
	client, err := socksClient(d.cfg.SpotifyProxy)
	if err != nil {
		return "", "", newMediaError(CodeProxyFailed, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", newMediaError(CodeUnknown, err.Error())
	}

	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", "", newMediaError(Classify(err.Error()), err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", newMediaError(Classify(fmt.Sprintf("HTTP Error %d", resp.StatusCode)), "spotify page status "+resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", newMediaError(CodeUnknown, "parse spotify page: "+err.Error())
	}

	title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	artist, _ = doc.Find(`meta[property="og:description"]`).Attr("content")

	if title == "" || artist == "" {
		return "", "", newMediaError(CodeNotFound, "track metadata missing from page")
	}

	return cleanTrackMeta(title), cleanTrackMeta(artist), nil
}

// downloadYouTubeMusic serves music.youtube.com links as mp3 tracks. The
// host is rewritten to the regular frontend, which the extractor handles
// more reliably, and the track metadata comes from a separate probe.
func (d *Downloader) downloadYouTubeMusic(ctx context.Context, rawURL string) (Result, error) {
	target := strings.Replace(rawURL, "music.youtube.com", "www.youtube.com", 1)
	base := scratchPath(d.cfg.ScratchDir, linkresolver.ServiceYTMusic, "")

	opts := ytdlpOptions{
		OutputPath:   base,
		Format:       "bestaudio/best",
		CookiesPath:  d.cfg.YouTubeCookiesPath,
		MaxFileSize:  d.cfg.MaxFileSizeBytes(),
		ExtractAudio: true,
	}

	res, err := d.runYtDLP(ctx, target, base+".mp3", opts)
	if err != nil || res.TooLarge {
		return res, err
	}

	res.Title, res.Performer = d.probeTrackMeta(ctx, target, opts)

	return res, nil
}

// searchAndDownloadAudio runs a single-result YouTube search for the track
// and extracts mp3 audio. yt-dlp writes <base>.mp3 after post-processing.
func (d *Downloader) searchAndDownloadAudio(ctx context.Context, service linkresolver.Service, title, artist string) (Result, error) {
	base := scratchPath(d.cfg.ScratchDir, service, "")

	opts := ytdlpOptions{
		OutputPath:   base,
		Format:       "bestaudio/best",
		CookiesPath:  d.cfg.YouTubeCookiesPath,
		MaxFileSize:  d.cfg.MaxFileSizeBytes(),
		ExtractAudio: true,
	}

	query := fmt.Sprintf("ytsearch1:%s %s", title, artist)

	res, err := d.runYtDLP(ctx, query, base+".mp3", opts)
	if err != nil || res.TooLarge {
		return res, err
	}

	res.Title = title
	res.Performer = artist

	return res, nil
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}

	return segments[len(segments)-1]
}

// proxiedClient builds an HTTP client routed through an http(s) proxy URL,
// or a plain client when no proxy is configured.
func proxiedClient(proxyURL string) (*http.Client, error) {
	if proxyURL == "" {
		return &http.Client{Timeout: httpFetchTimeout}, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}

	return &http.Client{
		Timeout:   httpFetchTimeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
	}, nil
}

// socksClient builds an HTTP client dialing through a SOCKS5 proxy.
func socksClient(proxyURL string) (*http.Client, error) {
	if proxyURL == "" {
		return &http.Client{Timeout: httpFetchTimeout}, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse socks url: %w", err)
	}

	dialer, err := xproxy.SOCKS5("tcp", parsed.Host, nil, xproxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("build socks dialer: %w", err)
	}

	transport := &http.Transport{Dial: dialer.Dial}
	if ctxDialer, ok := dialer.(xproxy.ContextDialer); ok {
		transport = &http.Transport{DialContext: ctxDialer.DialContext}
	}

	return &http.Client{Timeout: 30 * time.Second, Transport: transport}, nil
}
