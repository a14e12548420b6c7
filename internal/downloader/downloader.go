// Package downloader routes classified URLs to backend download
// strategies and converts every failure into a closed set of semantic
// error codes. Backends are external tools (yt-dlp, ffmpeg-adjacent helper
// scripts) and plain HTTP APIs; this package owns the scratch files they
// produce and the size ceiling they must respect.
package downloader

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/platform/config"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
)

const httpFetchTimeout = 60 * time.Second

// Result is the outcome of a download attempt: a local file, the too-large
// sentinel, or neither (the accompanying error then carries the code).
// Title and Performer are populated for audio tracks only.
type Result struct {
	Path      string
	TooLarge  bool
	Title     string
	Performer string
}

// strategyFunc downloads one URL for one service.
type strategyFunc func(ctx context.Context, rawURL string) (Result, error)

// Downloader dispatches URLs to per-service strategies.
type Downloader struct {
	cfg    *config.Config
	logger *zerolog.Logger
	run    CommandRunner
	client *http.Client

	routes map[linkresolver.Service]strategyFunc

	// Instagram account rotation cursor.
	igCursor atomic.Uint32
}

func New(cfg *config.Config, logger *zerolog.Logger) *Downloader {
	d := &Downloader{
		cfg:    cfg,
		logger: logger,
		run:    execRunner{},
		client: &http.Client{Timeout: httpFetchTimeout},
	}
	d.routes = d.buildRoutes()

	return d
}

// buildRoutes assembles the service → strategy registry. The router is the
// only place platform dispatch happens; strategies never re-derive the
// service themselves.
func (d *Downloader) buildRoutes() map[linkresolver.Service]strategyFunc {
	return map[linkresolver.Service]strategyFunc{
		linkresolver.ServicePinterest:   d.downloadPinterest,
		linkresolver.ServiceInstagram:   d.downloadInstagram,
		linkresolver.ServiceReddit:      d.downloadReddit,
		linkresolver.ServicePornHub:     d.downloadPornHub,
		linkresolver.ServiceYouTube:     d.downloadYouTube,
		linkresolver.ServiceYTMusic:     d.downloadYouTubeMusic,
		linkresolver.ServiceTikTok:      d.downloadTikTok,
		linkresolver.ServiceYandexMusic: d.downloadYandexTrack,
		linkresolver.ServiceSpotify:     d.downloadSpotifyTrack,
	}
}

// Download routes a URL to its strategy. Unmatched services get a generic
// extraction attempt. Network failures never escape as raw errors; the
// caller sees a Result or a *MediaError.
func (d *Downloader) Download(ctx context.Context, rawURL string, service linkresolver.Service) (Result, error) {
	start := time.Now()

	strategy, ok := d.routes[service]
	if !ok {
		strategy = d.downloadGeneric
	}

	res, err := strategy(ctx, rawURL)

	status := "ok"

	switch {
	case err != nil:
		status = "error"
	case res.TooLarge:
		status = "too_large"
	}

	observability.DownloadsTotal.WithLabelValues(string(service), status).Inc()
	observability.DownloadDuration.WithLabelValues(string(service)).Observe(time.Since(start).Seconds())

	return res, err
}

// downloadYouTube uses the extraction library with YouTube cookies.
func (d *Downloader) downloadYouTube(ctx context.Context, rawURL string) (Result, error) {
	return d.downloadVideo(ctx, rawURL, linkresolver.ServiceYouTube, ytdlpOptions{
		Format:      "best",
		CookiesPath: d.cfg.YouTubeCookiesPath,
	})
}

// downloadTikTok routes through the TikTok proxy when one is configured.
func (d *Downloader) downloadTikTok(ctx context.Context, rawURL string) (Result, error) {
	return d.downloadVideo(ctx, rawURL, linkresolver.ServiceTikTok, ytdlpOptions{
		Format: "best",
		Proxy:  d.cfg.TikTokProxy,
	})
}

// downloadPornHub forces referer and user-agent headers and caps the
// resolution; the site serves nothing without them.
func (d *Downloader) downloadPornHub(ctx context.Context, rawURL string) (Result, error) {
	return d.downloadVideo(ctx, rawURL, linkresolver.ServicePornHub, ytdlpOptions{
		Format:    "best[height<=720]",
		Referer:   "https://www.pornhub.com/",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	})
}

func (d *Downloader) downloadGeneric(ctx context.Context, rawURL string) (Result, error) {
	return d.downloadVideo(ctx, rawURL, linkresolver.ServiceUnknown, ytdlpOptions{Format: "best"})
}

// downloadVideo is the shared yt-dlp video path: probe the remote size
// (advisory), download into a unique scratch file, then re-check the
// actual size (authoritative).
func (d *Downloader) downloadVideo(ctx context.Context, rawURL string, service linkresolver.Service, opts ytdlpOptions) (Result, error) {
	opts.MaxFileSize = d.cfg.MaxFileSizeBytes()
	opts.OutputPath = scratchPath(d.cfg.ScratchDir, service, "mp4")

	if size := d.probeSize(ctx, rawURL, opts); size > opts.MaxFileSize && opts.MaxFileSize > 0 {
		return Result{TooLarge: true}, nil
	}

	return d.runYtDLP(ctx, rawURL, opts.OutputPath, opts)
}
