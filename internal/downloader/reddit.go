package downloader

import (
	"context"
	"errors"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
)

// downloadReddit tries the configured proxy first, then a direct
// connection. Reddit intermittently blocks datacenter IPs, so neither
// route alone is reliable. When every route is refused, the final
// blocked/proxy error is reported as the Reddit-specific code.
func (d *Downloader) downloadReddit(ctx context.Context, rawURL string) (Result, error) {
	baseOpts := ytdlpOptions{
		Format:      "bestvideo+bestaudio/best",
		CookiesPath: d.cfg.RedditCookiesPath,
	}

	attempts := make([]Attempt, 0, 2)

	if d.cfg.RedditProxy != "" {
		attempts = append(attempts, Attempt{
			Name: "proxy",
			Run: func(ctx context.Context) (Result, error) {
				opts := baseOpts
				opts.Proxy = d.cfg.RedditProxy

				return d.downloadVideo(ctx, rawURL, linkresolver.ServiceReddit, opts)
			},
		})
	}

	attempts = append(attempts, Attempt{
		Name: "direct",
		Run: func(ctx context.Context) (Result, error) {
			return d.downloadVideo(ctx, rawURL, linkresolver.ServiceReddit, baseOpts)
		},
	})

	res, err := runFailover(ctx, d.logger, string(linkresolver.ServiceReddit), attempts)
	if err != nil {
		var mediaErr *MediaError
		if errors.As(err, &mediaErr) && (mediaErr.Code == CodeBlocked || mediaErr.Code == CodeProxyFailed) {
			return Result{}, newMediaError(CodeRedditBlocked, mediaErr.Detail)
		}

		return Result{}, err
	}

	return res, nil
}
