package downloader

import (
	"context"
	"net"
	"net/url"

	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
)

// ProxyStatus is the result of probing one configured proxy.
type ProxyStatus struct {
	Name string
	OK   bool
	Err  string
}

// CheckProxies probes every configured proxy with a TCP dial and updates
// the proxy health gauge. Called by the health watchdog and /proxystatus.
func (d *Downloader) CheckProxies(ctx context.Context) []ProxyStatus {
	proxies := []struct {
		name   string
		rawURL string
	}{
		{"reddit", d.cfg.RedditProxy},
		{"tiktok", d.cfg.TikTokProxy},
		{"spotify", d.cfg.SpotifyProxy},
		{"yandex", d.cfg.YandexProxy},
	}

	statuses := make([]ProxyStatus, 0, len(proxies))

	for _, p := range proxies {
		if p.rawURL == "" {
			continue
		}

		status := ProxyStatus{Name: p.name, OK: true}

		if err := d.probeProxy(ctx, p.rawURL); err != nil {
			status.OK = false
			status.Err = err.Error()

			d.logger.Warn().Str("proxy", p.name).Err(err).Msg("proxy health check failed")
		}

		gauge := 0.0
		if status.OK {
			gauge = 1.0
		}

		observability.ProxyUp.WithLabelValues(p.name).Set(gauge)

		statuses = append(statuses, status)
	}

	return statuses
}

func (d *Downloader) probeProxy(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, d.cfg.ProxyCheckTimeout)
	defer cancel()

	var dialer net.Dialer

	conn, err := dialer.DialContext(dialCtx, "tcp", parsed.Host)
	if err != nil {
		return err
	}

	return conn.Close()
}
