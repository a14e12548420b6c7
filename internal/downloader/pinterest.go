package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
)

// downloadPinterest is API-mediated: resolve the pin, find a direct media
// URL, fetch it over plain HTTP. The official API is used when a token is
// configured; otherwise the pin page's og: meta tags are scraped.
func (d *Downloader) downloadPinterest(ctx context.Context, rawURL string) (Result, error) {
	mediaURL, isVideo, err := d.resolvePinterestMedia(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	ext := "jpg"
	if isVideo {
		ext = "mp4"
	}

	dest := scratchPath(d.cfg.ScratchDir, linkresolver.ServicePinterest, ext)

	return d.fetchHTTPFile(ctx, mediaURL, dest)
}

func (d *Downloader) resolvePinterestMedia(ctx context.Context, rawURL string) (mediaURL string, isVideo bool, err error) {
	if d.cfg.PinterestAPIToken != "" {
		if pinID := pinIDFromURL(rawURL); pinID != "" {
			return d.pinterestAPILookup(ctx, pinID)
		}
	}

	return d.scrapeOgMedia(ctx, rawURL)
}

func pinIDFromURL(rawURL string) string {
	idx := strings.Index(rawURL, "/pin/")
	if idx < 0 {
		return ""
	}

	rest := strings.Trim(rawURL[idx+len("/pin/"):], "/")
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}

	if q := strings.IndexByte(rest, '?'); q >= 0 {
		rest = rest[:q]
	}

	return rest
}

type pinterestPin struct {
	Media struct {
		Images map[string]struct {
			URL string `json:"url"`
		} `json:"images"`
		VideoURL string `json:"video_url"`
	} `json:"media"`
}

func (d *Downloader) pinterestAPILookup(ctx context.Context, pinID string) (string, bool, error) {
	url := fmt.Sprintf("%s/pins/%s", d.cfg.PinterestAPIBaseURL, pinID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, newMediaError(CodeUnknown, err.Error())
	}

	req.Header.Set("Authorization", "Bearer "+d.cfg.PinterestAPIToken)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", false, newMediaError(Classify(err.Error()), err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false, newMediaError(Classify(fmt.Sprintf("HTTP Error %d", resp.StatusCode)), "pinterest api status "+resp.Status)
	}

	var pin pinterestPin
	if err := json.NewDecoder(resp.Body).Decode(&pin); err != nil {
		return "", false, newMediaError(CodeUnknown, "decode pinterest response: "+err.Error())
	}

	if pin.Media.VideoURL != "" {
		return pin.Media.VideoURL, true, nil
	}

	if img, ok := pin.Media.Images["original"]; ok && img.URL != "" {
		return img.URL, false, nil
	}

	return "", false, newMediaError(CodeFormatUnavailable, "pin has no downloadable media")
}

// scrapeOgMedia fetches a page and pulls og:video / og:image meta content.
// Also serves pin.it short links: the client follows redirects before
// parsing.
func (d *Downloader) scrapeOgMedia(ctx context.Context, rawURL string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, newMediaError(CodeUnknown, err.Error())
	}

	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", false, newMediaError(Classify(err.Error()), err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false, newMediaError(Classify(fmt.Sprintf("HTTP Error %d", resp.StatusCode)), "page status "+resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", false, newMediaError(CodeUnknown, "parse page: "+err.Error())
	}

	if video, ok := doc.Find(`meta[property="og:video"]`).Attr("content"); ok && video != "" {
		return video, true, nil
	}

	if image, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && image != "" {
		return image, false, nil
	}

	return "", false, newMediaError(CodeFormatUnavailable, "no og:video or og:image on page")
}

// fetchHTTPFile downloads a direct media URL into dest, enforcing the size
// ceiling while streaming. Content-Length is advisory; the byte count is
// authoritative.
func (d *Downloader) fetchHTTPFile(ctx context.Context, mediaURL, dest string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return Result{}, newMediaError(CodeUnknown, err.Error())
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{}, newMediaError(Classify(err.Error()), err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, newMediaError(Classify(fmt.Sprintf("HTTP Error %d", resp.StatusCode)), "media status "+resp.Status)
	}

	maxBytes := d.cfg.MaxFileSizeBytes()
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return Result{TooLarge: true}, nil
	}

	out, err := os.Create(dest)
	if err != nil {
		return Result{}, newMediaError(CodeUnknown, "create scratch file: "+err.Error())
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}

	written, err := io.Copy(out, body)

	closeErr := out.Close()

	if err != nil || closeErr != nil {
		Cleanup(dest)

		return Result{}, newMediaError(CodeUnknown, "write media file: "+path.Base(dest))
	}

	if maxBytes > 0 && written > maxBytes {
		Cleanup(dest)

		return Result{TooLarge: true}, nil
	}

	return Result{Path: dest}, nil
}
