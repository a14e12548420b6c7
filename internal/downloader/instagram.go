package downloader

import (
	"context"
	"fmt"
	"os"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
)

// downloadInstagram shells out to the helper script. Contract: exit code 0
// plus an existing output file means success; anything else is classified
// from the combined stdout/stderr. Accounts get rate-limited, so the
// attempt list rotates through every configured cookie file, starting at a
// cursor that advances once per request.
func (d *Downloader) downloadInstagram(ctx context.Context, rawURL string) (Result, error) {
	if d.cfg.InstagramScriptPath == "" {
		return Result{}, newMediaError(CodeUnsupportedURL, "no instagram helper script configured")
	}

	cookies := d.cfg.InstagramCookiePaths
	if len(cookies) == 0 {
		return d.runInstagramScript(ctx, rawURL, "")
	}

	offset := int(d.igCursor.Add(1)) - 1
	attempts := make([]Attempt, 0, len(cookies))

	for i := range cookies {
		cookiePath := cookies[(offset+i)%len(cookies)]
		attempts = append(attempts, Attempt{
			Name: fmt.Sprintf("account_%d", (offset+i)%len(cookies)),
			Run: func(ctx context.Context) (Result, error) {
				return d.runInstagramScript(ctx, rawURL, cookiePath)
			},
		})
	}

	return runFailover(ctx, d.logger, string(linkresolver.ServiceInstagram), attempts)
}

func (d *Downloader) runInstagramScript(ctx context.Context, rawURL, cookiePath string) (Result, error) {
	outPath := scratchPath(d.cfg.ScratchDir, linkresolver.ServiceInstagram, "mp4")

	args := []string{rawURL, outPath}
	if cookiePath != "" {
		args = append(args, cookiePath)
	}

	out, err := d.run.Run(ctx, d.cfg.InstagramScriptPath, args...)
	if err != nil {
		Cleanup(outPath)

		return Result{}, newMediaError(Classify(out+" "+err.Error()), firstLine(out))
	}

	if _, err := os.Stat(outPath); err != nil {
		return Result{}, newMediaError(CodeUnknown, "helper script produced no file")
	}

	tooLarge, err := checkSize(outPath, d.cfg.MaxFileSizeBytes())
	if err != nil {
		Cleanup(outPath)

		return Result{}, newMediaError(CodeUnknown, err.Error())
	}

	if tooLarge {
		return Result{TooLarge: true}, nil
	}

	return Result{Path: outPath}, nil
}
