// Package transcode wraps ffmpeg for container normalization and audio
// extraction. Inputs are scratch files owned by the caller; on success the
// source file is replaced by the converted one.
package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-media-bot/internal/downloader"
	"github.com/lueurxax/telegram-media-bot/internal/platform/config"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
)

const (
	outcomeConverted = "converted"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()

	return string(out), err
}

type Transcoder struct {
	cfg    *config.Config
	logger *zerolog.Logger
	run    CommandRunner
}

func New(cfg *config.Config, logger *zerolog.Logger) *Transcoder {
	return &Transcoder{
		cfg:    cfg,
		logger: logger,
		run:    execRunner{},
	}
}

// EnsureVideo returns a path to an mp4 rendition of the input. Files
// already in an mp4 container are returned unchanged; everything else is
// re-encoded and the source is deleted. The converted file must still fit
// the size ceiling.
func (t *Transcoder) EnsureVideo(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".mp4") {
		observability.TranscodesTotal.WithLabelValues(outcomeSkipped).Inc()

		return path, nil
	}

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mp4"

	args := []string{
		"-y", "-i", path,
		"-c:v", "libx264", "-preset", "fast",
		"-c:a", "aac",
		"-movflags", "+faststart",
		outPath,
	}

	return t.convert(ctx, path, outPath, args)
}

// ExtractAudio re-encodes the input into an mp3 and deletes the source.
func (t *Transcoder) ExtractAudio(ctx context.Context, path string) (string, error) {
	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mp3"

	args := []string{
		"-y", "-i", path,
		"-vn", "-ar", "44100", "-ac", "2", "-b:a", "192k",
		outPath,
	}

	return t.convert(ctx, path, outPath, args)
}

func (t *Transcoder) convert(ctx context.Context, srcPath, outPath string, args []string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.cfg.TranscodeTimeout)
	defer cancel()

	t.logger.Debug().Str("src", srcPath).Str("out", outPath).Msg("transcoding")

	out, err := t.run.Run(runCtx, t.cfg.FFmpegPath, args...)
	if err != nil {
		observability.TranscodesTotal.WithLabelValues(outcomeFailed).Inc()
		downloader.Cleanup(outPath)

		return "", fmt.Errorf("ffmpeg: %s: %w", firstLine(out), err)
	}

	if _, err := os.Stat(outPath); err != nil {
		observability.TranscodesTotal.WithLabelValues(outcomeFailed).Inc()

		return "", fmt.Errorf("ffmpeg produced no output file: %w", err)
	}

	tooLarge, err := exceedsLimit(outPath, t.cfg.MaxFileSizeBytes())
	if err != nil {
		downloader.Cleanup(outPath)

		return "", err
	}

	if tooLarge {
		observability.TranscodesTotal.WithLabelValues(outcomeFailed).Inc()
		downloader.Cleanup(outPath)
		downloader.Cleanup(srcPath)

		return "", downloader.NewTooLargeError("transcoded file over size ceiling")
	}

	observability.TranscodesTotal.WithLabelValues(outcomeConverted).Inc()
	downloader.Cleanup(srcPath)

	return outPath, nil
}

func exceedsLimit(path string, maxBytes int64) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat transcoded file: %w", err)
	}

	return maxBytes > 0 && info.Size() > maxBytes, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}

	return s
}
