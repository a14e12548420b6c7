package downloader

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner executes an external tool and returns its combined output.
// Tests substitute fakes; production uses execRunner.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()

	return string(out), err
}

// ytdlpOptions is the declarative option set handed to yt-dlp. Only
// non-zero fields become flags.
type ytdlpOptions struct {
	OutputPath   string
	Format       string
	CookiesPath  string
	Proxy        string
	Referer      string
	UserAgent    string
	MaxFileSize  int64
	ExtractAudio bool
}

func (o ytdlpOptions) args(target string) []string {
	args := []string{
		"-q", "--no-warnings", "--no-progress",
		"--no-playlist", "--no-check-certificate",
		"-o", o.OutputPath,
	}

	if o.Format != "" {
		args = append(args, "-f", o.Format)
	}

	if o.CookiesPath != "" {
		args = append(args, "--cookies", o.CookiesPath)
	}

	if o.Proxy != "" {
		args = append(args, "--proxy", o.Proxy)
	}

	if o.Referer != "" {
		args = append(args, "--add-header", "Referer:"+o.Referer)
	}

	if o.UserAgent != "" {
		args = append(args, "--user-agent", o.UserAgent)
	}

	if o.MaxFileSize > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(o.MaxFileSize, 10))
	}

	if o.ExtractAudio {
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", "192K")
	}

	return append(args, target)
}

// runYtDLP invokes yt-dlp and converts its outcome into the pipeline's
// result discipline: a path, the too-large sentinel, or a classified error.
// It never lets a raw network failure escape.
func (d *Downloader) runYtDLP(ctx context.Context, target, finalPath string, opts ytdlpOptions) (Result, error) {
	out, err := d.run.Run(ctx, d.cfg.YtDLPPath, opts.args(target)...)
	if err != nil {
		if _, statErr := os.Stat(finalPath); statErr == nil {
			Cleanup(finalPath)
		}

		code := Classify(out + " " + err.Error())
		if code == CodeTooLarge {
			return Result{TooLarge: true}, nil
		}

		return Result{}, newMediaError(code, firstLine(out))
	}

	if _, err := os.Stat(finalPath); err != nil {
		// yt-dlp exits 0 when --max-filesize rejects a download, leaving
		// no file behind.
		if strings.Contains(out, "max-filesize") {
			return Result{TooLarge: true}, nil
		}

		return Result{}, newMediaError(CodeUnknown, "no output file produced")
	}

	tooLarge, err := checkSize(finalPath, d.cfg.MaxFileSizeBytes())
	if err != nil {
		Cleanup(finalPath)

		return Result{}, newMediaError(CodeUnknown, err.Error())
	}

	if tooLarge {
		return Result{TooLarge: true}, nil
	}

	return Result{Path: finalPath}, nil
}

// probeSize asks yt-dlp for the remote filesize without downloading.
// Many extractors misreport or omit it, so a zero result means "unknown",
// not "small".
func (d *Downloader) probeSize(ctx context.Context, target string, opts ytdlpOptions) int64 {
	args := []string{"--print", "filesize", "--skip-download", "--no-warnings", "--no-playlist"}

	if opts.CookiesPath != "" {
		args = append(args, "--cookies", opts.CookiesPath)
	}

	if opts.Proxy != "" {
		args = append(args, "--proxy", opts.Proxy)
	}

	out, err := d.run.Run(ctx, d.cfg.YtDLPPath, append(args, target)...)
	if err != nil {
		return 0
	}

	size, err := strconv.ParseInt(strings.TrimSpace(firstLine(out)), 10, 64)
	if err != nil {
		return 0
	}

	return size
}

// probeTrackMeta asks the extractor for the track title and artist.
// Failures degrade to empty metadata, never to a failed download.
func (d *Downloader) probeTrackMeta(ctx context.Context, target string, opts ytdlpOptions) (title, artist string) {
	args := []string{"--print", "title", "--print", "%(artist,uploader)s", "--skip-download", "--no-warnings", "--no-playlist"}

	if opts.CookiesPath != "" {
		args = append(args, "--cookies", opts.CookiesPath)
	}

	out, err := d.run.Run(ctx, d.cfg.YtDLPPath, append(args, target)...)
	if err != nil {
		return "", ""
	}

	lines := strings.SplitN(strings.TrimSpace(out), "\n", 2)

	title = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		artist = strings.TrimSpace(lines[1])
	}

	return title, artist
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}

	return s
}
