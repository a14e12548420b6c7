package downloader

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/platform/config"
)

// fakeRunner scripts external tool behavior per call and records every
// invocation for order assertions.
type fakeRunner struct {
	calls  [][]string
	handle func(call int, name string, args []string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	call := len(f.calls)
	f.calls = append(f.calls, append([]string{name}, args...))

	return f.handle(call, name, args)
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}

	return ""
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}

	return false
}

func isProbe(args []string) bool {
	return hasArg(args, "--print")
}

func newTestDownloader(t *testing.T, runner CommandRunner) (*Downloader, *config.Config) {
	t.Helper()

	logger := zerolog.Nop()
	cfg := &config.Config{
		ScratchDir:    t.TempDir(),
		MaxFileSizeMB: 1,
		YtDLPPath:     "yt-dlp",
	}

	d := New(cfg, &logger)
	d.run = runner

	return d, cfg
}

func writeFileOfSize(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestDownloadVideo_Success(t *testing.T) {
	runner := &fakeRunner{}
	runner.handle = func(_ int, _ string, args []string) (string, error) {
		if isProbe(args) {
			return "NA", nil
		}

		writeFileOfSize(t, argValue(args, "-o"), 1024)

		return "", nil
	}

	d, _ := newTestDownloader(t, runner)

	res, err := d.Download(context.Background(), "https://youtube.com/watch?v=abc", linkresolver.ServiceYouTube)
	require.NoError(t, err)
	assert.False(t, res.TooLarge)
	assert.FileExists(t, res.Path)
}

func TestDownloadVideo_OversizedFileDeleted(t *testing.T) {
	var downloadedPath string

	runner := &fakeRunner{}
	runner.handle = func(_ int, _ string, args []string) (string, error) {
		if isProbe(args) {
			return "", nil
		}

		downloadedPath = argValue(args, "-o")
		writeFileOfSize(t, downloadedPath, 2*1024*1024)

		return "", nil
	}

	d, _ := newTestDownloader(t, runner)

	res, err := d.Download(context.Background(), "https://youtube.com/watch?v=abc", linkresolver.ServiceYouTube)
	require.NoError(t, err)
	assert.True(t, res.TooLarge)
	assert.NoFileExists(t, downloadedPath, "oversized file must not remain on disk")
}

func TestDownloadVideo_ProbeRejectsEarly(t *testing.T) {
	runner := &fakeRunner{}
	runner.handle = func(_ int, _ string, args []string) (string, error) {
		if isProbe(args) {
			return "99999999", nil
		}

		t.Fatal("download must not run when the probe rejects")

		return "", nil
	}

	d, _ := newTestDownloader(t, runner)

	res, err := d.Download(context.Background(), "https://youtube.com/watch?v=abc", linkresolver.ServiceYouTube)
	require.NoError(t, err)
	assert.True(t, res.TooLarge)
}

func TestDownloadReddit_FailoverOrdering(t *testing.T) {
	runner := &fakeRunner{}
	runner.handle = func(_ int, _ string, args []string) (string, error) {
		if isProbe(args) {
			return "", nil
		}

		if argValue(args, "--proxy") != "" {
			return "ERROR: Unable to connect to proxy", assert.AnError
		}

		writeFileOfSize(t, argValue(args, "-o"), 100)

		return "", nil
	}

	d, cfg := newTestDownloader(t, runner)
	cfg.RedditProxy = "http://proxy:8080"

	res, err := d.Download(context.Background(), "https://reddit.com/r/x/comments/abc", linkresolver.ServiceReddit)
	require.NoError(t, err)
	assert.FileExists(t, res.Path)

	// The proxied attempt must run before the direct one.
	var proxiedFirst, sawDirect bool

	for _, call := range runner.calls {
		if isProbe(call[1:]) {
			continue
		}

		if argValue(call[1:], "--proxy") != "" {
			proxiedFirst = !sawDirect
		} else {
			sawDirect = true
		}
	}

	assert.True(t, proxiedFirst, "proxy route must be attempted first")
	assert.True(t, sawDirect, "direct route must be attempted as fallback")
}

func TestDownloadReddit_AllRoutesBlocked(t *testing.T) {
	runner := &fakeRunner{}
	runner.handle = func(_ int, _ string, args []string) (string, error) {
		if isProbe(args) {
			return "", nil
		}

		return "ERROR: unable to download video data: HTTP Error 403: Forbidden", assert.AnError
	}

	d, cfg := newTestDownloader(t, runner)
	cfg.RedditProxy = "http://proxy:8080"

	_, err := d.Download(context.Background(), "https://reddit.com/r/x/comments/abc", linkresolver.ServiceReddit)
	require.Error(t, err)

	mediaErr, ok := err.(*MediaError)
	require.True(t, ok, "error must be classified")
	assert.Equal(t, CodeRedditBlocked, mediaErr.Code)
}

func TestDownload_ClassifiedErrorNeverRaw(t *testing.T) {
	runner := &fakeRunner{}
	runner.handle = func(_ int, _ string, args []string) (string, error) {
		if isProbe(args) {
			return "", nil
		}

		return "ERROR: [youtube] abc: Private video", assert.AnError
	}

	d, _ := newTestDownloader(t, runner)

	_, err := d.Download(context.Background(), "https://youtube.com/watch?v=abc", linkresolver.ServiceYouTube)
	require.Error(t, err)

	mediaErr, ok := err.(*MediaError)
	require.True(t, ok)
	assert.Equal(t, CodePrivate, mediaErr.Code)
}

func TestDownloadYouTubeMusic_AudioWithMetadata(t *testing.T) {
	runner := &fakeRunner{}
	runner.handle = func(_ int, _ string, args []string) (string, error) {
		if isProbe(args) {
			return "Song Name\nThe Artist", nil
		}

		require.True(t, hasArg(args, "-x"), "music links must extract audio")

		target := args[len(args)-1]
		assert.Contains(t, target, "www.youtube.com")
		assert.NotContains(t, target, "music.youtube.com")

		writeFileOfSize(t, argValue(args, "-o")+".mp3", 2048)

		return "", nil
	}

	d, _ := newTestDownloader(t, runner)

	res, err := d.Download(context.Background(), "https://music.youtube.com/watch?v=abc", linkresolver.ServiceYTMusic)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Path, ".mp3"))
	assert.Equal(t, "Song Name", res.Title)
	assert.Equal(t, "The Artist", res.Performer)
}

func TestRunFailover_StopsAtFirstSuccess(t *testing.T) {
	logger := zerolog.Nop()

	var order []string

	attempts := []Attempt{
		{Name: "first", Run: func(context.Context) (Result, error) {
			order = append(order, "first")

			return Result{}, newMediaError(CodeProxyFailed, "down")
		}},
		{Name: "second", Run: func(context.Context) (Result, error) {
			order = append(order, "second")

			return Result{Path: "/tmp/x"}, nil
		}},
		{Name: "third", Run: func(context.Context) (Result, error) {
			order = append(order, "third")

			return Result{}, newMediaError(CodeUnknown, "unreachable")
		}},
	}

	res, err := runFailover(context.Background(), &logger, "test", attempts)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", res.Path)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRunFailover_ReturnsLastError(t *testing.T) {
	logger := zerolog.Nop()

	attempts := []Attempt{
		{Name: "first", Run: func(context.Context) (Result, error) {
			return Result{}, newMediaError(CodeProxyFailed, "first failure")
		}},
		{Name: "second", Run: func(context.Context) (Result, error) {
			return Result{}, newMediaError(CodeNotFound, "second failure")
		}},
	}

	_, err := runFailover(context.Background(), &logger, "test", attempts)
	require.Error(t, err)

	mediaErr, ok := err.(*MediaError)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, mediaErr.Code, "exhaustion must surface the last attempt's code")
}

func TestSweepScratch_RemovesOnlyOldFiles(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()

	oldFile := dir + "/youtube_old.mp4"
	newFile := dir + "/youtube_new.mp4"
	writeFileOfSize(t, oldFile, 10)
	writeFileOfSize(t, newFile, 10)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	removed := SweepScratch(dir, time.Hour, &logger)

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
}

func TestScratchPath_Unique(t *testing.T) {
	a := scratchPath("/tmp", linkresolver.ServiceYouTube, "mp4")
	b := scratchPath("/tmp", linkresolver.ServiceYouTube, "mp4")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "/tmp/youtube_"))
	assert.True(t, strings.HasSuffix(a, ".mp4"))
}
