package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-media-bot/internal/downloader"
	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/platform/config"
	"github.com/lueurxax/telegram-media-bot/internal/storage"
)

type fakeDownloader struct {
	result downloader.Result
	err    error
	calls  int
}

func (f *fakeDownloader) Download(context.Context, string, linkresolver.Service) (downloader.Result, error) {
	f.calls++

	return f.result, f.err
}

type passthroughTranscoder struct{}

func (passthroughTranscoder) EnsureVideo(_ context.Context, path string) (string, error) {
	return path, nil
}

type fakeSender struct {
	mu            sync.Mutex
	fileID        string
	sendErr       error
	mediaSent     []Media
	texts         []string
	operatorNotes []string
}

func (f *fakeSender) SendMediaFile(_ context.Context, _ int64, _ int, media Media) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return "", f.sendErr
	}

	f.mediaSent = append(f.mediaSent, media)

	return f.fileID, nil
}

func (f *fakeSender) SendText(_ context.Context, _ int64, _ int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)

	return nil
}

func (f *fakeSender) NotifyOperator(_ context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operatorNotes = append(f.operatorNotes, text)
}

type fakeRepo struct {
	mu      sync.Mutex
	entries []storage.RequestLogEntry
}

func (f *fakeRepo) InsertRequest(_ context.Context, entry storage.RequestLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)

	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		ScratchDir:          t.TempDir(),
		MaxFileSizeMB:       50,
		DownloadConcurrency: 2,
		SendConcurrency:     1,
		DownloadTimeout:     time.Minute,
		TranscodeTimeout:    time.Minute,
	}
}

func scratchFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("media"), 0o644))

	return path
}

func videoTask() Task {
	return Task{
		Link:      "https://youtube.com/watch?v=abc",
		RawURL:    "https://youtube.com/watch?v=abc",
		Service:   linkresolver.ServiceYouTube,
		ChatID:    42,
		MessageID: 7,
		UserID:    1,
		Username:  "tester",
	}
}

func TestProcess_DeliversAndRecordsFileID(t *testing.T) {
	cfg := testConfig(t)
	path := scratchFile(t, cfg.ScratchDir, "youtube_x.mp4")

	dl := &fakeDownloader{result: downloader.Result{Path: path}}
	sender := &fakeSender{fileID: "BAACAg123"}
	repo := &fakeRepo{}
	logger := zerolog.Nop()

	p := New(cfg, dl, passthroughTranscoder{}, sender, repo, &logger)
	p.Process(context.Background(), videoTask())

	require.Len(t, sender.mediaSent, 1)
	assert.Equal(t, KindVideo, sender.mediaSent[0].Kind)

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "BAACAg123", repo.entries[0].FileID)
	assert.Equal(t, "https://youtube.com/watch?v=abc", repo.entries[0].Link)

	assert.NoFileExists(t, path, "scratch file must be cleaned up after delivery")
}

func TestProcess_SendFailureLeavesNoCacheEntry(t *testing.T) {
	cfg := testConfig(t)
	path := scratchFile(t, cfg.ScratchDir, "youtube_x.mp4")

	dl := &fakeDownloader{result: downloader.Result{Path: path}}
	sender := &fakeSender{sendErr: errors.New("telegram: Bad Request")}
	repo := &fakeRepo{}
	logger := zerolog.Nop()

	p := New(cfg, dl, passthroughTranscoder{}, sender, repo, &logger)
	p.Process(context.Background(), videoTask())

	assert.Empty(t, repo.entries, "undelivered media must leave no request-log row")

	assert.NoFileExists(t, path, "scratch file must be cleaned up after failure")
}

func TestProcess_ClassifiedFailureSendsUserMessage(t *testing.T) {
	cfg := testConfig(t)

	dl := &fakeDownloader{err: &downloader.MediaError{Code: downloader.CodePrivate, Detail: "private video"}}
	sender := &fakeSender{}
	repo := &fakeRepo{}
	logger := zerolog.Nop()

	p := New(cfg, dl, passthroughTranscoder{}, sender, repo, &logger)
	p.Process(context.Background(), videoTask())

	require.Len(t, sender.texts, 1)
	assert.Equal(t, downloader.UserMessage(downloader.CodePrivate), sender.texts[0])
	assert.Empty(t, sender.operatorNotes, "classified errors must not page the operator")

	assert.Empty(t, repo.entries, "failed downloads must not write request-log rows")
}

func TestProcess_UnknownFailureNotifiesOperator(t *testing.T) {
	cfg := testConfig(t)

	dl := &fakeDownloader{err: errors.New("something exploded")}
	sender := &fakeSender{}
	repo := &fakeRepo{}
	logger := zerolog.Nop()

	p := New(cfg, dl, passthroughTranscoder{}, sender, repo, &logger)
	p.Process(context.Background(), videoTask())

	require.Len(t, sender.texts, 1)
	assert.Equal(t, downloader.UserMessage(downloader.CodeUnknown), sender.texts[0])
	assert.Len(t, sender.operatorNotes, 1)
	assert.Empty(t, repo.entries)
}

func TestProcess_TooLargeResultRejected(t *testing.T) {
	cfg := testConfig(t)

	dl := &fakeDownloader{result: downloader.Result{TooLarge: true}}
	sender := &fakeSender{}
	repo := &fakeRepo{}
	logger := zerolog.Nop()

	p := New(cfg, dl, passthroughTranscoder{}, sender, repo, &logger)
	p.Process(context.Background(), videoTask())

	require.Len(t, sender.texts, 1)
	assert.Equal(t, downloader.UserMessage(downloader.CodeTooLarge), sender.texts[0])
	assert.Empty(t, sender.mediaSent)
}

func TestProcess_AudioServiceKeepsMetadata(t *testing.T) {
	cfg := testConfig(t)
	path := scratchFile(t, cfg.ScratchDir, "spotify_x.mp3")

	dl := &fakeDownloader{result: downloader.Result{Path: path, Title: "Song", Performer: "Artist"}}
	sender := &fakeSender{fileID: "CQACAg456"}
	repo := &fakeRepo{}
	logger := zerolog.Nop()

	task := videoTask()
	task.Service = linkresolver.ServiceSpotify

	p := New(cfg, dl, passthroughTranscoder{}, sender, repo, &logger)
	p.Process(context.Background(), task)

	require.Len(t, sender.mediaSent, 1)
	assert.Equal(t, KindAudio, sender.mediaSent[0].Kind)
	assert.Equal(t, "Song", sender.mediaSent[0].Title)
	assert.Equal(t, "Artist", sender.mediaSent[0].Performer)
}

func TestStaleCutoff(t *testing.T) {
	now := time.Now()

	assert.True(t, StaleCutoff(now.Add(-10*time.Minute), 5*time.Minute, now))
	assert.False(t, StaleCutoff(now.Add(-time.Minute), 5*time.Minute, now))
	assert.False(t, StaleCutoff(now.Add(-time.Hour), 0, now), "zero max age disables the check")
}
