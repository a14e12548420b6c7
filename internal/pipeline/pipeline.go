// Package pipeline runs media tasks end to end: download, transcode,
// deliver, record. Download and send concurrency are governed by two
// independent semaphores so a slow upload never blocks the next download.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/lueurxax/telegram-media-bot/internal/downloader"
	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/platform/config"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-media-bot/internal/platform/worker"
	"github.com/lueurxax/telegram-media-bot/internal/storage"
)

const logFieldCorrelationID = "correlation_id"

// Task is one media request accepted for processing.
type Task struct {
	Link      string // normalized URL, used as the cache key
	RawURL    string // unwrapped URL handed to backends
	Service   linkresolver.Service
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
}

// MediaKind selects the Telegram send method.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
	KindPhoto MediaKind = "photo"
)

// Media is a deliverable produced by the download stage.
type Media struct {
	Path      string
	Kind      MediaKind
	Title     string
	Performer string
}

// Downloader fetches media for a URL into a scratch file.
type Downloader interface {
	Download(ctx context.Context, rawURL string, service linkresolver.Service) (downloader.Result, error)
}

// Transcoder normalizes a downloaded file into an mp4 container.
type Transcoder interface {
	EnsureVideo(ctx context.Context, path string) (string, error)
}

// Sender delivers media and text to Telegram chats.
type Sender interface {
	// SendMediaFile uploads media as a reply and returns the Telegram
	// file_id assigned to the upload.
	SendMediaFile(ctx context.Context, chatID int64, replyTo int, media Media) (string, error)

	// SendText sends a plain text reply.
	SendText(ctx context.Context, chatID int64, replyTo int, text string) error

	// NotifyOperator forwards diagnostics to the operator chat.
	NotifyOperator(ctx context.Context, text string)
}

// Repository records processed requests.
type Repository interface {
	InsertRequest(ctx context.Context, entry storage.RequestLogEntry) error
}

type Pipeline struct {
	cfg        *config.Config
	downloader Downloader
	transcoder Transcoder
	sender     Sender
	repo       Repository
	logger     *zerolog.Logger

	downloadSlots *semaphore.Weighted
	sendSlots     *semaphore.Weighted
}

func New(cfg *config.Config, dl Downloader, tr Transcoder, sender Sender, repo Repository, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:           cfg,
		downloader:    dl,
		transcoder:    tr,
		sender:        sender,
		repo:          repo,
		logger:        logger,
		downloadSlots: semaphore.NewWeighted(cfg.DownloadConcurrency),
		sendSlots:     semaphore.NewWeighted(cfg.SendConcurrency),
	}
}

// Submit launches a task in its own goroutine. Panics are recovered so a
// single bad task never takes down the update loop.
func (p *Pipeline) Submit(ctx context.Context, task Task) {
	go func() {
		defer worker.RecoverPanic(p.logger, "media task")

		p.Process(ctx, task)
	}()
}

// Process runs a task to completion. Every outcome is reported to the
// requesting chat; the scratch file never outlives the task.
func (p *Pipeline) Process(ctx context.Context, task Task) {
	correlationID := uuid.New().String()
	logger := p.logger.With().
		Str(logFieldCorrelationID, correlationID).
		Str("service", string(task.Service)).
		Int64("chat_id", task.ChatID).
		Logger()

	observability.TasksInFlight.Inc()
	defer observability.TasksInFlight.Dec()

	logger.Info().Str("link", task.Link).Msg("starting media task")

	media, err := p.download(ctx, task)
	if err != nil {
		p.reportFailure(ctx, logger, task, err)

		return
	}

	// The scratch file is removed no matter how delivery ends. Transcode
	// may swap the path, so re-read it at defer time.
	defer func() { downloader.Cleanup(media.Path) }()

	if media.Kind == KindVideo {
		converted, err := p.transcoder.EnsureVideo(ctx, media.Path)
		if err != nil {
			p.reportFailure(ctx, logger, task, err)

			return
		}

		media.Path = converted
	}

	fileID, err := p.send(ctx, task, media)
	if err != nil {
		p.reportFailure(ctx, logger, task, err)

		return
	}

	// Cache write happens only after Telegram confirmed the upload, so a
	// cached file_id always points at deliverable media.
	entry := storage.RequestLogEntry{
		UserID:   task.UserID,
		Username: task.Username,
		ChatID:   task.ChatID,
		Link:     task.Link,
		Service:  string(task.Service),
		FileID:   fileID,
	}

	if err := p.repo.InsertRequest(ctx, entry); err != nil {
		// The user already has their media; losing the cache row only
		// costs a re-download next time.
		logger.Error().Err(err).Msg("failed to record delivered request")
	}

	logger.Info().Str("file_id", fileID).Msg("media task finished")
}

func (p *Pipeline) download(ctx context.Context, task Task) (Media, error) {
	if err := p.downloadSlots.Acquire(ctx, 1); err != nil {
		return Media{}, err
	}
	defer p.downloadSlots.Release(1)

	var result downloader.Result

	err := worker.RunWithTimeout(ctx, p.cfg.DownloadTimeout, func(ctx context.Context) error {
		var err error
		result, err = p.downloader.Download(ctx, task.RawURL, task.Service)

		return err
	})
	if err != nil {
		return Media{}, err
	}

	if result.TooLarge {
		return Media{}, downloader.NewTooLargeError(task.Link)
	}

	return Media{
		Path:      result.Path,
		Kind:      mediaKind(task.Service, result.Path),
		Title:     result.Title,
		Performer: result.Performer,
	}, nil
}

func (p *Pipeline) send(ctx context.Context, task Task, media Media) (string, error) {
	if err := p.sendSlots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sendSlots.Release(1)

	return p.sender.SendMediaFile(ctx, task.ChatID, task.MessageID, media)
}

// reportFailure maps the error onto a user-facing message and escalates
// unclassified errors to the operator. Failed attempts write no request-log
// row; only a confirmed send produces one.
func (p *Pipeline) reportFailure(ctx context.Context, logger zerolog.Logger, task Task, taskErr error) {
	code := downloader.CodeUnknown

	var mediaErr *downloader.MediaError
	if errors.As(taskErr, &mediaErr) {
		code = mediaErr.Code
	}

	logger.Warn().Err(taskErr).Str("code", string(code)).Msg("media task failed")

	if err := p.sender.SendText(ctx, task.ChatID, task.MessageID, downloader.UserMessage(code)); err != nil {
		logger.Error().Err(err).Msg("failed to deliver error message")
	}

	if code == downloader.CodeUnknown {
		p.sender.NotifyOperator(ctx, "unclassified failure for "+task.Link+": "+taskErr.Error())
	}
}

func mediaKind(service linkresolver.Service, path string) MediaKind {
	if linkresolver.IsAudioService(service) {
		return KindAudio
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return KindPhoto
	default:
		return KindVideo
	}
}

// StaleCutoff reports whether a message is too old to act on. Restarting
// after downtime floods the update channel with backlog the users have
// given up on.
func StaleCutoff(messageTime time.Time, maxAge time.Duration, now time.Time) bool {
	return maxAge > 0 && now.Sub(messageTime) > maxAge
}
