// Package bot is the Telegram-facing surface: it consumes updates, turns
// link messages into pipeline tasks, replays cached media, and answers
// commands and inline queries.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-media-bot/internal/downloader"
	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/llm"
	"github.com/lueurxax/telegram-media-bot/internal/pipeline"
	"github.com/lueurxax/telegram-media-bot/internal/platform/config"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-media-bot/internal/storage"
)

const (
	updateTimeoutSeconds = 60

	// sendRetryDelay spaces the reply-less retry after a failed send.
	sendRetryDelay = 500 * time.Millisecond
)

// Log field names.
const (
	logFieldUserID   = "user_id"
	logFieldUsername = "username"
	logFieldChatID   = "chat_id"
)

// Repository is the request-log surface the bot needs.
type Repository interface {
	GetCachedFileID(ctx context.Context, link string) (string, error)
	InsertRequest(ctx context.Context, entry storage.RequestLogEntry) error
	SearchCachedMedia(ctx context.Context, query string, limit int) ([]storage.CachedMedia, error)
	GetServiceStats(ctx context.Context, since time.Time, limit int) ([]storage.ServiceStat, error)
	CountRequests(ctx context.Context, since time.Time, cachedService string) (total, cached int, err error)
	DistinctChatIDs(ctx context.Context) ([]int64, error)
}

// ProxyChecker probes configured proxies for /proxystatus and the health
// watchdog.
type ProxyChecker interface {
	CheckProxies(ctx context.Context) []downloader.ProxyStatus
}

// telegramAPI is the slice of the Bot API client this package calls.
// *tgbotapi.BotAPI satisfies it; tests substitute a fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type Bot struct {
	cfg       *config.Config
	database  Repository
	tasks     *pipeline.Pipeline
	llmClient llm.Client
	proxies   ProxyChecker
	api       telegramAPI
	self      string
	logger    *zerolog.Logger
}

func New(cfg *config.Config, database Repository, llmClient llm.Client, proxies ProxyChecker, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	return newBot(cfg, database, llmClient, proxies, api, api.Self.UserName, logger), nil
}

func newBot(cfg *config.Config, database Repository, llmClient llm.Client, proxies ProxyChecker, api telegramAPI, self string, logger *zerolog.Logger) *Bot {
	return &Bot{
		cfg:       cfg,
		database:  database,
		llmClient: llmClient,
		proxies:   proxies,
		api:       api,
		self:      self,
		logger:    logger,
	}
}

// SetPipeline wires the task pipeline. The pipeline needs the bot as its
// sender, so the two are connected after construction.
func (b *Bot) SetPipeline(p *pipeline.Pipeline) {
	b.tasks = p
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.self).Msg("bot update loop started")

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update := <-updates:
			if update.InlineQuery != nil {
				b.handleInlineQuery(ctx, update.InlineQuery)
				continue
			}

			if update.Message == nil {
				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if b.dropStale(msg) {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)

		return
	}

	if msg.Voice != nil {
		b.handleVoice(ctx, msg)

		return
	}

	rawURL := linkresolver.ExtractURL(messageText(msg))
	if rawURL == "" {
		return
	}

	b.handleMediaRequest(ctx, msg, rawURL)
}

// dropStale discards backlog accumulated while the bot was down. Users
// have long stopped waiting for those replies.
func (b *Bot) dropStale(msg *tgbotapi.Message) bool {
	if !pipeline.StaleCutoff(msg.Time(), b.cfg.MaxMessageAge, time.Now()) {
		return false
	}

	observability.StaleDropped.Inc()
	b.logger.Debug().
		Int64(logFieldChatID, msg.Chat.ID).
		Time("message_time", msg.Time()).
		Msg("dropping stale message")

	return true
}

func (b *Bot) handleMediaRequest(ctx context.Context, msg *tgbotapi.Message, rawURL string) {
	unwrapped := linkresolver.Unwrap(rawURL)
	link := linkresolver.Normalize(unwrapped)
	service := linkresolver.DetectService(link)

	observability.RequestsTotal.WithLabelValues(string(service)).Inc()

	logger := b.logger.With().
		Int64(logFieldUserID, msg.From.ID).
		Str(logFieldUsername, msg.From.UserName).
		Str("service", string(service)).
		Logger()

	// Unmatched URLs are submitted anyway; the generic extraction route
	// handles the long tail of platforms.
	logger.Info().Str("link", link).Msg("media request")

	fileID, err := b.database.GetCachedFileID(ctx, link)
	if err != nil {
		logger.Error().Err(err).Msg("cache lookup failed, proceeding with download")
	}

	if fileID != "" {
		observability.CacheHits.Inc()
		b.replayCached(ctx, msg, link, service, fileID)

		return
	}

	observability.CacheMisses.Inc()

	b.tasks.Submit(ctx, pipeline.Task{
		Link:      link,
		RawURL:    unwrapped,
		Service:   service,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
	})
}

func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}

	return msg.Caption
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}
