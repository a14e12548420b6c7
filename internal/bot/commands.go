package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
)

const (
	statsWindow   = 7 * 24 * time.Hour
	statsRowLimit = 20

	helpText = `Send me a link and I'll fetch the media for you.

Supported: YouTube, Instagram, TikTok, Reddit, Pinterest, Spotify and Yandex Music tracks, and more.
Voice messages are transcribed automatically.

Commands:
/help — this message
/summarize — reply to a message to get a short summary`
)

type commandHandler func(ctx context.Context, msg *tgbotapi.Message)

func (b *Bot) commandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"start":     b.handleHelp,
		"help":      b.handleHelp,
		"summarize": b.handleSummarize,

		// Admin commands.
		"stats":       b.adminOnly(b.handleStats),
		"broadcast":   b.adminOnly(b.handleBroadcast),
		"proxystatus": b.adminOnly(b.handleProxyStatus),
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	b.logger.Info().
		Str("command", msg.Command()).
		Int64(logFieldUserID, msg.From.ID).
		Msg("handling command")

	handler, ok := b.commandHandlers()[msg.Command()]
	if !ok {
		b.replyText(msg.Chat.ID, msg.MessageID, "Unknown command. Try /help.")

		return
	}

	handler(ctx, msg)
}

func (b *Bot) adminOnly(handler commandHandler) commandHandler {
	return func(ctx context.Context, msg *tgbotapi.Message) {
		if !b.isAdmin(msg.From.ID) {
			b.logger.Warn().
				Int64(logFieldUserID, msg.From.ID).
				Str(logFieldUsername, msg.From.UserName).
				Msg("unauthorized admin command attempt")

			return
		}

		handler(ctx, msg)
	}
}

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message) {
	b.replyText(msg.Chat.ID, msg.MessageID, helpText)
}

// handleSummarize condenses the replied-to message through the LLM.
func (b *Bot) handleSummarize(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil || messageText(msg.ReplyToMessage) == "" {
		b.replyText(msg.Chat.ID, msg.MessageID, "Reply to a text message with /summarize.")

		return
	}

	summary, err := b.llmClient.Summarize(ctx, messageText(msg.ReplyToMessage))
	if err != nil {
		b.logger.Error().Err(err).Msg("summarize failed")
		b.replyText(msg.Chat.ID, msg.MessageID, "Summarization is unavailable right now.")

		return
	}

	b.replyText(msg.Chat.ID, msg.ReplyToMessage.MessageID, summary)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	since := time.Now().Add(-statsWindow)

	total, cached, err := b.database.CountRequests(ctx, since, string(linkresolver.ServiceCached))
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to count requests")
		b.replyText(msg.Chat.ID, msg.MessageID, "Stats are unavailable right now.")

		return
	}

	stats, err := b.database.GetServiceStats(ctx, since, statsRowLimit)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to load service stats")
		b.replyText(msg.Chat.ID, msg.MessageID, "Stats are unavailable right now.")

		return
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Requests over the last 7 days: %d (%d served from cache)\n\n", total, cached)

	for _, s := range stats {
		fmt.Fprintf(&sb, "%s: %d\n", s.Service, s.Count)
	}

	b.replyText(msg.Chat.ID, msg.MessageID, sb.String())
}

// handleBroadcast sends the command's argument text to every chat the bot
// has served. Delivery failures are logged and skipped; chats that blocked
// the bot are expected.
func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.replyText(msg.Chat.ID, msg.MessageID, "Usage: /broadcast <message>")

		return
	}

	chatIDs, err := b.database.DistinctChatIDs(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to load broadcast targets")
		b.replyText(msg.Chat.ID, msg.MessageID, "Broadcast failed: could not load chats.")

		return
	}

	sent := 0

	for _, chatID := range chatIDs {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			b.logger.Warn().Err(err).Int64(logFieldChatID, chatID).Msg("broadcast delivery failed")
			continue
		}

		sent++
	}

	b.replyText(msg.Chat.ID, msg.MessageID, fmt.Sprintf("Broadcast delivered to %d of %d chats.", sent, len(chatIDs)))
}

func (b *Bot) handleProxyStatus(ctx context.Context, msg *tgbotapi.Message) {
	statuses := b.proxies.CheckProxies(ctx)
	if len(statuses) == 0 {
		b.replyText(msg.Chat.ID, msg.MessageID, "No proxies configured.")

		return
	}

	var sb strings.Builder

	for _, s := range statuses {
		if s.OK {
			fmt.Fprintf(&sb, "%s: up\n", s.Name)
		} else {
			fmt.Fprintf(&sb, "%s: DOWN (%s)\n", s.Name, s.Err)
		}
	}

	b.replyText(msg.Chat.ID, msg.MessageID, sb.String())
}
