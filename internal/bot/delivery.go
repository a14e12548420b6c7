package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/pipeline"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-media-bot/internal/storage"
)

const (
	sendStatusOK     = "ok"
	sendStatusFailed = "failed"
)

// SendMediaFile uploads a scratch file as a reply and returns the file_id
// Telegram assigned. A failed send is retried once without the reply
// reference (the original message may have been deleted), then video
// uploads fall back to a document send for formats Telegram rejects as
// video.
func (b *Bot) SendMediaFile(_ context.Context, chatID int64, replyTo int, media pipeline.Media) (string, error) {
	sent, err := b.sendMediaOnce(chatID, replyTo, media, tgbotapi.FilePath(media.Path))
	if err != nil {
		b.logger.Warn().Err(err).Int64(logFieldChatID, chatID).Msg("media send failed, retrying without reply")
		time.Sleep(sendRetryDelay)

		sent, err = b.sendMediaOnce(chatID, 0, media, tgbotapi.FilePath(media.Path))
	}

	if err != nil && media.Kind == pipeline.KindVideo {
		b.logger.Warn().Err(err).Int64(logFieldChatID, chatID).Msg("video send failed, falling back to document")

		sent, err = b.sendDocument(chatID, tgbotapi.FilePath(media.Path))
	}

	if err != nil {
		observability.SendsTotal.WithLabelValues(string(media.Kind), sendStatusFailed).Inc()

		return "", fmt.Errorf("send media to chat %d: %w", chatID, err)
	}

	observability.SendsTotal.WithLabelValues(string(media.Kind), sendStatusOK).Inc()

	fileID := fileIDFromMessage(&sent)
	if fileID == "" {
		return "", fmt.Errorf("sent message to chat %d carries no file_id", chatID)
	}

	return fileID, nil
}

func (b *Bot) sendMediaOnce(chatID int64, replyTo int, media pipeline.Media, file tgbotapi.RequestFileData) (tgbotapi.Message, error) {
	switch media.Kind {
	case pipeline.KindAudio:
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Title = media.Title
		audio.Performer = media.Performer
		audio.ReplyToMessageID = replyTo

		return b.api.Send(audio)
	case pipeline.KindPhoto:
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.ReplyToMessageID = replyTo

		return b.api.Send(photo)
	default:
		video := tgbotapi.NewVideo(chatID, file)
		video.SupportsStreaming = true
		video.ReplyToMessageID = replyTo

		return b.api.Send(video)
	}
}

func (b *Bot) sendDocument(chatID int64, file tgbotapi.RequestFileData) (tgbotapi.Message, error) {
	doc := tgbotapi.NewDocument(chatID, file)

	return b.api.Send(doc)
}

// fileIDFromMessage pulls the file_id out of whichever media slot the sent
// message used. Photos come as a size ladder; the last entry is largest.
func fileIDFromMessage(msg *tgbotapi.Message) string {
	switch {
	case msg.Video != nil:
		return msg.Video.FileID
	case msg.Audio != nil:
		return msg.Audio.FileID
	case len(msg.Photo) > 0:
		return msg.Photo[len(msg.Photo)-1].FileID
	case msg.Document != nil:
		return msg.Document.FileID
	default:
		return ""
	}
}

// SendText sends a plain text reply, retrying once without the reply
// reference.
func (b *Bot) SendText(_ context.Context, chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo

	if _, err := b.api.Send(msg); err == nil {
		return nil
	}

	time.Sleep(sendRetryDelay)

	msg.ReplyToMessageID = 0
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send text to chat %d: %w", chatID, err)
	}

	return nil
}

// NotifyOperator forwards diagnostics to the operator chat, or to the
// admins when no operator chat is configured.
func (b *Bot) NotifyOperator(_ context.Context, text string) {
	targets := b.cfg.AdminIDs
	if b.cfg.OperatorChatID != 0 {
		targets = []int64{b.cfg.OperatorChatID}
	}

	for _, chatID := range targets {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error().Err(err).Int64(logFieldChatID, chatID).Msg("failed to notify operator")
		}
	}
}

// replayCached resends a previously uploaded file by its file_id. No
// download or upload happens; Telegram serves the stored media. The
// replay is logged with the cached-media marker service.
func (b *Bot) replayCached(ctx context.Context, msg *tgbotapi.Message, link string, service linkresolver.Service, fileID string) {
	media := pipeline.Media{Kind: cachedKind(service)}

	sent, err := b.sendMediaOnce(msg.Chat.ID, msg.MessageID, media, tgbotapi.FileID(fileID))
	if err != nil {
		sent, err = b.sendDocument(msg.Chat.ID, tgbotapi.FileID(fileID))
	}

	if err != nil {
		observability.SendsTotal.WithLabelValues(string(media.Kind), sendStatusFailed).Inc()
		b.logger.Error().Err(err).Str("file_id", fileID).Msg("cached replay failed")
		b.replyText(msg.Chat.ID, msg.MessageID, "I couldn't resend the cached media. Try again later.")

		return
	}

	observability.SendsTotal.WithLabelValues(string(media.Kind), sendStatusOK).Inc()

	entry := storage.RequestLogEntry{
		UserID:   msg.From.ID,
		Username: msg.From.UserName,
		ChatID:   msg.Chat.ID,
		Link:     link,
		Service:  string(linkresolver.ServiceCached),
		FileID:   fileIDFromMessage(&sent),
	}

	if err := b.database.InsertRequest(ctx, entry); err != nil {
		b.logger.Error().Err(err).Msg("failed to record cached replay")
	}
}

// cachedKind picks the send method for a cached file_id from the detected
// service, since the original media kind is not stored.
func cachedKind(service linkresolver.Service) pipeline.MediaKind {
	switch {
	case linkresolver.IsAudioService(service):
		return pipeline.KindAudio
	case service == linkresolver.ServicePinterest:
		return pipeline.KindPhoto
	default:
		return pipeline.KindVideo
	}
}

func (b *Bot) replyText(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64(logFieldChatID, chatID).Msg("failed to send reply")
	}
}
