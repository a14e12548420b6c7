package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-media-bot/internal/downloader"
	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-media-bot/internal/storage"
)

const (
	transcribeStatusOK     = "ok"
	transcribeStatusFailed = "failed"
)

var voiceFetchClient = &http.Client{Timeout: 60 * time.Second}

// handleVoice fetches the voice note from Telegram, transcribes it, and
// replies with the text.
func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	logger := b.logger.With().
		Int64(logFieldUserID, msg.From.ID).
		Str(logFieldUsername, msg.From.UserName).
		Logger()

	logger.Info().Int("duration", msg.Voice.Duration).Msg("voice transcription request")

	audioPath, err := b.fetchVoiceFile(ctx, msg.Voice.FileID)
	if err != nil {
		observability.TranscriptionsTotal.WithLabelValues(transcribeStatusFailed).Inc()
		logger.Error().Err(err).Msg("failed to fetch voice file")
		b.replyText(msg.Chat.ID, msg.MessageID, "I couldn't fetch that voice message.")

		return
	}
	defer downloader.Cleanup(audioPath)

	text, err := b.llmClient.Transcribe(ctx, audioPath)
	if err != nil {
		observability.TranscriptionsTotal.WithLabelValues(transcribeStatusFailed).Inc()
		logger.Error().Err(err).Msg("transcription failed")
		b.replyText(msg.Chat.ID, msg.MessageID, "Transcription is unavailable right now.")

		return
	}

	observability.TranscriptionsTotal.WithLabelValues(transcribeStatusOK).Inc()

	if text == "" {
		text = "(no speech detected)"
	}

	b.replyText(msg.Chat.ID, msg.MessageID, text)

	entry := storage.RequestLogEntry{
		UserID:   msg.From.ID,
		Username: msg.From.UserName,
		ChatID:   msg.Chat.ID,
		Service:  string(linkresolver.ServiceVoice),
		Link:     "voice:" + msg.Voice.FileID,
	}

	if err := b.database.InsertRequest(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("failed to record voice request")
	}
}

// fetchVoiceFile downloads a Telegram voice file into the scratch
// directory. Voice notes arrive as OGG/Opus, which Whisper accepts
// directly.
func (b *Bot) fetchVoiceFile(ctx context.Context, fileID string) (string, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve voice file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("build voice fetch request: %w", err)
	}

	resp, err := voiceFetchClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch voice file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch voice file: status %s", resp.Status)
	}

	dest := filepath.Join(b.cfg.ScratchDir, "voice_"+uuid.New().String()+".oga")

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create voice scratch file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)

	closeErr := out.Close()

	if err != nil || closeErr != nil {
		downloader.Cleanup(dest)

		return "", fmt.Errorf("write voice scratch file")
	}

	return dest, nil
}
