package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/pipeline"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
)

const (
	inlineResultLimit = 10

	inlineStatusAnswered = "answered"
	inlineStatusEmpty    = "empty"
	inlineStatusFailed   = "failed"
)

// handleInlineQuery serves previously delivered media by file_id. Only
// cached entries are offered; inline mode never triggers downloads. An
// empty query lists the most recent cache entries.
func (b *Bot) handleInlineQuery(ctx context.Context, query *tgbotapi.InlineQuery) {
	cached, err := b.database.SearchCachedMedia(ctx, query.Query, inlineResultLimit)
	if err != nil {
		observability.InlineQueriesTotal.WithLabelValues(inlineStatusFailed).Inc()
		b.logger.Error().Err(err).Msg("inline cache search failed")

		return
	}

	results := make([]interface{}, 0, len(cached))

	for i, entry := range cached {
		results = append(results, inlineResult(fmt.Sprintf("%s-%d", query.ID, i), entry.Link, entry.FileID))
	}

	status := inlineStatusAnswered
	if len(results) == 0 {
		status = inlineStatusEmpty
	}

	answer := tgbotapi.InlineConfig{
		InlineQueryID: query.ID,
		Results:       results,
		IsPersonal:    true,
	}

	if _, err := b.api.Request(answer); err != nil {
		observability.InlineQueriesTotal.WithLabelValues(inlineStatusFailed).Inc()
		b.logger.Error().Err(err).Msg("failed to answer inline query")

		return
	}

	observability.InlineQueriesTotal.WithLabelValues(status).Inc()
}

func inlineResult(id, link, fileID string) interface{} {
	switch cachedKind(linkresolver.DetectService(link)) {
	case pipeline.KindAudio:
		return tgbotapi.NewInlineQueryResultCachedAudio(id, fileID)
	case pipeline.KindPhoto:
		return tgbotapi.NewInlineQueryResultCachedPhoto(id, fileID)
	default:
		return tgbotapi.NewInlineQueryResultCachedVideo(id, fileID, link)
	}
}
