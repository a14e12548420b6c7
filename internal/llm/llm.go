// Package llm provides voice transcription and text summarization through
// the OpenAI API.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-media-bot/internal/platform/config"
)

type Client interface {
	// Transcribe converts a voice recording file into text.
	Transcribe(ctx context.Context, audioPath string) (string, error)

	// Summarize condenses text into a short summary.
	Summarize(ctx context.Context, text string) (string, error)
}

// New returns the OpenAI-backed client, or a mock when no API key is
// configured so the bot can run without LLM features.
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == "mock" {
		return &mockClient{}
	}

	return NewOpenAI(cfg, logger)
}

type mockClient struct{}

func (c *mockClient) Transcribe(_ context.Context, audioPath string) (string, error) {
	return "This is a mock transcription of " + audioPath + ".", nil
}

func (c *mockClient) Summarize(_ context.Context, _ string) (string, error) {
	return "This is a mock summary.", nil
}
