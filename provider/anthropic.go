package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"videosumapi/config"
	"videosumapi/media"
)

type anthropicAgent struct {
	client    anthropic.Client
	model     string
	chunkSize int
	local     *Whisper
}

func newAnthropicAgent(cfg *config.Config, local *Whisper) *anthropicAgent {
	return &anthropicAgent{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:     cfg.AnthropicModel,
		chunkSize: cfg.SummaryChunkSize,
		local:     local,
	}
}

func (a *anthropicAgent) Summarize(ctx context.Context, transcript string, info media.VideoInfo) (string, error) {
	summary, err := summarizeChunked(ctx, transcript, info, a.chunkSize, a.generate)
	if err != nil {
		return "", &ProviderError{Provider: config.ProviderAnthropic, Err: err}
	}
	return summary, nil
}

func (a *anthropicAgent) generate(ctx context.Context, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	if len(msg.Content) == 0 {
		return "", errors.New("empty message response")
	}
	return strings.TrimSpace(msg.Content[0].Text), nil
}

// Transcribe delegates to the local whisper transcriber: the messages API has
// no audio transcription endpoint.
func (a *anthropicAgent) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if a.local == nil {
		return "", &ProviderError{Provider: config.ProviderAnthropic, Err: errors.New("no local transcriber configured")}
	}
	return a.local.Transcribe(ctx, audioPath)
}
