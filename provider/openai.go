package provider

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videosumapi/config"
	"videosumapi/media"
)

type openAIAgent struct {
	client    *openai.Client
	model     string
	chunkSize int
}

func newOpenAIAgent(cfg *config.Config) *openAIAgent {
	return &openAIAgent{
		client:    openai.NewClient(cfg.OpenAIAPIKey),
		model:     cfg.OpenAIModel,
		chunkSize: cfg.SummaryChunkSize,
	}
}

func (a *openAIAgent) Summarize(ctx context.Context, transcript string, info media.VideoInfo) (string, error) {
	summary, err := summarizeChunked(ctx, transcript, info, a.chunkSize, a.generate)
	if err != nil {
		return "", &ProviderError{Provider: config.ProviderOpenAI, Err: err}
	}
	return summary, nil
}

func (a *openAIAgent) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   1000,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Transcribe sends the audio artifact to the hosted Whisper API.
func (a *openAIAgent) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", &ProviderError{Provider: config.ProviderOpenAI, Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}
