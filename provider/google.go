package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"videosumapi/config"
	"videosumapi/media"
)

type googleAgent struct {
	client    *genai.Client
	model     string
	chunkSize int
	local     *Whisper
}

func newGoogleAgent(cfg *config.Config, local *Whisper) (*googleAgent, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &googleAgent{
		client:    client,
		model:     cfg.GoogleModel,
		chunkSize: cfg.SummaryChunkSize,
		local:     local,
	}, nil
}

func (g *googleAgent) Summarize(ctx context.Context, transcript string, info media.VideoInfo) (string, error) {
	summary, err := summarizeChunked(ctx, transcript, info, g.chunkSize, g.generate)
	if err != nil {
		return "", &ProviderError{Provider: config.ProviderGoogle, Err: err}
	}
	return summary, nil
}

func (g *googleAgent) generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(text.String()), nil
}

// Transcribe delegates to the local whisper transcriber: Gemini has no audio
// transcription endpoint.
func (g *googleAgent) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if g.local == nil {
		return "", &ProviderError{Provider: config.ProviderGoogle, Err: errors.New("no local transcriber configured")}
	}
	return g.local.Transcribe(ctx, audioPath)
}
