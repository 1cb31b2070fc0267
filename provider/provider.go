// Package provider holds the pluggable AI backends. Every backend satisfies
// the same two-operation capability contract; callers must not depend on
// anything beyond it.
package provider

import (
	"context"
	"fmt"

	"videosumapi/config"
	"videosumapi/media"
)

// Agent is the capability contract shared by all AI backends. Both calls are
// network or model-inference calls and may block for tens of seconds.
type Agent interface {
	Summarize(ctx context.Context, transcript string, info media.VideoInfo) (string, error)
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// ProviderError wraps any backend failure with the provider that caused it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// New builds the Agent selected by the configuration. The local whisper
// transcriber may be nil when the configuration does not require it; agents
// without a server-side transcription endpoint delegate to it.
func New(cfg *config.Config, local *Whisper) (Agent, error) {
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return newOpenAIAgent(cfg), nil
	case config.ProviderAnthropic:
		return newAnthropicAgent(cfg, local), nil
	case config.ProviderGoogle:
		return newGoogleAgent(cfg, local)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.AIProvider)
	}
}
