package provider

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"videosumapi/config"
)

// Whisper transcribes locally with whisper.cpp. The binary and model are
// verified once at construction; a missing model is a startup-time hard
// failure, never a per-request one.
type Whisper struct {
	bin      string
	model    string
	language string
}

func NewWhisper(cfg *config.Config) (*Whisper, error) {
	if _, err := exec.LookPath(cfg.WhisperBin); err != nil {
		return nil, fmt.Errorf("whisper binary not found or not in PATH: %s", cfg.WhisperBin)
	}
	if _, err := os.Stat(cfg.WhisperModel); err != nil {
		return nil, fmt.Errorf("whisper model not found: %s", cfg.WhisperModel)
	}
	log.Printf("Using whisper model: %s", cfg.WhisperModel)

	return &Whisper{
		bin:      cfg.WhisperBin,
		model:    cfg.WhisperModel,
		language: cfg.WhisperLanguage,
	}, nil
}

// Transcribe runs whisper.cpp over the audio artifact and reads back the
// plain-text output it writes next to the input.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	outputPrefix := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))

	args := []string{
		"-m", w.model,
		"-f", audioPath,
		"-otxt",
		"-np",
		"--output-file", outputPrefix,
	}
	if w.language != "" {
		args = append(args, "-l", w.language)
	}

	cmd := exec.CommandContext(ctx, w.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", &ProviderError{Provider: config.MethodWhisper, Err: fmt.Errorf("%w\nstderr: %s", err, stderrStr)}
		}
		return "", &ProviderError{Provider: config.MethodWhisper, Err: err}
	}

	txtPath := outputPrefix + ".txt"
	defer os.Remove(txtPath)

	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", &ProviderError{Provider: config.MethodWhisper, Err: fmt.Errorf("read transcript: %w", err)}
	}

	return strings.TrimSpace(string(data)), nil
}
