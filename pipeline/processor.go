// Package pipeline sequences the stages that turn one video into a persisted
// summary: validate, extract audio, transcribe, summarize, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"videosumapi/config"
	"videosumapi/media"
	"videosumapi/provider"
)

// MediaExtractor is the media stage as the pipeline consumes it.
type MediaExtractor interface {
	GetVideoInfo(ctx context.Context, videoPath string) (media.VideoInfo, error)
	ExtractAudio(ctx context.Context, videoPath, taskID string) (string, error)
}

// Transcriber converts an audio artifact into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Processor runs the full pipeline for single videos and folders.
type Processor struct {
	cfg       *config.Config
	extractor MediaExtractor
	agent     provider.Agent
	local     Transcriber
}

// New wires the pipeline. local may be nil when the configured transcription
// method is not whisper.
func New(cfg *config.Config, extractor MediaExtractor, agent provider.Agent, local Transcriber) *Processor {
	return &Processor{
		cfg:       cfg,
		extractor: extractor,
		agent:     agent,
		local:     local,
	}
}

// ProcessVideo runs every stage for one video. The temporary audio artifact
// is removed on every exit path once extraction has succeeded.
func (p *Processor) ProcessVideo(ctx context.Context, videoPath, taskID string) (*ProcessingResult, error) {
	log.Printf("Processing video: %s", videoPath)

	if err := p.checkResources(); err != nil {
		return nil, fmt.Errorf("insufficient system resources: %w", err)
	}

	stat, err := os.Stat(videoPath)
	if err != nil || stat.IsDir() {
		return nil, &NotFoundError{Path: videoPath}
	}

	info, err := p.extractor.GetVideoInfo(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	limitMB := p.cfg.MaxVideoSizeMB()
	if info.SizeMB > limitMB {
		return nil, &SizeLimitError{Path: videoPath, SizeMB: info.SizeMB, LimitMB: limitMB}
	}

	if !formatAllowed(info.Format, p.cfg.SupportedFormats) {
		return nil, &UnsupportedFormatError{Path: videoPath, Format: info.Format}
	}

	audioPath, err := p.extractor.ExtractAudio(ctx, videoPath, taskID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(audioPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("Could not remove temp audio %s: %v", audioPath, rmErr)
		}
	}()

	transcript, err := p.transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	summary, err := p.agent.Summarize(ctx, transcript, info)
	if err != nil {
		return nil, err
	}

	result := &ProcessingResult{
		VideoPath:           videoPath,
		VideoInfo:           info,
		Transcript:          transcript,
		Summary:             summary,
		ProcessedAt:         time.Now(),
		AIProvider:          p.cfg.AIProvider,
		TranscriptionMethod: p.cfg.TranscriptionMethod,
	}

	outputFile, err := p.saveResult(result)
	if err != nil {
		return nil, err
	}
	result.OutputFile = outputFile

	log.Printf("Video processed successfully: %s -> %s", videoPath, outputFile)
	return result, nil
}

// ProcessFolder runs the single-video path over every matching file in the
// immediate folder, best-effort: one failure is recorded and processing moves
// on to the next file.
func (p *Processor) ProcessFolder(ctx context.Context, folderPath, taskID string) ([]ProcessingResult, []string, error) {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, &NotFoundError{Path: folderPath}
		}
		return nil, nil, fmt.Errorf("read folder %s: %w", folderPath, err)
	}

	var videoFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if formatAllowed(ext, p.cfg.SupportedFormats) {
			videoFiles = append(videoFiles, filepath.Join(folderPath, entry.Name()))
		}
	}

	if len(videoFiles) == 0 {
		log.Printf("No video files to process in %s", folderPath)
		return nil, nil, nil
	}
	log.Printf("Found %d videos to process in %s", len(videoFiles), folderPath)

	var results []ProcessingResult
	var errs []string
	for i, videoPath := range videoFiles {
		result, err := p.ProcessVideo(ctx, videoPath, fmt.Sprintf("%s_%d", taskID, i))
		if err != nil {
			log.Printf("Error processing %s: %v", videoPath, err)
			errs = append(errs, fmt.Sprintf("%s: %v", videoPath, err))
			continue
		}
		results = append(results, *result)
	}

	log.Printf("Folder processed: %d succeeded, %d failed", len(results), len(errs))
	return results, errs, nil
}

func (p *Processor) transcribe(ctx context.Context, audioPath string) (string, error) {
	if p.cfg.TranscriptionMethod == config.MethodWhisper {
		if p.local == nil {
			return "", errors.New("local transcriber not configured")
		}
		return p.local.Transcribe(ctx, audioPath)
	}
	return p.agent.Transcribe(ctx, audioPath)
}

func (p *Processor) saveResult(r *ProcessingResult) (string, error) {
	base := strings.TrimSuffix(filepath.Base(r.VideoPath), filepath.Ext(r.VideoPath))
	name := fmt.Sprintf("%s_resumen_%s.txt", base, r.ProcessedAt.Format("20060102_150405"))
	outputPath := filepath.Join(p.cfg.OutputFolder, name)

	if err := os.WriteFile(outputPath, []byte(formatResultContent(r)), 0644); err != nil {
		return "", fmt.Errorf("save result for %s: %w", r.VideoPath, err)
	}
	return outputPath, nil
}

func formatAllowed(format string, allowed []string) bool {
	for _, f := range allowed {
		if strings.EqualFold(strings.TrimSpace(f), format) {
			return true
		}
	}
	return false
}
