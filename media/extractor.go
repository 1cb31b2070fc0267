package media

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"videosumapi/config"
)

// VideoInfo is read-only metadata about a source video, computed fresh per
// probe and never cached.
type VideoInfo struct {
	Duration float64 `json:"duration"`
	FPS      float64 `json:"fps"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	SizeMB   float64 `json:"size_mb"`
	HasAudio bool    `json:"has_audio"`
}

// NoAudioError reports a video whose container carries no audio stream.
type NoAudioError struct {
	Path string
}

func (e *NoAudioError) Error() string {
	return fmt.Sprintf("video has no audio stream: %s", e.Path)
}

// Extractor drives ffmpeg/ffprobe to read video metadata and isolate audio.
type Extractor struct {
	ffBin     string
	probeBin  string
	extraArgs []string
	tempDir   string
}

func NewExtractor(cfg *config.Config) (*Extractor, error) {
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found or not in PATH: %s", cfg.FFBin)
	}
	if _, err := exec.LookPath(cfg.FFProbeBin); err != nil {
		return nil, fmt.Errorf("ffprobe binary not found or not in PATH: %s", cfg.FFProbeBin)
	}

	extraArgs, err := splitExtraArgs(cfg.FFExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid FF_EXTRA_ARGS: %w", err)
	}

	// All temporary audio artifacts live under one per-process directory.
	tempDir, err := os.MkdirTemp("", "videosum_")
	if err != nil {
		return nil, fmt.Errorf("could not create temp directory: %w", err)
	}
	log.Printf("Using temporary directory: %s", tempDir)
	cfg.TempDir = tempDir

	return &Extractor{
		ffBin:     cfg.FFBin,
		probeBin:  cfg.FFProbeBin,
		extraArgs: extraArgs,
		tempDir:   tempDir,
	}, nil
}

// splitExtraArgs splits operator-supplied ffmpeg arguments without invoking a shell.
func splitExtraArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return shlex.Split(raw)
}

// GetVideoInfo probes the container read-only and returns its metadata.
// The source file is never mutated.
func (e *Extractor) GetVideoInfo(ctx context.Context, videoPath string) (VideoInfo, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_entries", "stream=codec_type,width,height,r_frame_rate",
		"-of", "json",
		videoPath,
	}

	out, err := runCommand(ctx, e.probeBin, args...)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w", videoPath, err)
	}

	info, err := parseProbeOutput(out)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("parse ffprobe output for %s: %w", videoPath, err)
	}

	stat, err := os.Stat(videoPath)
	if err != nil {
		return VideoInfo{}, err
	}
	info.SizeMB = float64(stat.Size()) / (1 << 20)
	info.Format = strings.ToLower(strings.TrimPrefix(filepath.Ext(videoPath), "."))

	return info, nil
}

// ExtractAudio isolates the audio stream into a 16kHz mono WAV in the temp
// directory. The task id is embedded in the artifact name so concurrent
// submissions of same-named videos cannot collide.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath, taskID string) (string, error) {
	info, err := e.GetVideoInfo(ctx, videoPath)
	if err != nil {
		return "", err
	}
	if !info.HasAudio {
		return "", &NoAudioError{Path: videoPath}
	}

	audioPath := e.audioPathFor(videoPath, taskID)
	log.Printf("Extracting audio from %s to %s", videoPath, audioPath)

	// 16kHz mono PCM is what both the Whisper API and whisper.cpp expect.
	args := []string{
		"-i", videoPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
	}
	args = append(args, e.extraArgs...)
	args = append(args, "-y", audioPath)

	if _, err := runCommand(ctx, e.ffBin, args...); err != nil {
		os.Remove(audioPath)
		return "", fmt.Errorf("ffmpeg extract audio from %s: %w", videoPath, err)
	}

	return audioPath, nil
}

func (e *Extractor) audioPathFor(videoPath, taskID string) string {
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(e.tempDir, fmt.Sprintf("%s_%s_audio.wav", base, taskID))
}

// runCommand executes an external binary with stderr captured for diagnostics.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", fmt.Errorf("command '%s' failed: %w\nstderr: %s", name, err, stderrStr)
		}
		return "", fmt.Errorf("command '%s' failed: %w", name, err)
	}

	return stdout.String(), nil
}
