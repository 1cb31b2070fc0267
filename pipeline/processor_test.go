package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videosumapi/config"
	"videosumapi/media"
)

// stubExtractor fakes the media stage; ExtractAudio writes a real temp file
// so cleanup can be asserted.
type stubExtractor struct {
	tempDir       string
	info          media.VideoInfo
	infoErr       error
	extractErr    map[string]error
	extractCalled bool
}

func (s *stubExtractor) GetVideoInfo(ctx context.Context, videoPath string) (media.VideoInfo, error) {
	if s.infoErr != nil {
		return media.VideoInfo{}, s.infoErr
	}
	return s.info, nil
}

func (s *stubExtractor) ExtractAudio(ctx context.Context, videoPath, taskID string) (string, error) {
	s.extractCalled = true
	if err, ok := s.extractErr[filepath.Base(videoPath)]; ok {
		return "", err
	}
	base := filepath.Base(videoPath)
	audioPath := filepath.Join(s.tempDir, fmt.Sprintf("%s_%s_audio.wav", base, taskID))
	if err := os.WriteFile(audioPath, []byte("RIFF"), 0644); err != nil {
		return "", err
	}
	return audioPath, nil
}

type stubAgent struct {
	summary      string
	summarizeErr error
}

func (s *stubAgent) Summarize(ctx context.Context, transcript string, info media.VideoInfo) (string, error) {
	if s.summarizeErr != nil {
		return "", s.summarizeErr
	}
	return s.summary, nil
}

func (s *stubAgent) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return "", errors.New("not used in tests")
}

type stubTranscriber struct {
	transcript string
	err        error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return s.transcript, s.err
}

func testSetup(t *testing.T) (*config.Config, *stubExtractor, *stubAgent, *stubTranscriber) {
	t.Helper()
	cfg := &config.Config{
		OutputFolder:        t.TempDir(),
		AIProvider:          config.ProviderOpenAI,
		TranscriptionMethod: config.MethodWhisper,
		SupportedFormats:    []string{"mp4", "avi", "mov", "mkv", "webm"},
		MaxVideoSize:        100 * 1024 * 1024,
	}
	extractor := &stubExtractor{
		tempDir: t.TempDir(),
		info: media.VideoInfo{
			Duration: 30,
			FPS:      30,
			Width:    1280,
			Height:   720,
			Format:   "mp4",
			SizeMB:   5,
			HasAudio: true,
		},
		extractErr: map[string]error{},
	}
	agent := &stubAgent{summary: "OK"}
	transcriber := &stubTranscriber{transcript: "hola mundo desde el video"}
	return cfg, extractor, agent, transcriber
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake video bytes"), 0644))
	return path
}

func tempAudioFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*_audio.wav"))
	require.NoError(t, err)
	return matches
}

func TestProcessVideo_Success(t *testing.T) {
	cfg, extractor, agent, transcriber := testSetup(t)
	p := New(cfg, extractor, agent, transcriber)

	videoPath := writeVideo(t, t.TempDir(), "demo.mp4")
	result, err := p.ProcessVideo(context.Background(), videoPath, "video_test_1")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, videoPath, result.VideoPath)
	assert.Equal(t, "hola mundo desde el video", result.Transcript)
	assert.Equal(t, "OK", result.Summary)
	assert.Equal(t, config.ProviderOpenAI, result.AIProvider)
	assert.Equal(t, config.MethodWhisper, result.TranscriptionMethod)
	assert.False(t, result.ProcessedAt.IsZero())

	// Output file follows the {base}_resumen_{timestamp}.txt pattern.
	matches, err := filepath.Glob(filepath.Join(cfg.OutputFolder, "demo_resumen_*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, matches[0], result.OutputFile)

	// The persisted file parses back to the exact transcript and summary.
	content, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	transcript, summary, err := parseResultContent(string(content))
	require.NoError(t, err)
	assert.Equal(t, result.Transcript, transcript)
	assert.Equal(t, result.Summary, summary)

	// Temp audio artifact is gone.
	assert.Empty(t, tempAudioFiles(t, extractor.tempDir))
}

func TestProcessVideo_NotFound(t *testing.T) {
	cfg, extractor, agent, transcriber := testSetup(t)
	p := New(cfg, extractor, agent, transcriber)

	_, err := p.ProcessVideo(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "t1")
	require.Error(t, err)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), "not found")
	assert.False(t, extractor.extractCalled)
}

func TestProcessVideo_SizeLimit(t *testing.T) {
	cfg, extractor, agent, transcriber := testSetup(t)
	extractor.info.SizeMB = 150 // limit is 100MB
	p := New(cfg, extractor, agent, transcriber)

	videoPath := writeVideo(t, t.TempDir(), "big.mp4")
	_, err := p.ProcessVideo(context.Background(), videoPath, "t1")
	require.Error(t, err)

	var sizeErr *SizeLimitError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 150.0, sizeErr.SizeMB)

	// Size policy fails before audio extraction is attempted.
	assert.False(t, extractor.extractCalled)
}

func TestProcessVideo_UnsupportedFormat(t *testing.T) {
	cfg, extractor, agent, transcriber := testSetup(t)
	extractor.info.Format = "wmv"
	p := New(cfg, extractor, agent, transcriber)

	videoPath := writeVideo(t, t.TempDir(), "old.wmv")
	_, err := p.ProcessVideo(context.Background(), videoPath, "t1")
	require.Error(t, err)

	var formatErr *UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "wmv", formatErr.Format)
	assert.False(t, extractor.extractCalled)
}

func TestProcessVideo_CleanupOnFailure(t *testing.T) {
	cfg, extractor, agent, transcriber := testSetup(t)
	agent.summarizeErr = errors.New("model overloaded")
	p := New(cfg, extractor, agent, transcriber)

	videoPath := writeVideo(t, t.TempDir(), "demo.mp4")
	_, err := p.ProcessVideo(context.Background(), videoPath, "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")

	// Cleanup ran even though summarization failed, and nothing was persisted.
	assert.True(t, extractor.extractCalled)
	assert.Empty(t, tempAudioFiles(t, extractor.tempDir))
	matches, _ := filepath.Glob(filepath.Join(cfg.OutputFolder, "*.txt"))
	assert.Empty(t, matches)
}

func TestProcessFolder_PartialFailure(t *testing.T) {
	cfg, extractor, agent, transcriber := testSetup(t)
	p := New(cfg, extractor, agent, transcriber)

	folder := t.TempDir()
	writeVideo(t, folder, "a.mp4")
	writeVideo(t, folder, "b.mov")
	silent := writeVideo(t, folder, "silent.mp4")
	writeVideo(t, folder, "notes.txt") // filtered out by extension

	extractor.extractErr["silent.mp4"] = &media.NoAudioError{Path: silent}

	results, errs, err := p.ProcessFolder(context.Background(), folder, "folder_t1")
	require.NoError(t, err)

	assert.Len(t, results, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "silent.mp4")
	assert.Contains(t, errs[0], "no audio stream")

	// No temp artifacts survive the folder run.
	assert.Empty(t, tempAudioFiles(t, extractor.tempDir))
}

func TestProcessFolder_NotFound(t *testing.T) {
	cfg, extractor, agent, transcriber := testSetup(t)
	p := New(cfg, extractor, agent, transcriber)

	_, _, err := p.ProcessFolder(context.Background(), filepath.Join(t.TempDir(), "nope"), "t1")
	require.Error(t, err)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestProcessFolder_Empty(t *testing.T) {
	cfg, extractor, agent, transcriber := testSetup(t)
	p := New(cfg, extractor, agent, transcriber)

	results, errs, err := p.ProcessFolder(context.Background(), t.TempDir(), "t1")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, errs)
}
