// videosumapi/task/manager_test.go
package task

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videosumapi/config"
	"videosumapi/media"
	"videosumapi/pipeline"
)

// mockRunner is a mock implementation of the PipelineRunner interface.
type mockRunner struct {
	videoFunc  func(ctx context.Context, videoPath, taskID string) (*pipeline.ProcessingResult, error)
	folderFunc func(ctx context.Context, folderPath, taskID string) ([]pipeline.ProcessingResult, []string, error)
}

func (m *mockRunner) ProcessVideo(ctx context.Context, videoPath, taskID string) (*pipeline.ProcessingResult, error) {
	if m.videoFunc != nil {
		return m.videoFunc(ctx, videoPath, taskID)
	}
	return &pipeline.ProcessingResult{
		VideoPath:  videoPath,
		VideoInfo:  media.VideoInfo{Duration: 30, Format: "mp4", SizeMB: 5},
		Transcript: "transcript",
		Summary:    "OK",
	}, nil
}

func (m *mockRunner) ProcessFolder(ctx context.Context, folderPath, taskID string) ([]pipeline.ProcessingResult, []string, error) {
	if m.folderFunc != nil {
		return m.folderFunc(ctx, folderPath, taskID)
	}
	return nil, nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxConcurrency: 2,
		QueueSize:      100,
		TempMaxAge:     time.Hour,
	}
}

func waitForTerminal(t *testing.T, mgr *Manager, taskID string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tk, found := mgr.Get(taskID)
		require.True(t, found)
		snap := tk.Snapshot()
		if snap.Status != StatusProcessing {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return Snapshot{}
}

func TestManager_Submit(t *testing.T) {
	mgr, err := NewManager(testConfig(), &mockRunner{})
	require.NoError(t, err)

	tk, err := mgr.Submit(KindVideo, "demo.mp4", "")
	require.NoError(t, err)
	assert.NotEmpty(t, tk.ID)
	assert.Contains(t, tk.ID, "video_")
	assert.Equal(t, StatusProcessing, tk.Snapshot().Status)

	retrieved, found := mgr.Get(tk.ID)
	assert.True(t, found)
	assert.Equal(t, tk.ID, retrieved.ID)

	_, found = mgr.Get("nonexistent")
	assert.False(t, found)
}

func TestManager_IDUniqueness(t *testing.T) {
	mgr, err := NewManager(testConfig(), &mockRunner{})
	require.NoError(t, err)

	// Rapid submission, no waiting: ids must never collide even within the
	// same millisecond.
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tk, err := mgr.Submit(KindVideo, "demo.mp4", "")
		require.NoError(t, err)
		assert.False(t, seen[tk.ID], "duplicate task id %s", tk.ID)
		seen[tk.ID] = true
	}
}

func TestManager_ProcessVideoTask(t *testing.T) {
	t.Run("successful processing", func(t *testing.T) {
		mgr, err := NewManager(testConfig(), &mockRunner{})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		mgr.Start(ctx)

		tk, _ := mgr.Submit(KindVideo, "demo.mp4", "")
		snap := waitForTerminal(t, mgr, tk.ID)

		assert.Equal(t, StatusCompleted, snap.Status)
		require.Len(t, snap.Results, 1)
		assert.Equal(t, "OK", snap.Results[0].Summary)
		assert.Empty(t, snap.Errors)
		require.NotNil(t, snap.CompletedAt)
		assert.False(t, snap.CompletedAt.IsZero())
	})

	t.Run("failed processing records stringified cause", func(t *testing.T) {
		runner := &mockRunner{
			videoFunc: func(ctx context.Context, videoPath, taskID string) (*pipeline.ProcessingResult, error) {
				return nil, &pipeline.NotFoundError{Path: videoPath}
			},
		}
		mgr, err := NewManager(testConfig(), runner)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		mgr.Start(ctx)

		tk, _ := mgr.Submit(KindVideo, "missing.mp4", "")
		snap := waitForTerminal(t, mgr, tk.ID)

		assert.Equal(t, StatusError, snap.Status)
		assert.Empty(t, snap.Results)
		require.Len(t, snap.Errors, 1)
		assert.Contains(t, snap.Errors[0], "not found")
		require.NotNil(t, snap.CompletedAt)
	})

	t.Run("panic becomes error state", func(t *testing.T) {
		runner := &mockRunner{
			videoFunc: func(ctx context.Context, videoPath, taskID string) (*pipeline.ProcessingResult, error) {
				panic("boom")
			},
		}
		mgr, err := NewManager(testConfig(), runner)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		mgr.Start(ctx)

		tk, _ := mgr.Submit(KindVideo, "demo.mp4", "")
		snap := waitForTerminal(t, mgr, tk.ID)

		assert.Equal(t, StatusError, snap.Status)
		require.Len(t, snap.Errors, 1)
		assert.Contains(t, snap.Errors[0], "boom")
	})
}

func TestManager_ProcessFolderTask(t *testing.T) {
	runner := &mockRunner{
		folderFunc: func(ctx context.Context, folderPath, taskID string) ([]pipeline.ProcessingResult, []string, error) {
			return []pipeline.ProcessingResult{
					{VideoPath: "a.mp4", Summary: "OK"},
					{VideoPath: "b.mp4", Summary: "OK"},
				},
				[]string{"c.mp4: video has no audio stream: c.mp4"},
				nil
		},
	}
	mgr, err := NewManager(testConfig(), runner)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)

	tk, _ := mgr.Submit(KindFolder, "/videos", "")
	snap := waitForTerminal(t, mgr, tk.ID)

	// Folder mode is best-effort: per-video failures are recorded, the task
	// still completes.
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Len(t, snap.Results, 2)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "no audio stream")
}

func TestManager_TerminalStateIsImmutable(t *testing.T) {
	mgr, err := NewManager(testConfig(), &mockRunner{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)

	tk, _ := mgr.Submit(KindVideo, "demo.mp4", "")
	first := waitForTerminal(t, mgr, tk.ID)

	// Repeated reads of a terminal task return identical state.
	for i := 0; i < 5; i++ {
		again, found := mgr.Get(tk.ID)
		require.True(t, found)
		assert.Equal(t, first, again.Snapshot())
	}
}

func TestManager_List(t *testing.T) {
	mgr, err := NewManager(testConfig(), &mockRunner{})
	require.NoError(t, err)

	_, _ = mgr.Submit(KindVideo, "a.mp4", "")
	_, _ = mgr.Submit(KindFolder, "/videos", "")

	snapshots := mgr.List()
	assert.Len(t, snapshots, 2)
}

func TestManager_Callback(t *testing.T) {
	var mu sync.Mutex
	var received []notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		mu.Lock()
		received = append(received, n)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mgr, err := NewManager(testConfig(), &mockRunner{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)

	tk, _ := mgr.Submit(KindVideo, "demo.mp4", srv.URL)
	waitForTerminal(t, mgr, tk.ID)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, tk.ID, received[0].TaskID)
	assert.Equal(t, StatusCompleted, received[0].Status)
	assert.Len(t, received[0].Results, 1)
	assert.NotEmpty(t, received[0].Timestamp)
}

func TestManager_CallbackFailureDoesNotAffectTask(t *testing.T) {
	mgr, err := NewManager(testConfig(), &mockRunner{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)

	// Unreachable endpoint: delivery failure is logged only.
	tk, _ := mgr.Submit(KindVideo, "demo.mp4", "http://127.0.0.1:1/unreachable")
	snap := waitForTerminal(t, mgr, tk.ID)

	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Len(t, snap.Results, 1)
	assert.Empty(t, snap.Errors)
}

func TestManager_ErrorCallback(t *testing.T) {
	var mu sync.Mutex
	var received []notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n notification
		_ = json.NewDecoder(r.Body).Decode(&n)
		mu.Lock()
		received = append(received, n)
		mu.Unlock()
	}))
	defer srv.Close()

	runner := &mockRunner{
		videoFunc: func(ctx context.Context, videoPath, taskID string) (*pipeline.ProcessingResult, error) {
			return nil, errors.New("stage failure")
		},
	}
	mgr, err := NewManager(testConfig(), runner)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)

	tk, _ := mgr.Submit(KindVideo, "demo.mp4", srv.URL)
	waitForTerminal(t, mgr, tk.ID)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, StatusError, received[0].Status)
	assert.Contains(t, received[0].Errors, "stage failure")
}
