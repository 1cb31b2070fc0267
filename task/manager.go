package task

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"videosumapi/config"
	"videosumapi/pipeline"
)

// PipelineRunner is the orchestrator as the manager consumes it.
type PipelineRunner interface {
	ProcessVideo(ctx context.Context, videoPath, taskID string) (*pipeline.ProcessingResult, error)
	ProcessFolder(ctx context.Context, folderPath, taskID string) ([]pipeline.ProcessingResult, []string, error)
}

// Manager owns the task registry and the background execution model. Tasks
// are never evicted: the registry grows for the process lifetime, which is a
// documented resource-growth property of the service.
type Manager struct {
	cfg            *config.Config
	tasks          sync.Map
	taskQueue      chan *Task
	concurrencySem chan struct{}
	runner         PipelineRunner
}

func NewManager(cfg *config.Config, runner PipelineRunner) (*Manager, error) {
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 100
	}
	m := &Manager{
		cfg:            cfg,
		tasks:          sync.Map{},
		taskQueue:      make(chan *Task, queueSize),
		concurrencySem: make(chan struct{}, cfg.MaxConcurrency),
		runner:         runner,
	}
	return m, nil
}

func (m *Manager) Start(ctx context.Context) {
	log.Println("Task manager started. Concurrency limit:", m.cfg.MaxConcurrency)
	go m.janitorLoop(ctx)
	go m.workerLoop(ctx)
}

// Submit registers a new task and schedules it, returning immediately.
func (m *Manager) Submit(kind Kind, path, callbackURL string) (*Task, error) {
	t := &Task{
		ID:          newTaskID(kind),
		Kind:        kind,
		Path:        path,
		CallbackURL: callbackURL,
		Status:      StatusProcessing,
		Results:     []pipeline.ProcessingResult{},
		Errors:      []string{},
		StartedAt:   time.Now(),
	}

	m.tasks.Store(t.ID, t)
	m.taskQueue <- t
	log.Printf("Task %s submitted to queue.", t.ID)
	return t, nil
}

func (m *Manager) Get(taskID string) (*Task, bool) {
	if val, ok := m.tasks.Load(taskID); ok {
		return val.(*Task), true
	}
	return nil, false
}

func (m *Manager) List() []Snapshot {
	var snapshots []Snapshot
	m.tasks.Range(func(key, value interface{}) bool {
		snapshots = append(snapshots, value.(*Task).Snapshot())
		return true
	})
	return snapshots
}

// newTaskID combines a type prefix, a second-precision timestamp and a random
// suffix so ids stay unique under rapid submission.
func newTaskID(kind Kind) string {
	return fmt.Sprintf("%s_%s_%s", kind, time.Now().Format("20060102_150405"), shortuuid.New())
}

// workerLoop pulls tasks from the queue and processes them
func (m *Manager) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Worker loop shutting down.")
			return
		case t := <-m.taskQueue:
			// Wait for a free processing slot
			m.concurrencySem <- struct{}{}
			go func(t *Task) {
				defer func() { <-m.concurrencySem }() // Release slot
				m.processTask(ctx, t)
			}(t)
		}
	}
}

// processTask runs the pipeline for one unit of work. It is the outermost
// error boundary: every failure, panics included, becomes a terminal error
// state on the task record.
func (m *Manager) processTask(ctx context.Context, t *Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Task %s panicked: %v", t.ID, r)
			t.complete(StatusError, nil, []string{fmt.Sprintf("internal error: %v", r)})
			m.notify(t)
		}
	}()

	log.Printf("Processing task %s (%s: %s)", t.ID, t.Kind, t.Path)

	switch t.Kind {
	case KindVideo:
		result, err := m.runner.ProcessVideo(ctx, t.Path, t.ID)
		if err != nil {
			log.Printf("Task %s failed: %v", t.ID, err)
			t.complete(StatusError, nil, []string{err.Error()})
		} else {
			log.Printf("Task %s completed successfully.", t.ID)
			t.complete(StatusCompleted, []pipeline.ProcessingResult{*result}, nil)
		}
	case KindFolder:
		results, errs, err := m.runner.ProcessFolder(ctx, t.Path, t.ID)
		if err != nil {
			log.Printf("Task %s failed: %v", t.ID, err)
			t.complete(StatusError, nil, []string{err.Error()})
		} else {
			log.Printf("Task %s completed: %d results, %d errors.", t.ID, len(results), len(errs))
			t.complete(StatusCompleted, results, errs)
		}
	}

	m.notify(t)
}

// janitorLoop sweeps stale temp audio artifacts. Normal completion removes
// them inline; this only catches leftovers from a previous crashed run.
func (m *Manager) janitorLoop(ctx context.Context) {
	if m.cfg.TempMaxAge <= 0 {
		return
	}
	ticker := time.NewTicker(m.cfg.TempMaxAge / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Janitor loop shutting down.")
			return
		case <-ticker.C:
			m.sweepTempDir()
		}
	}
}

func (m *Manager) sweepTempDir() {
	if m.cfg.TempDir == "" {
		return
	}
	entries, err := os.ReadDir(m.cfg.TempDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_audio.wav") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(fi.ModTime()) > m.cfg.TempMaxAge {
			stale := filepath.Join(m.cfg.TempDir, entry.Name())
			log.Printf("Removing stale temp audio: %s", stale)
			os.Remove(stale)
		}
	}
}
