package task

import (
	"sync"
	"time"

	"videosumapi/pipeline"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

type Kind string

const (
	KindVideo  Kind = "video"
	KindFolder Kind = "folder"
)

// Task tracks one submitted unit of work. The registry owns it; the worker
// writes terminal state through the mutex while handlers read snapshots.
type Task struct {
	mu sync.Mutex

	ID          string
	Kind        Kind
	Path        string
	CallbackURL string

	Status      Status
	Results     []pipeline.ProcessingResult
	Errors      []string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Snapshot is a consistent, serialization-safe copy of a task's state.
type Snapshot struct {
	ID          string                      `json:"task_id"`
	Kind        Kind                        `json:"kind"`
	Status      Status                      `json:"status"`
	Results     []pipeline.ProcessingResult `json:"results"`
	Errors      []string                    `json:"errors"`
	StartedAt   time.Time                   `json:"started_at"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
}

func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		ID:        t.ID,
		Kind:      t.Kind,
		Status:    t.Status,
		Results:   make([]pipeline.ProcessingResult, len(t.Results)),
		Errors:    make([]string, len(t.Errors)),
		StartedAt: t.StartedAt,
	}
	copy(s.Results, t.Results)
	copy(s.Errors, t.Errors)
	if !t.CompletedAt.IsZero() {
		completed := t.CompletedAt
		s.CompletedAt = &completed
	}
	return s
}

// complete moves the task to its terminal state. Called exactly once, by the
// background worker.
func (t *Task) complete(status Status, results []pipeline.ProcessingResult, errs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Status = status
	t.Results = results
	t.Errors = errs
	t.CompletedAt = time.Now()
}
