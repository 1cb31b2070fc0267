package task

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"videosumapi/pipeline"
)

var notifyClient = &http.Client{Timeout: 10 * time.Second}

type notification struct {
	TaskID    string                      `json:"task_id"`
	Status    Status                      `json:"status"`
	Results   []pipeline.ProcessingResult `json:"results"`
	Errors    []string                    `json:"errors"`
	Timestamp string                      `json:"timestamp"`
}

// notify POSTs the terminal task state to the caller-supplied endpoint.
// Best-effort: delivery failure is logged and never affects task state.
func (m *Manager) notify(t *Task) {
	if t.CallbackURL == "" {
		return
	}

	snap := t.Snapshot()
	payload := notification{
		TaskID:    snap.ID,
		Status:    snap.Status,
		Results:   snap.Results,
		Errors:    snap.Errors,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Could not encode callback payload for task %s: %v", t.ID, err)
		return
	}

	resp, err := notifyClient.Post(t.CallbackURL, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Callback to %s failed for task %s: %v", t.CallbackURL, t.ID, err)
		return
	}
	defer resp.Body.Close()
	log.Printf("Callback sent to %s for task %s: %s", t.CallbackURL, t.ID, resp.Status)
}
