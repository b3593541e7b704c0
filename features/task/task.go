package task

import (
	"encoding/json"
	"time"
)

// Task statuses. The queue transport owns delivery; these rows track what the
// worker observed so callers can poll.
const (
	StatusQueued   = "queued"
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// Task is one asynchronous unit of ingestion work for a single URL.
type Task struct {
	ID        string          `json:"task_id"`
	URL       string          `json:"url"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
