// Package worker consumes ingestion tasks from NSQ and drives the pipeline.
// Retry and backoff policy belong to the queue; the worker only records what
// happened.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"articlerag/features/task"
	"articlerag/internal/middleware"
	"articlerag/internal/pipeline"
)

// Ingestor runs one URL end to end and returns a terminal result.
type Ingestor interface {
	Ingest(ctx context.Context, url string) pipeline.Result
}

// TaskStore records observed task state transitions.
type TaskStore interface {
	MarkRunning(ctx context.Context, id string) error
	SaveResult(ctx context.Context, id, status string, result []byte) error
}

type TaskConsumer struct {
	ingestor Ingestor
	tasks    TaskStore
}

func NewTaskConsumer(i Ingestor, t TaskStore) *TaskConsumer {
	return &TaskConsumer{ingestor: i, tasks: t}
}

func (h *TaskConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload task.Payload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.TaskID == "" || payload.URL == "" {
		slog.Error("missing required fields, dropping", "task_id", payload.TaskID, "url", payload.URL)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	if err := h.tasks.MarkRunning(ctx, payload.TaskID); err != nil {
		slog.ErrorContext(ctx, "failed to mark task running", "error", err, "task_id", payload.TaskID)
		return err // Retry before doing any work
	}

	res := h.ingestor.Ingest(ctx, payload.URL)

	status := task.StatusFinished
	if res.Status == pipeline.StatusError {
		status = task.StatusFailed
		slog.ErrorContext(ctx, "ingestion task failed", "task_id", payload.TaskID, "url", payload.URL, "error", res.Error)
	}

	body, err := json.Marshal(res)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal result", "error", err, "task_id", payload.TaskID)
		return err
	}

	if err := h.tasks.SaveResult(ctx, payload.TaskID, status, body); err != nil {
		slog.ErrorContext(ctx, "failed to save task result", "error", err, "task_id", payload.TaskID)
		return err // Durable: the caller must be able to poll the outcome
	}

	slog.InfoContext(ctx, "ingestion task processed", "task_id", payload.TaskID, "status", status)
	return nil
}
