package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"articlerag/internal/config"
	"articlerag/internal/middleware"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Payload is the queue message for one ingestion task.
type Payload struct {
	TaskID        string `json:"task_id"`
	URL           string `json:"url"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// Submit records the task and enqueues it. The caller gets the task id back
// immediately; the pipeline's terminal result arrives via polling.
func (s *Service) Submit(ctx context.Context, url string) (*Task, error) {
	t := &Task{URL: url}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(Payload{
		TaskID:        t.ID,
		URL:           url,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}
	if err := s.pub.Publish(config.TopicIngestTask, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish ingest.task event", "error", err, "task_id", t.ID)
		// The row exists but nothing will pick it up; surface the fault.
		return nil, fmt.Errorf("enqueue task: %w", err)
	}

	slog.InfoContext(ctx, "published ingest.task event", "url", url, "task_id", t.ID)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
