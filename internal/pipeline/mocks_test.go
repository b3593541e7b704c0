package pipeline_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"articlerag/features/document"
	"articlerag/internal/pipeline"
)

// Mocks

type MockFetcher struct{ mock.Mock }

func (m *MockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

type MockExtractor struct{ mock.Mock }

func (m *MockExtractor) Extract(rawHTML, url string) string {
	args := m.Called(rawHTML, url)
	return args.String(0)
}

type MockCompleter struct{ mock.Mock }

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockDocumentStore struct{ mock.Mock }

func (m *MockDocumentStore) Insert(ctx context.Context, doc *document.Document) (string, error) {
	args := m.Called(ctx, doc)
	if id := args.String(0); id != "" {
		doc.ID = id
	}
	return args.String(0), args.Error(1)
}

type MockVectorIndex struct{ mock.Mock }

func (m *MockVectorIndex) AddChunk(ctx context.Context, chunk pipeline.Chunk) error {
	args := m.Called(ctx, chunk)
	return args.Error(0)
}
