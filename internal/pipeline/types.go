package pipeline

import (
	"context"

	"articlerag/features/document"
)

const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Result is the terminal payload of one ingestion task. Faults never escape
// the pipeline as errors; they are carried here and polled by the caller.
type Result struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Chunk is one retrievable unit of text derived from a document, together
// with the back-reference metadata stored in the vector index.
type Chunk struct {
	Key        string
	Text       string
	Vector     []float32
	DocumentID string
	SourceURL  string
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Extractor interface {
	Extract(rawHTML, url string) string
}

// Completer is the language-model boundary used for structuring.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type DocumentStore interface {
	Insert(ctx context.Context, doc *document.Document) (string, error)
}

type VectorIndex interface {
	AddChunk(ctx context.Context, chunk Chunk) error
}
