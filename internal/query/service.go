// Package query implements the retrieval-augmented question path: embed the
// question, retrieve nearest section chunks, resolve them against the
// document store, and synthesize a grounded answer.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"articlerag/features/document"
)

// Hit is the metadata a nearest-neighbor search returns for one chunk.
type Hit struct {
	DocumentID string
	ChunkKey   string
	SourceURL  string
}

// Source identifies one resolved chunk in retrieval-rank order.
type Source struct {
	URL      string `json:"url"`
	ChunkKey string `json:"chunk_key"`
}

// Answer is the ephemeral query result; it is never persisted.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	QueryNearest(ctx context.Context, vector []float32, topK int) ([]Hit, error)
}

type DocumentStore interface {
	Get(ctx context.Context, id string) (*document.Document, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	embedder    Embedder
	index       VectorIndex
	store       DocumentStore
	completer   Completer
	defaultTopK int
	logger      *Logger
}

func NewService(e Embedder, v VectorIndex, s DocumentStore, c Completer, defaultTopK int, l *Logger) *Service {
	return &Service{
		embedder:    e,
		index:       v,
		store:       s,
		completer:   c,
		defaultTopK: defaultTopK,
		logger:      l,
	}
}

// Ask answers a question from indexed content. topK <= 0 selects the
// configured default. Embedding and model faults propagate; per-hit
// resolution misses are skipped silently and only shorten the source list.
func (s *Service) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	start := time.Now()

	if topK <= 0 {
		topK = s.defaultTopK
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.index.QueryNearest(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	contexts := make([]string, 0, len(hits))
	sources := make([]Source, 0, len(hits))
	seen := make(map[[2]string]bool, len(hits))

	for _, hit := range hits {
		pair := [2]string{hit.DocumentID, hit.ChunkKey}
		if seen[pair] {
			continue
		}
		seen[pair] = true

		text, ok := s.resolve(ctx, hit)
		if !ok {
			continue
		}
		contexts = append(contexts, text)
		sources = append(sources, Source{URL: hit.SourceURL, ChunkKey: hit.ChunkKey})
	}

	// Zero resolvable hits is not fatal: the model is invoked with an empty
	// context and expected to decline.
	answer, err := s.completer.Complete(ctx, answerPrompt(question, contexts))
	if err != nil {
		return nil, fmt.Errorf("answer synthesis: %w", err)
	}

	if s.logger != nil {
		s.logger.Log(LogEntry{
			Question:   question,
			TopK:       topK,
			NumSources: len(sources),
			Duration:   time.Since(start),
		})
	}

	return &Answer{Answer: answer, Sources: sources}, nil
}

// resolve fetches the text a hit points at. A missing document or absent
// chunk key is a dangling reference: tolerated, logged, and skipped.
func (s *Service) resolve(ctx context.Context, hit Hit) (string, bool) {
	doc, err := s.store.Get(ctx, hit.DocumentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "document lookup failed, skipping hit", "document_id", hit.DocumentID, "error", err)
		}
		return "", false
	}
	return doc.Data.ChunkText(hit.ChunkKey)
}

func answerPrompt(question string, contexts []string) string {
	var b strings.Builder
	b.WriteString("Use only the following contexts to answer the question. ")
	b.WriteString("If the contexts are insufficient, say that you cannot answer.\n\n")
	b.WriteString(strings.Join(contexts, "\n\n"))
	fmt.Fprintf(&b, "\n\nQuestion: %s\nAnswer:", question)
	return b.String()
}
