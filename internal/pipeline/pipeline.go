// Package pipeline implements the asynchronous ingestion path: fetch an URL,
// extract its text, structure it with a language model, persist the document,
// then embed and index its section chunks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"articlerag/features/document"
	"articlerag/internal/structure"
)

type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	completer Completer
	embedder  Embedder
	store     DocumentStore
	index     VectorIndex
}

func New(f Fetcher, x Extractor, c Completer, e Embedder, s DocumentStore, v VectorIndex) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		extractor: x,
		completer: c,
		embedder:  e,
		store:     s,
		index:     v,
	}
}

// Ingest runs one URL end to end and always returns a terminal Result; every
// fault becomes an error payload instead of crossing the task boundary.
//
// No store or index writes happen before the document insert succeeds, so
// chunks always carry a real back-reference. If any chunk fails to embed or
// index, the remaining chunks are aborted and the task fails; chunks already
// written stay in place (accepted inconsistency, no compensation).
func (p *Pipeline) Ingest(ctx context.Context, url string) Result {
	// 1. Fetch
	rawHTML, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		slog.ErrorContext(ctx, "fetch failed", "url", url, "error", err)
		return errorResult(fmt.Sprintf("Fetch/Extract error: %v", err))
	}

	// 2. Extract
	content := p.extractor.Extract(rawHTML, url)
	if strings.TrimSpace(content) == "" {
		slog.ErrorContext(ctx, "extraction produced no content", "url", url)
		return errorResult("Failed to extract content")
	}

	// 3. Structure. The model is untrusted: completion faults and malformed
	// replies both degrade to the single-text fallback, never to a task error.
	data := document.Data{Text: content}
	completion, err := p.completer.Complete(ctx, structure.Prompt(url, content))
	if err != nil {
		slog.WarnContext(ctx, "structuring call failed, falling back to raw text", "url", url, "error", err)
	} else {
		data = structure.Parse(completion, content)
	}

	// 4. Persist document first; vector writes need its assigned id.
	doc := &document.Document{URL: url, Data: data}
	docID, err := p.store.Insert(ctx, doc)
	if err != nil {
		slog.ErrorContext(ctx, "document insert failed", "url", url, "error", err)
		return errorResult(fmt.Sprintf("Persist error: %v", err))
	}

	// 5. Embed & index each chunk.
	for _, chunk := range chunksFor(data, docID, url) {
		vector, err := p.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			slog.ErrorContext(ctx, "chunk embedding failed", "url", url, "chunk_key", chunk.Key, "error", err)
			return errorResult(fmt.Sprintf("Indexing error: %v", err))
		}
		chunk.Vector = vector

		if err := p.index.AddChunk(ctx, chunk); err != nil {
			slog.ErrorContext(ctx, "chunk indexing failed", "url", url, "chunk_key", chunk.Key, "error", err)
			return errorResult(fmt.Sprintf("Indexing error: %v", err))
		}
	}

	slog.InfoContext(ctx, "ingestion completed", "url", url, "document_id", docID)
	return Result{Status: StatusCompleted, DocumentID: docID}
}

// chunksFor derives one chunk per structured section with non-empty text, or
// the single fallback chunk for unstructured data.
func chunksFor(data document.Data, docID, url string) []Chunk {
	if !data.Structured() {
		return []Chunk{{
			Key:        document.FallbackKey,
			Text:       data.Text,
			DocumentID: docID,
			SourceURL:  url,
		}}
	}

	chunks := make([]Chunk, 0, len(data.Sections))
	for key, sec := range data.Sections {
		if strings.TrimSpace(sec.Text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Key:        key,
			Text:       sec.Text,
			DocumentID: docID,
			SourceURL:  url,
		})
	}
	return chunks
}

func errorResult(message string) Result {
	return Result{Status: StatusError, Error: message}
}
