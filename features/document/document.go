package document

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// FallbackKey is the chunk key used when the structuring step degraded to
// storing the raw extracted text as a single section.
const FallbackKey = "content"

var ErrInvalidDocumentID = errors.New("Invalid document ID")

// Document is the canonical record of one ingested URL. It is created exactly
// once per successful ingestion and never mutated. Re-ingesting the same URL
// creates a new, independent document.
type Document struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Data Data   `json:"data"`
}

// Data holds either a structured article (title + named sections) or, when
// structuring fell back, the full extracted text.
type Data struct {
	Title    string             `json:"title,omitempty"`
	Sections map[string]Section `json:"sections,omitempty"`
	Text     string             `json:"text,omitempty"`
}

type Section struct {
	Text string `json:"text"`
}

// Structured reports whether the data carries named sections.
func (d Data) Structured() bool {
	return len(d.Sections) > 0
}

// ChunkText resolves a chunk key to the section text it points at. The bool
// result makes the dangling-reference skip in the query path an explicit
// decision instead of an error.
func (d Data) ChunkText(chunkKey string) (string, bool) {
	if d.Structured() {
		sec, ok := d.Sections[chunkKey]
		if !ok || strings.TrimSpace(sec.Text) == "" {
			return "", false
		}
		return sec.Text, true
	}
	if chunkKey == FallbackKey && strings.TrimSpace(d.Text) != "" {
		return d.Text, true
	}
	return "", false
}

// ParseID parses an externally supplied string into the store's native
// identifier type. Callers supplying a malformed id get a client-input error.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ErrInvalidDocumentID
	}
	return id, nil
}
