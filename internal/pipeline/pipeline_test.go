package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"articlerag/features/document"
	"articlerag/internal/pipeline"
)

const (
	testURL   = "http://example.com/article"
	testDocID = "b2f7a1de-3c44-4f1a-9a2b-0f6f1c9d8e21"
)

func newPipeline() (*pipeline.Pipeline, *MockFetcher, *MockExtractor, *MockCompleter, *MockEmbedder, *MockDocumentStore, *MockVectorIndex) {
	f := new(MockFetcher)
	x := new(MockExtractor)
	c := new(MockCompleter)
	e := new(MockEmbedder)
	s := new(MockDocumentStore)
	v := new(MockVectorIndex)
	return pipeline.New(f, x, c, e, s, v), f, x, c, e, s, v
}

func TestIngest_StructuredSuccess(t *testing.T) {
	p, f, x, c, e, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("<html>raw</html>", nil)
	x.On("Extract", "<html>raw</html>", testURL).Return("Extracted article text")
	c.On("Complete", mock.Anything, mock.Anything).
		Return(`{"title":"T","sections":{"intro":{"text":"A"},"body":{"text":"B"}}}`, nil)

	// Document persisted before any vector write, with the exact data shape.
	s.On("Insert", mock.Anything, mock.MatchedBy(func(doc *document.Document) bool {
		return doc.URL == testURL &&
			doc.Data.Title == "T" &&
			len(doc.Data.Sections) == 2 &&
			doc.Data.Sections["intro"].Text == "A" &&
			doc.Data.Sections["body"].Text == "B" &&
			doc.Data.Text == ""
	})).Return(testDocID, nil)

	e.On("Embed", mock.Anything, "A").Return([]float32{0.1}, nil)
	e.On("Embed", mock.Anything, "B").Return([]float32{0.2}, nil)

	// Every chunk carries the assigned document id and source url.
	v.On("AddChunk", mock.Anything, mock.MatchedBy(func(ch pipeline.Chunk) bool {
		return ch.DocumentID == testDocID && ch.SourceURL == testURL &&
			(ch.Key == "intro" || ch.Key == "body")
	})).Return(nil).Twice()

	res := p.Ingest(context.Background(), testURL)

	assert.Equal(t, pipeline.StatusCompleted, res.Status)
	assert.Equal(t, testDocID, res.DocumentID)
	assert.Empty(t, res.Error)

	s.AssertNumberOfCalls(t, "Insert", 1)
	v.AssertNumberOfCalls(t, "AddChunk", 2)
	s.AssertExpectations(t)
	v.AssertExpectations(t)
}

func TestIngest_FetchFault(t *testing.T) {
	p, f, x, _, _, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("", errors.New("Connection failed"))

	res := p.Ingest(context.Background(), testURL)

	assert.Equal(t, pipeline.StatusError, res.Status)
	assert.Contains(t, res.Error, "Connection failed")
	assert.Contains(t, res.Error, "Fetch/Extract error")

	// No writes occur when a stage before persistence fails.
	x.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	v.AssertNotCalled(t, "AddChunk", mock.Anything, mock.Anything)
}

func TestIngest_EmptyExtraction(t *testing.T) {
	p, f, x, c, _, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("<html></html>", nil)
	x.On("Extract", "<html></html>", testURL).Return("   \n ")

	res := p.Ingest(context.Background(), testURL)

	assert.Equal(t, pipeline.StatusError, res.Status)
	assert.Equal(t, "Failed to extract content", res.Error)

	c.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	v.AssertNotCalled(t, "AddChunk", mock.Anything, mock.Anything)
}

func TestIngest_MalformedStructuringFallsBack(t *testing.T) {
	p, f, x, c, e, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("<html>raw</html>", nil)
	x.On("Extract", "<html>raw</html>", testURL).Return("Full extracted text")
	c.On("Complete", mock.Anything, mock.Anything).Return("not json", nil)

	s.On("Insert", mock.Anything, mock.MatchedBy(func(doc *document.Document) bool {
		return doc.Data.Text == "Full extracted text" && len(doc.Data.Sections) == 0
	})).Return(testDocID, nil)

	e.On("Embed", mock.Anything, "Full extracted text").Return([]float32{0.5}, nil)
	v.On("AddChunk", mock.Anything, mock.MatchedBy(func(ch pipeline.Chunk) bool {
		return ch.Key == document.FallbackKey && ch.Text == "Full extracted text"
	})).Return(nil).Once()

	res := p.Ingest(context.Background(), testURL)

	// Untrusted model output never fails ingestion.
	assert.Equal(t, pipeline.StatusCompleted, res.Status)
	v.AssertNumberOfCalls(t, "AddChunk", 1)
	v.AssertExpectations(t)
}

func TestIngest_StructuringCallFailureFallsBack(t *testing.T) {
	p, f, x, c, e, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("<html>raw</html>", nil)
	x.On("Extract", "<html>raw</html>", testURL).Return("Extracted")
	c.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model overloaded"))

	s.On("Insert", mock.Anything, mock.MatchedBy(func(doc *document.Document) bool {
		return doc.Data.Text == "Extracted"
	})).Return(testDocID, nil)
	e.On("Embed", mock.Anything, "Extracted").Return([]float32{0.5}, nil)
	v.On("AddChunk", mock.Anything, mock.Anything).Return(nil)

	res := p.Ingest(context.Background(), testURL)

	assert.Equal(t, pipeline.StatusCompleted, res.Status)
}

func TestIngest_PersistFailure(t *testing.T) {
	p, f, x, c, e, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("<html>raw</html>", nil)
	x.On("Extract", "<html>raw</html>", testURL).Return("Extracted")
	c.On("Complete", mock.Anything, mock.Anything).Return("not json", nil)
	s.On("Insert", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	res := p.Ingest(context.Background(), testURL)

	assert.Equal(t, pipeline.StatusError, res.Status)
	assert.Contains(t, res.Error, "Persist error")

	// Chunks never get written without a valid document id.
	e.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
	v.AssertNotCalled(t, "AddChunk", mock.Anything, mock.Anything)
}

func TestIngest_IndexingFaultAbortsRemainingChunks(t *testing.T) {
	p, f, x, c, e, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("<html>raw</html>", nil)
	x.On("Extract", "<html>raw</html>", testURL).Return("Extracted")
	c.On("Complete", mock.Anything, mock.Anything).
		Return(`{"title":"T","sections":{"a":{"text":"A"},"b":{"text":"B"},"c":{"text":"C"}}}`, nil)
	s.On("Insert", mock.Anything, mock.Anything).Return(testDocID, nil)

	// First chunk indexes fine, second embed faults; the rest is aborted.
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil).Once()
	v.On("AddChunk", mock.Anything, mock.Anything).Return(nil).Once()
	e.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded")).Once()

	res := p.Ingest(context.Background(), testURL)

	assert.Equal(t, pipeline.StatusError, res.Status)
	assert.Contains(t, res.Error, "Indexing error")
	assert.Contains(t, res.Error, "quota exceeded")

	// The document stays persisted (accepted inconsistency, no compensation),
	// and no chunk past the faulting one is attempted.
	s.AssertNumberOfCalls(t, "Insert", 1)
	e.AssertNumberOfCalls(t, "Embed", 2)
	v.AssertNumberOfCalls(t, "AddChunk", 1)
}

func TestIngest_EmptySectionsAreSkipped(t *testing.T) {
	p, f, x, c, e, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("<html>raw</html>", nil)
	x.On("Extract", "<html>raw</html>", testURL).Return("Extracted")
	c.On("Complete", mock.Anything, mock.Anything).
		Return(`{"title":"T","sections":{"empty":{"text":"  "},"body":{"text":"B"}}}`, nil)
	s.On("Insert", mock.Anything, mock.Anything).Return(testDocID, nil)

	e.On("Embed", mock.Anything, "B").Return([]float32{0.2}, nil)
	v.On("AddChunk", mock.Anything, mock.MatchedBy(func(ch pipeline.Chunk) bool {
		return ch.Key == "body"
	})).Return(nil).Once()

	res := p.Ingest(context.Background(), testURL)

	assert.Equal(t, pipeline.StatusCompleted, res.Status)
	v.AssertNumberOfCalls(t, "AddChunk", 1)
	v.AssertExpectations(t)
}

func TestIngest_ReingestCreatesNewDocument(t *testing.T) {
	p, f, x, c, e, s, v := newPipeline()

	f.On("Fetch", mock.Anything, testURL).Return("<html>raw</html>", nil)
	x.On("Extract", "<html>raw</html>", testURL).Return("Extracted")
	c.On("Complete", mock.Anything, mock.Anything).Return("not json", nil)
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	v.On("AddChunk", mock.Anything, mock.Anything).Return(nil)

	firstID := "0f0e0d0c-0b0a-4908-8706-050403020100"
	secondID := "1f1e1d1c-1b1a-4918-9716-151413121110"
	s.On("Insert", mock.Anything, mock.Anything).Return(firstID, nil).Once()
	s.On("Insert", mock.Anything, mock.Anything).Return(secondID, nil).Once()

	res1 := p.Ingest(context.Background(), testURL)
	res2 := p.Ingest(context.Background(), testURL)

	// No dedup by URL: two ingestions, two independent documents.
	assert.Equal(t, firstID, res1.DocumentID)
	assert.Equal(t, secondID, res2.DocumentID)
	s.AssertNumberOfCalls(t, "Insert", 2)
}
