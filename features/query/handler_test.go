package query_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handler "articlerag/features/query"
	"articlerag/internal/query"
)

type MockAnswerer struct{ mock.Mock }

func (m *MockAnswerer) Ask(ctx context.Context, question string, topK int) (*query.Answer, error) {
	args := m.Called(ctx, question, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*query.Answer), args.Error(1)
}

func TestAsk_ReturnsAnswerWithSources(t *testing.T) {
	svc := new(MockAnswerer)
	svc.On("Ask", mock.Anything, "what is X?", 3).Return(&query.Answer{
		Answer: "X is a thing.",
		Sources: []query.Source{
			{URL: "http://a.example", ChunkKey: "intro"},
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"what is X?","top_k":3}`))
	rr := httptest.NewRecorder()

	handler.NewHandler(svc).Ask(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data query.Answer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "X is a thing.", resp.Data.Answer)
	require.Len(t, resp.Data.Sources, 1)
	assert.Equal(t, "intro", resp.Data.Sources[0].ChunkKey)
}

func TestAsk_OmittedTopKPassesZero(t *testing.T) {
	svc := new(MockAnswerer)
	svc.On("Ask", mock.Anything, "q", 0).Return(&query.Answer{Answer: "a", Sources: []query.Source{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"q"}`))
	rr := httptest.NewRecorder()

	handler.NewHandler(svc).Ask(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestAsk_MissingQuestion(t *testing.T) {
	svc := new(MockAnswerer)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"top_k":3}`))
	rr := httptest.NewRecorder()

	handler.NewHandler(svc).Ask(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Question is required")
	svc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
}

func TestAsk_NegativeTopK(t *testing.T) {
	svc := new(MockAnswerer)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"q","top_k":-1}`))
	rr := httptest.NewRecorder()

	handler.NewHandler(svc).Ask(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "top_k must be a positive integer")
}

func TestAsk_BackendFailure(t *testing.T) {
	svc := new(MockAnswerer)
	svc.On("Ask", mock.Anything, "q", 0).Return(nil, errors.New("embed question: quota exceeded"))

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"q"}`))
	rr := httptest.NewRecorder()

	handler.NewHandler(svc).Ask(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "SERVICE_UNAVAILABLE")
	// Internal fault detail never leaks to the client.
	assert.NotContains(t, rr.Body.String(), "quota exceeded")
}
