package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"articlerag/internal/middleware"
	"articlerag/internal/query"
)

// Answerer is the query engine boundary consumed by this handler.
type Answerer interface {
	Ask(ctx context.Context, question string, topK int) (*query.Answer, error)
}

type Handler struct {
	service Answerer
}

func NewHandler(service Answerer) *Handler {
	return &Handler{service: service}
}

// Ask answers a question synchronously from indexed content.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Question is required", http.StatusBadRequest)
		return
	}
	if req.TopK < 0 {
		h.writeError(ctx, w, "VALIDATION_ERROR", "top_k must be a positive integer", http.StatusBadRequest)
		return
	}

	answer, err := h.service.Ask(ctx, req.Question, req.TopK)
	if err != nil {
		slog.ErrorContext(ctx, "query failed", "error", err)
		h.writeError(ctx, w, "SERVICE_UNAVAILABLE", "Query backend unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": answer}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
