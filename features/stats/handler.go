package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"articlerag/internal/middleware"
)

type DocumentRepo interface {
	Count(ctx context.Context) (int, error)
}

type TaskRepo interface {
	Count(ctx context.Context) (int, error)
}

type VectorIndex interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	documents DocumentRepo
	tasks     TaskRepo
	index     VectorIndex
}

func NewHandler(d DocumentRepo, t TaskRepo, v VectorIndex) *Handler {
	return &Handler{documents: d, tasks: t, index: v}
}

// Vectors is a pointer: when the index is unreachable the count is reported
// as null rather than failing the whole request.
type StatsResponse struct {
	Documents int  `json:"documents"`
	Vectors   *int `json:"vectors"`
	Tasks     int  `json:"tasks"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dCount, err := h.documents.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count documents", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count documents", http.StatusInternalServerError)
		return
	}

	tCount, err := h.tasks.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count tasks", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count tasks", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Documents: dCount,
		Tasks:     tCount,
	}
	if vCount, err := h.index.CountChunks(ctx); err != nil {
		slog.WarnContext(ctx, "failed to count vectors", "error", err)
	} else {
		resp.Vectors = &vCount
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
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
