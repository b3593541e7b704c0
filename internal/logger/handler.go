// Package logger decorates slog with request-scoped attributes.
package logger

import (
	"context"
	"log/slog"

	"articlerag/internal/middleware"
)

// ContextHandler adds the correlation id from the context, when present, to
// every record it forwards.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
