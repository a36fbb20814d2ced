package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/vsm-auth/internal/requestid"
)

type flowKey struct{}

// WithFlow tags ctx with the wizard flow ("login", "register", "admin")
// so every record logged under it carries a flow attribute.
func WithFlow(ctx context.Context, flow string) context.Context {
	return context.WithValue(ctx, flowKey{}, flow)
}

// FlowFromContext returns the flow tag of ctx, or "" if absent.
func FlowFromContext(ctx context.Context) string {
	flow, _ := ctx.Value(flowKey{}).(string)
	return flow
}

// ContextHandler wraps an slog.Handler and copies request_id and flow
// from the context of each log record.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if flow := FlowFromContext(ctx); flow != "" {
		r.AddAttrs(slog.String("flow", flow))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
