package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey     contextKey = "request_id"
	correlationIDKey contextKey = "correlation_id"
	paperIDKey       contextKey = "paper_id"
)

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey)
}

// WithPaperID adds the paper being worked on to the context.
func WithPaperID(ctx context.Context, paperID string) context.Context {
	return context.WithValue(ctx, paperIDKey, paperID)
}

// PaperIDFromContext retrieves the paper ID from context.
func PaperIDFromContext(ctx context.Context) string {
	return stringValue(ctx, paperIDKey)
}

// RequestContext contains the request-scoped identifiers.
type RequestContext struct {
	RequestID     string
	CorrelationID string
	PaperID       string
}

// WithRequestContext adds every non-empty field of rc to the context.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	if rc.RequestID != "" {
		ctx = WithRequestID(ctx, rc.RequestID)
	}
	if rc.CorrelationID != "" {
		ctx = WithCorrelationID(ctx, rc.CorrelationID)
	}
	if rc.PaperID != "" {
		ctx = WithPaperID(ctx, rc.PaperID)
	}
	return ctx
}

// RequestContextFromContext extracts all request-scoped identifiers.
func RequestContextFromContext(ctx context.Context) RequestContext {
	return RequestContext{
		RequestID:     RequestIDFromContext(ctx),
		CorrelationID: CorrelationIDFromContext(ctx),
		PaperID:       PaperIDFromContext(ctx),
	}
}
