package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		assert.Equal(t, "", RequestIDFromContext(context.Background()))
	})
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-9")
	assert.Equal(t, "corr-9", CorrelationIDFromContext(ctx))
	assert.Equal(t, "", CorrelationIDFromContext(context.Background()))
}

func TestPaperIDContext(t *testing.T) {
	ctx := WithPaperID(context.Background(), "paper-7")
	assert.Equal(t, "paper-7", PaperIDFromContext(ctx))
}

func TestContextKeysDoNotCollide(t *testing.T) {
	// A plain string key with the same text must not be visible.
	ctx := context.WithValue(context.Background(), "request_id", "wrong") //nolint:staticcheck
	assert.Equal(t, "", RequestIDFromContext(ctx))
}

func TestRequestContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		rc := RequestContext{RequestID: "r", CorrelationID: "c", PaperID: "p"}
		ctx := WithRequestContext(context.Background(), rc)
		assert.Equal(t, rc, RequestContextFromContext(ctx))
	})

	t.Run("empty fields are skipped", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "keep")
		ctx = WithRequestContext(ctx, RequestContext{PaperID: "p"})

		got := RequestContextFromContext(ctx)
		assert.Equal(t, "keep", got.RequestID)
		assert.Equal(t, "p", got.PaperID)
		assert.Empty(t, got.CorrelationID)
	})
}
