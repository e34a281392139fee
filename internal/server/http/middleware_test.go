package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/database"
	"github.com/helixir/paper-assistant-service/internal/observability"
)

func TestCorrelationIDMiddleware_UsesExistingHeader(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := observability.CorrelationIDFromContext(r.Context())
		if cid != "test-correlation-123" {
			t.Errorf("expected correlation ID test-correlation-123, got %s", cid)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Correlation-ID", "test-correlation-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Correlation-ID") != "test-correlation-123" {
		t.Errorf("expected X-Correlation-ID header to be set")
	}
}

func TestCorrelationIDMiddleware_FallsBackToRequestID(t *testing.T) {
	var requestID, correlationID string
	handler := middleware.RequestID(correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = observability.RequestIDFromContext(r.Context())
		correlationID = observability.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if requestID == "" {
		t.Fatal("expected request ID in context")
	}
	if correlationID != requestID {
		t.Errorf("expected correlation ID %q to equal request ID %q", correlationID, requestID)
	}
}

func TestCorrelationIDMiddleware_GeneratesIfMissing(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := observability.CorrelationIDFromContext(r.Context())
		if cid == "" {
			t.Error("expected non-empty correlation ID")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected X-Correlation-ID header to be set")
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	metrics := observability.NewMetrics("test_http_middleware")
	s := NewServer(Config{}, &mockPaperService{}, &mockHealth{status: database.HealthStatus{Status: "healthy"}}, metrics, zerolog.Nop())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/papers/00000000-0000-0000-0000-00000000000"+string(rune('1'+i)), nil)
		s.Handler().ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/api/papers/{paperID}", "404"))
	if got != 2 {
		t.Errorf("expected 2 requests under the route pattern, got %v", got)
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	if got := routePattern(req); got != unmatchedRoute {
		t.Errorf("expected %q, got %q", unmatchedRoute, got)
	}

	r := chi.NewRouter()
	var pattern string
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		pattern = routePattern(r)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))
	if pattern != "/items/{id}" {
		t.Errorf("expected /items/{id}, got %q", pattern)
	}
}
