package httpserver

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/helixir/paper-assistant-service/internal/observability"
)

const unmatchedRoute = "unmatched"

// correlationIDMiddleware ensures every request has a correlation ID and
// carries the request identifiers in the context.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = requestID
		}
		if correlationID == "" {
			buf := make([]byte, 8)
			if _, err := rand.Read(buf); err != nil {
				// Fallback to timestamp-based ID if crypto/rand fails.
				correlationID = fmt.Sprintf("%x", time.Now().UnixNano())
			} else {
				correlationID = fmt.Sprintf("%x", buf)
			}
		}

		w.Header().Set("X-Correlation-ID", correlationID)
		ctx := observability.WithRequestContext(r.Context(), observability.RequestContext{
			RequestID:     requestID,
			CorrelationID: correlationID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// metricsMiddleware records request counts and latency labeled by the
// matched route pattern, keeping label cardinality bounded.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.metrics.RecordHTTPRequest(r.Method, routePattern(r), strconv.Itoa(statusOf(ww)), time.Since(start).Seconds())
	})
}

// requestLogMiddleware logs one line per request.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := statusOf(ww)
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		event := logger.Debug()
		if status >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("route", routePattern(r)).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
