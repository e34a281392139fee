// Package observability provides logging and metrics support for the paper
// assistant service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for papers, documents, figures and HTTP traffic
//   - Context helpers for propagating request identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("paper_id", id).Msg("paper created")
//
// Enrich a logger with request-scoped identifiers:
//
//	logger = observability.LoggerFromContext(ctx, logger)
//
// # Metrics
//
// Initialize metrics once per process:
//
//	metrics := observability.NewMetrics("paper_assistant")
//
// Record metrics:
//
//	metrics.RecordPaperCreated(autofilled)
//	metrics.RecordDocumentFailed("pdf", observability.ReasonRender)
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithCorrelationID(ctx, correlationID)
//	ctx = observability.WithPaperID(ctx, paperID)
//
//	rc := observability.RequestContextFromContext(ctx)
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - correlation_id: Caller-supplied correlation identifier
//   - paper_id: Paper identifier
//   - component: Emitting component (renderer, local_store, ...)
//   - format: Generated document format (html, pdf)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
