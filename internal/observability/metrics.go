package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Document generation failure reasons.
const (
	ReasonNotFound  = "not_found"
	ReasonCompose   = "compose"
	ReasonRender    = "render"
	ReasonCancelled = "cancelled"
)

// Metrics contains all Prometheus metrics for the paper assistant service.
// Metrics are grouped by papers, documents, figures and HTTP. All of them are
// registered via promauto with the default Prometheus registry.
type Metrics struct {
	// PapersCreated counts papers created.
	PapersCreated prometheus.Counter

	// PapersUpdated counts paper updates.
	PapersUpdated prometheus.Counter

	// SectionsAutofilled counts sections filled from templates.
	SectionsAutofilled prometheus.Counter

	// ImagesUploaded counts stored uploads.
	ImagesUploaded prometheus.Counter

	// UploadsRejected counts rejected uploads, labeled by reason.
	UploadsRejected *prometheus.CounterVec

	// DocumentsGenerated counts successful generations, labeled by format (html, pdf).
	DocumentsGenerated *prometheus.CounterVec

	// DocumentsFailed counts failed generations, labeled by format and reason.
	DocumentsFailed *prometheus.CounterVec

	// CompositionDuration observes markup composition time in seconds.
	CompositionDuration prometheus.Histogram

	// RenderDuration observes PDF rendering time in seconds.
	RenderDuration prometheus.Histogram

	// DocumentBytes observes the size of generated documents, labeled by format.
	DocumentBytes *prometheus.HistogramVec

	// FiguresResolved counts figures found on disk or in the store, labeled by strategy.
	FiguresResolved *prometheus.CounterVec

	// FiguresPlaceholder counts figures replaced by the placeholder image.
	FiguresPlaceholder prometheus.Counter

	// EventsPublished counts published events, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts events that could not be published, labeled by event type.
	EventsFailed *prometheus.CounterVec

	// HTTPRequests counts HTTP requests, labeled by method, route and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Papers
		PapersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_created_total",
			Help:      "Total number of papers created",
		}),
		PapersUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_updated_total",
			Help:      "Total number of paper updates",
		}),
		SectionsAutofilled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_autofilled_total",
			Help:      "Total number of blank sections filled from templates",
		}),
		ImagesUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_uploaded_total",
			Help:      "Total number of uploaded figure files stored",
		}),
		UploadsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Total number of rejected uploads by reason",
		}, []string{"reason"}),

		// Documents
		DocumentsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_generated_total",
			Help:      "Total number of documents generated by format",
		}, []string{"format"}),
		DocumentsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_failed_total",
			Help:      "Total number of failed document generations by format and reason",
		}, []string{"format", "reason"}),
		CompositionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "composition_duration_seconds",
			Help:      "Duration of document markup composition in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of PDF rendering in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		DocumentBytes: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_bytes",
			Help:      "Size of generated documents in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"}),

		// Figures
		FiguresResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "figures_resolved_total",
			Help:      "Total number of figures resolved by lookup strategy",
		}, []string{"strategy"}),
		FiguresPlaceholder: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "figures_placeholder_total",
			Help:      "Total number of figures rendered with the placeholder image",
		}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published by type",
		}, []string{"event_type"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of events that failed to publish by type",
		}, []string{"event_type"}),

		// HTTP
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordPaperCreated records a created paper and how many sections were autofilled.
func (m *Metrics) RecordPaperCreated(autofilled int) {
	m.PapersCreated.Inc()
	if autofilled > 0 {
		m.SectionsAutofilled.Add(float64(autofilled))
	}
}

// RecordPaperUpdated records a paper update.
func (m *Metrics) RecordPaperUpdated(autofilled int) {
	m.PapersUpdated.Inc()
	if autofilled > 0 {
		m.SectionsAutofilled.Add(float64(autofilled))
	}
}

// RecordImagesUploaded adds count stored uploads.
func (m *Metrics) RecordImagesUploaded(count int) {
	if count > 0 {
		m.ImagesUploaded.Add(float64(count))
	}
}

// RecordUploadRejected records a rejected upload.
func (m *Metrics) RecordUploadRejected(reason string) {
	m.UploadsRejected.WithLabelValues(reason).Inc()
}

// RecordComposition records one composition and its figure outcomes.
func (m *Metrics) RecordComposition(durationSeconds float64, placeholders int) {
	m.CompositionDuration.Observe(durationSeconds)
	if placeholders > 0 {
		m.FiguresPlaceholder.Add(float64(placeholders))
	}
}

// RecordFigureResolved records a figure found via strategy.
func (m *Metrics) RecordFigureResolved(strategy string) {
	m.FiguresResolved.WithLabelValues(strategy).Inc()
}

// RecordRender records one PDF render.
func (m *Metrics) RecordRender(durationSeconds float64) {
	m.RenderDuration.Observe(durationSeconds)
}

// RecordDocumentGenerated records a successful generation.
func (m *Metrics) RecordDocumentGenerated(format string, size int) {
	m.DocumentsGenerated.WithLabelValues(format).Inc()
	m.DocumentBytes.WithLabelValues(format).Observe(float64(size))
}

// RecordDocumentFailed records a failed generation.
func (m *Metrics) RecordDocumentFailed(format, reason string) {
	m.DocumentsFailed.WithLabelValues(format, reason).Inc()
}

// RecordEvent records the outcome of publishing an event.
func (m *Metrics) RecordEvent(eventType string, err error) {
	if err != nil {
		m.EventsFailed.WithLabelValues(eventType).Inc()
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
