package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/compose"
	"github.com/helixir/paper-assistant-service/internal/database"
	"github.com/helixir/paper-assistant-service/internal/domain"
	"github.com/helixir/paper-assistant-service/internal/service"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockPaperService implements PaperService for HTTP handler tests.
type mockPaperService struct {
	createFn  func(ctx context.Context, in service.PaperInput, uploads []service.Upload) (*domain.Paper, error)
	updateFn  func(ctx context.Context, id uuid.UUID, in service.PaperInput, uploads []service.Upload) (*domain.Paper, error)
	getFn     func(ctx context.Context, id uuid.UUID) (*domain.Paper, error)
	listFn    func(ctx context.Context, limit, offset int) ([]*domain.PaperSummary, int64, error)
	captionFn func(ctx context.Context, paperID, imageID uuid.UUID, caption string) (*domain.Image, error)
	htmlFn    func(ctx context.Context, id uuid.UUID) (*compose.Document, error)
	pdfFn     func(ctx context.Context, id uuid.UUID) ([]byte, error)
}

func (m *mockPaperService) Create(ctx context.Context, in service.PaperInput, uploads []service.Upload) (*domain.Paper, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in, uploads)
	}
	return &domain.Paper{ID: uuid.New(), Title: in.Title}, nil
}

func (m *mockPaperService) Update(ctx context.Context, id uuid.UUID, in service.PaperInput, uploads []service.Upload) (*domain.Paper, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in, uploads)
	}
	return &domain.Paper{ID: id, Title: in.Title}, nil
}

func (m *mockPaperService) Get(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (m *mockPaperService) List(ctx context.Context, limit, offset int) ([]*domain.PaperSummary, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockPaperService) UpdateImageCaption(ctx context.Context, paperID, imageID uuid.UUID, caption string) (*domain.Image, error) {
	if m.captionFn != nil {
		return m.captionFn(ctx, paperID, imageID, caption)
	}
	return nil, domain.NewNotFoundError("image", imageID.String())
}

func (m *mockPaperService) ComposeHTML(ctx context.Context, id uuid.UUID) (*compose.Document, error) {
	if m.htmlFn != nil {
		return m.htmlFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (m *mockPaperService) GeneratePDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if m.pdfFn != nil {
		return m.pdfFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

// mockHealth implements HealthChecker.
type mockHealth struct {
	status database.HealthStatus
}

func (m *mockHealth) Health(context.Context) database.HealthStatus { return m.status }

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestHTTPServer creates a Server configured for testing with mocked dependencies.
func newTestHTTPServer(papers PaperService) *Server {
	return newTestHTTPServerWithConfig(papers, Config{Environment: "test"})
}

func newTestHTTPServerWithConfig(papers PaperService, cfg Config) *Server {
	s := NewServer(cfg, papers, &mockHealth{status: database.HealthStatus{Status: "healthy"}}, nil, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func doRequest(s *Server, method, path, contentType string, body *strings.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rr, &body)
	return body["error"]
}

// ---------------------------------------------------------------------------
// Tests: health and status
// ---------------------------------------------------------------------------

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestHTTPServer(&mockPaperService{})

		rr := doRequest(s, http.MethodGet, "/healthz", "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		rr = doRequest(s, http.MethodGet, "/readyz", "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("unhealthy database", func(t *testing.T) {
		s := NewServer(Config{}, &mockPaperService{},
			&mockHealth{status: database.HealthStatus{Status: "unhealthy", Error: "ping failed"}}, nil, zerolog.Nop())

		rr := doRequest(s, http.MethodGet, "/healthz", "", nil)
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
		rr = doRequest(s, http.MethodGet, "/readyz", "", nil)
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
		var body map[string]string
		decodeBody(t, rr, &body)
		if body["status"] != "not_ready" {
			t.Errorf("expected status not_ready, got %q", body["status"])
		}
	})
}

func TestStatusHandler(t *testing.T) {
	s := newTestHTTPServer(&mockPaperService{})

	rr := doRequest(s, http.MethodGet, "/api/status", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body statusResponse
	decodeBody(t, rr, &body)
	if body.Status != "ok" {
		t.Errorf("expected status ok, got %q", body.Status)
	}
	if body.Env != "test" {
		t.Errorf("expected env test, got %q", body.Env)
	}
	if !body.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", body.Timestamp)
	}
}

func TestUnknownRoute_Returns404(t *testing.T) {
	s := newTestHTTPServer(&mockPaperService{})

	rr := doRequest(s, http.MethodGet, "/api/nothing-here", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Tests: error mapping and helpers
// ---------------------------------------------------------------------------

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", domain.NewNotFoundError("paper", "x"), http.StatusNotFound, "paper not found"},
		{"bare not found", domain.ErrNotFound, http.StatusNotFound, "resource not found"},
		{"validation", domain.NewValidationError("title", "is required"), http.StatusBadRequest, "validation error: title: is required"},
		{"bare invalid input", domain.ErrInvalidInput, http.StatusBadRequest, "invalid input"},
		{"unsupported media", fmt.Errorf("%w: image/gif", domain.ErrUnsupportedMedia), http.StatusUnsupportedMediaType, "invalid file type: only JPEG, PNG and PDF are allowed"},
		{"too large", domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "upload too large"},
		{"generation failed", fmt.Errorf("compose: %w: %w", domain.ErrGenerationFailed, domain.ErrAssetNotFound), http.StatusInternalServerError, "failed to generate document"},
		{"render failed", fmt.Errorf("generate pdf: %w", domain.ErrRenderFailed), http.StatusBadGateway, "failed to generate document"},
		{"unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable, "service unavailable"},
		{"cancelled", domain.ErrCancelled, http.StatusServiceUnavailable, "request cancelled"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tt.err)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if msg := errorMessage(t, rr); msg != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestWriteDomainError_NilIsNoop(t *testing.T) {
	rr := httptest.NewRecorder()
	writeDomainError(rr, nil)
	if rr.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rr.Body.String())
	}
}

func TestParsePaginationParams(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("20"))

	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", defaultPageSize, 0},
		{"custom size", "page_size=10", 10, 0},
		{"capped size", "page_size=1000", maxPageSize, 0},
		{"negative size ignored", "page_size=-3", defaultPageSize, 0},
		{"with token", "page_size=10&page_token=" + token, 10, 20},
		{"non-numeric token ignored", "page_token=bm90LWEtbnVtYmVy", defaultPageSize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/papers?"+tt.query, nil)
			limit, offset := parsePaginationParams(req)
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("expected (%d, %d), got (%d, %d)", tt.wantLimit, tt.wantOffset, limit, offset)
			}
		})
	}
}

func TestEncodeHTTPPageToken(t *testing.T) {
	if got := encodeHTTPPageToken(0, 10, 10); got != "" {
		t.Errorf("expected empty token at end of results, got %q", got)
	}

	got := encodeHTTPPageToken(10, 10, 25)
	decoded, err := base64.StdEncoding.DecodeString(got)
	if err != nil {
		t.Fatalf("token is not base64: %v", err)
	}
	if string(decoded) != "20" {
		t.Errorf("expected next offset 20, got %s", decoded)
	}
}

func TestParseUUID(t *testing.T) {
	rr := httptest.NewRecorder()
	if _, ok := parseUUID(rr, "not-a-uuid", "paper_id"); ok {
		t.Fatal("expected parse failure")
	}
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != "paper_id must be a valid UUID" {
		t.Errorf("unexpected message %q", msg)
	}

	id := uuid.New()
	got, ok := parseUUID(httptest.NewRecorder(), id.String(), "paper_id")
	if !ok || got != id {
		t.Errorf("expected %s, got %s", id, got)
	}
}
