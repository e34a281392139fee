// Package render converts composed paper markup into PDF bytes through an
// external HTML-to-PDF engine speaking the Gotenberg Chromium API.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/compose"
	"github.com/helixir/paper-assistant-service/internal/domain"
)

const (
	convertPath = "/forms/chromium/convert/html"
	sourceName  = "renderer"

	// maxErrorBody caps how much of a failed response is kept for the error.
	maxErrorBody = 4 << 10
)

// Renderer turns complete document markup into a paginated binary document.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Config configures the renderer client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	MaxRetries int
	RetryDelay time.Duration

	// RetryServerErrors also retries 5xx responses and transport errors.
	RetryServerErrors bool
}

// Client is a Renderer backed by a Gotenberg-compatible HTTP service.
type Client struct {
	baseURL string
	http    *HTTPClient
	logger  zerolog.Logger
}

var _ Renderer = (*Client)(nil)

// NewClient creates a renderer client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("renderer base URL is required")
	}
	return &Client{
		baseURL: base,
		http: NewHTTPClient(HTTPClientConfig{
			Timeout:           cfg.Timeout,
			RateLimit:         cfg.RateLimit,
			BurstSize:         cfg.Burst,
			MaxRetries:        cfg.MaxRetries,
			RetryDelay:        cfg.RetryDelay,
			RetryServerErrors: cfg.RetryServerErrors,
		}),
		logger: logger.With().Str("component", "renderer").Logger(),
	}, nil
}

// pageFields are the Chromium print options: US Letter, the stylesheet's
// margins, backgrounds on, no header or footer.
func pageFields() [][2]string {
	in := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return [][2]string{
		{"paperWidth", in(compose.PageWidthIn)},
		{"paperHeight", in(compose.PageHeightIn)},
		{"marginTop", in(compose.MarginTopIn)},
		{"marginRight", in(compose.MarginRightIn)},
		{"marginBottom", in(compose.MarginBottomIn)},
		{"marginLeft", in(compose.MarginLeftIn)},
		{"printBackground", "true"},
		{"preferCssPageSize", "false"},
	}
}

// buildForm writes the multipart body for one conversion.
func buildForm(html string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	for _, f := range pageFields() {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// Render posts html to the engine and returns the PDF bytes. Any failure is
// reported as domain.ErrRenderFailed; no partial document is returned.
func (c *Client) Render(ctx context.Context, html string) ([]byte, error) {
	body, contentType, err := buildForm(html)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRenderFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertPath, bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrRenderFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrRenderFailed,
			domain.NewExternalAPIError(sourceName, 0, "request failed", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(msg))).
			Msg("renderer rejected document")
		return nil, fmt.Errorf("%w: %w", domain.ErrRenderFailed,
			domain.NewExternalAPIError(sourceName, resp.StatusCode, strings.TrimSpace(string(msg)), nil))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrRenderFailed, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrRenderFailed)
	}

	c.logger.Debug().
		Int("bytes", len(pdf)).
		Dur("elapsed", time.Since(start)).
		Msg("document rendered")
	return pdf, nil
}
