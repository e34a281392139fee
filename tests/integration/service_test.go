//go:build integration

package integration

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-assistant-service/internal/assets"
	"github.com/helixir/paper-assistant-service/internal/compose"
	"github.com/helixir/paper-assistant-service/internal/domain"
	"github.com/helixir/paper-assistant-service/internal/render"
	"github.com/helixir/paper-assistant-service/internal/service"
	"github.com/helixir/paper-assistant-service/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newIntegrationService(t *testing.T, rendererURL string) *service.PaperService {
	t.Helper()

	root := t.TempDir()
	store, err := storage.NewLocalStore(root, zerolog.Nop())
	require.NoError(t, err)

	resolver := assets.NewResolver(assets.Config{UploadsRoot: root, WorkingDir: t.TempDir()})
	composer := compose.NewComposer(resolver, compose.Options{}, zerolog.Nop())

	deps := service.Deps{
		DB:       testDB,
		Tx:       testDB,
		Store:    store,
		Composer: composer,
		Logger:   zerolog.Nop(),
	}
	if rendererURL != "" {
		client, err := render.NewClient(render.Config{BaseURL: rendererURL, Timeout: 5 * time.Second}, zerolog.Nop())
		require.NoError(t, err)
		deps.Renderer = client
	}

	svc, err := service.New(deps)
	require.NoError(t, err)
	return svc
}

func TestPaperService_CreateComposeAndRender(t *testing.T) {
	cleanTables(t)
	ctx := context.Background()

	var received string
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		received = string(b)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 integration"))
	}))
	defer engine.Close()

	svc := newIntegrationService(t, engine.URL)

	paper, err := svc.Create(ctx, service.PaperInput{
		Title:      "Scan Analysis",
		Abstract:   "We analyse scans.",
		Keywords:   "deep learning, imaging",
		Authors:    []domain.Author{{Name: "Ada Lovelace", Department: "CS", University: "Analytical", City: "London", Country: "UK", Email: "ada@example.com"}},
		GenerateAI: true,
	}, []service.Upload{
		{FileName: "scan result.png", ContentType: "image/png", Body: bytes.NewReader(pngHeader)},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, paper.ID)
	require.NoError(t, err)
	assert.Len(t, got.Sections, len(domain.CanonicalSectionTypes()))
	require.Len(t, got.Images, 1)
	assert.True(t, strings.HasPrefix(got.Images[0].CaptionText(), "Fig. 1: "))
	assert.True(t, got.Authors[0].IsCorresponding)

	doc, err := svc.ComposeHTML(ctx, paper.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Figures)
	assert.Zero(t, doc.Placeholders)
	assert.Contains(t, doc.HTML, "data:image/png;base64,")
	assert.Contains(t, doc.HTML, "Scan Analysis")

	pdf, err := svc.GeneratePDF(ctx, paper.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 integration", string(pdf))
	assert.Contains(t, received, "Scan Analysis")
}

func TestPaperService_UpdateAppendsImages(t *testing.T) {
	cleanTables(t)
	ctx := context.Background()
	svc := newIntegrationService(t, "")

	paper, err := svc.Create(ctx, service.PaperInput{Title: "Growing"}, []service.Upload{
		{FileName: "a.png", ContentType: "image/png", Body: bytes.NewReader(pngHeader)},
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, paper.ID, service.PaperInput{Title: "Grown"}, []service.Upload{
		{FileName: "b.png", ContentType: "image/png", Body: bytes.NewReader(pngHeader)},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, paper.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grown", got.Title)
	require.Len(t, got.Images, 2)
	assert.True(t, strings.HasPrefix(got.Images[1].CaptionText(), "Fig. 2: "))

	_, err = svc.GeneratePDF(ctx, paper.ID)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
