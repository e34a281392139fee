// Package service orchestrates paper authoring and document generation on
// top of the repository, file store, composer and renderer.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/compose"
	"github.com/helixir/paper-assistant-service/internal/database"
	"github.com/helixir/paper-assistant-service/internal/domain"
	"github.com/helixir/paper-assistant-service/internal/events"
	"github.com/helixir/paper-assistant-service/internal/observability"
	"github.com/helixir/paper-assistant-service/internal/render"
	"github.com/helixir/paper-assistant-service/internal/repository"
	"github.com/helixir/paper-assistant-service/internal/storage"
)

// Document formats.
const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// maxNameAttempts bounds retries when an upload name is already taken.
const maxNameAttempts = 5

// RepositoryFactory binds a PaperRepository to a pool or transaction.
type RepositoryFactory func(db repository.DBTX) repository.PaperRepository

// DocumentComposer lays a paper out as markup.
type DocumentComposer interface {
	Compose(ctx context.Context, paper *domain.Paper) (*compose.Document, error)
}

// PaperInput is the authored content of a create or update request.
type PaperInput struct {
	Title      string
	Abstract   string
	Keywords   string
	Authors    []domain.Author
	Sections   []domain.Section
	References []domain.Reference
	// GenerateAI fills blank sections with template text.
	GenerateAI bool
}

// Upload is one accepted figure file.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// Deps are the collaborators of PaperService.
type Deps struct {
	DB        repository.DBTX
	Tx        database.TxRunner
	Repos     RepositoryFactory
	Store     storage.FileStore
	Composer  DocumentComposer
	Renderer  render.Renderer
	Emitter   *events.Emitter
	Publisher events.Publisher
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
	Clock     func() time.Time
}

// PaperService implements the paper use cases.
type PaperService struct {
	db        repository.DBTX
	tx        database.TxRunner
	repos     RepositoryFactory
	store     storage.FileStore
	composer  DocumentComposer
	renderer  render.Renderer
	emitter   *events.Emitter
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a PaperService.
func New(deps Deps) (*PaperService, error) {
	if deps.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if deps.Store == nil {
		return nil, errors.New("file store is required")
	}
	if deps.Composer == nil {
		return nil, errors.New("composer is required")
	}
	if deps.Repos == nil {
		deps.Repos = func(db repository.DBTX) repository.PaperRepository {
			return repository.NewPgPaperRepository(db)
		}
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NewEmitter(events.EmitterConfig{})
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &PaperService{
		db:        deps.DB,
		tx:        deps.Tx,
		repos:     deps.Repos,
		store:     deps.Store,
		composer:  deps.Composer,
		renderer:  deps.Renderer,
		emitter:   deps.Emitter,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With().Str("component", "paper_service").Logger(),
		now:       deps.Clock,
	}, nil
}

// Create stores a new paper together with its uploads.
func (s *PaperService) Create(ctx context.Context, in PaperInput, uploads []Upload) (*domain.Paper, error) {
	paper, autofilled, err := s.buildPaper(uuid.New(), in)
	if err != nil {
		return nil, err
	}

	images, err := s.saveUploads(ctx, uploads)
	if err != nil {
		return nil, err
	}
	captionUploads(images, uploads, 0, compose.DetailsOf(paper))
	paper.Images = images

	err = s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		return s.repos(tx).Create(ctx, paper)
	})
	if err != nil {
		return nil, fmt.Errorf("create paper: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPaperCreated(autofilled)
		s.metrics.RecordImagesUploaded(len(images))
	}
	log := observability.LoggerFromContext(ctx, s.logger)
	log.Info().
		Str("paper_id", paper.ID.String()).
		Int("authors", len(paper.Authors)).
		Int("images", len(images)).
		Int("autofilled", autofilled).
		Msg("paper created")

	s.publish(ctx, paper.ID, domain.EventTypePaperCreated, domain.PaperCreatedPayload{
		Title:      paper.Title,
		Authors:    len(paper.Authors),
		Sections:   len(paper.Sections),
		References: len(paper.References),
		Images:     len(images),
		AutoFilled: autofilled > 0,
	})

	return paper, nil
}

// Update replaces the authored content of a paper and appends uploads.
func (s *PaperService) Update(ctx context.Context, id uuid.UUID, in PaperInput, uploads []Upload) (*domain.Paper, error) {
	paper, autofilled, err := s.buildPaper(id, in)
	if err != nil {
		return nil, err
	}

	images, err := s.saveUploads(ctx, uploads)
	if err != nil {
		return nil, err
	}

	var updated *domain.Paper
	err = s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		repo := s.repos(tx)
		if err := repo.Update(ctx, paper); err != nil {
			return err
		}
		if len(images) > 0 {
			existing, err := repo.CountImages(ctx, id)
			if err != nil {
				return err
			}
			captionUploads(images, uploads, existing, compose.DetailsOf(paper))
			if err := repo.AddImages(ctx, id, images); err != nil {
				return err
			}
		}
		var err error
		updated, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update paper: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPaperUpdated(autofilled)
		s.metrics.RecordImagesUploaded(len(images))
	}
	log := observability.LoggerFromContext(ctx, s.logger)
	log.Info().
		Str("paper_id", id.String()).
		Int("images_added", len(images)).
		Msg("paper updated")

	s.publish(ctx, id, domain.EventTypePaperUpdated, domain.PaperUpdatedPayload{
		Title:       updated.Title,
		ImagesAdded: len(images),
		AutoFilled:  autofilled > 0,
	})

	return updated, nil
}

// Get loads a paper with all of its children.
func (s *PaperService) Get(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	var paper *domain.Paper
	err := s.tx.WithReadOnlyTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		paper, err = s.repos(tx).Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return paper, nil
}

// List returns paper summaries newest first together with the total count.
func (s *PaperService) List(ctx context.Context, limit, offset int) ([]*domain.PaperSummary, int64, error) {
	return s.repos(s.db).List(ctx, repository.PaperFilter{Limit: limit, Offset: offset})
}

// UpdateImageCaption sets the caption of one image. A blank caption clears it.
func (s *PaperService) UpdateImageCaption(ctx context.Context, paperID, imageID uuid.UUID, caption string) (*domain.Image, error) {
	var value *string
	if c := strings.TrimSpace(caption); c != "" {
		value = &c
	}
	return s.repos(s.db).UpdateImageCaption(ctx, paperID, imageID, value)
}

// ComposeHTML renders the paper as a standalone HTML document.
func (s *PaperService) ComposeHTML(ctx context.Context, id uuid.UUID) (*compose.Document, error) {
	doc, err := s.compose(ctx, id, FormatHTML)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordDocumentGenerated(FormatHTML, len(doc.HTML))
	}
	return doc, nil
}

// GeneratePDF composes the paper and converts it to PDF bytes.
func (s *PaperService) GeneratePDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("%w: no renderer configured", domain.ErrServiceUnavailable)
	}

	start := s.now()
	doc, err := s.compose(ctx, id, FormatPDF)
	if err != nil {
		return nil, err
	}

	logger := observability.WithDocumentContext(observability.LoggerFromContext(ctx, s.logger), id.String(), FormatPDF)

	renderStart := s.now()
	pdf, err := s.renderer.Render(ctx, doc.HTML)
	if s.metrics != nil {
		s.metrics.RecordRender(s.now().Sub(renderStart).Seconds())
	}
	if err != nil {
		s.recordFailure(FormatPDF, err, observability.ReasonRender)
		logger.Error().Err(err).Msg("pdf rendering failed")
		return nil, fmt.Errorf("generate pdf: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordDocumentGenerated(FormatPDF, len(pdf))
	}
	logger.Info().Int("bytes", len(pdf)).Int("figures", doc.Figures).Msg("pdf generated")

	s.publish(ctx, id, domain.EventTypeDocumentGenerated, domain.DocumentGeneratedPayload{
		Format:       FormatPDF,
		Bytes:        len(pdf),
		Figures:      doc.Figures,
		Placeholders: doc.Placeholders,
		Duration:     s.now().Sub(start),
	})

	return pdf, nil
}

func (s *PaperService) compose(ctx context.Context, id uuid.UUID, format string) (*compose.Document, error) {
	paper, err := s.Get(ctx, id)
	if err != nil {
		s.recordFailure(format, err, observability.ReasonNotFound)
		return nil, err
	}

	start := s.now()
	doc, err := s.composer.Compose(ctx, paper)
	if err != nil {
		s.recordFailure(format, err, observability.ReasonCompose)
		if errors.Is(err, domain.ErrCancelled) {
			return nil, fmt.Errorf("compose paper %s: %w", id, err)
		}
		return nil, fmt.Errorf("compose paper %s: %w: %w", id, domain.ErrGenerationFailed, err)
	}

	if s.metrics != nil {
		s.metrics.RecordComposition(s.now().Sub(start).Seconds(), doc.Placeholders)
		for strategy, n := range doc.Strategies {
			for i := 0; i < n; i++ {
				s.metrics.RecordFigureResolved(string(strategy))
			}
		}
	}
	return doc, nil
}

func (s *PaperService) recordFailure(format string, err error, reason string) {
	if s.metrics == nil {
		return
	}
	if errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
		reason = observability.ReasonCancelled
	}
	s.metrics.RecordDocumentFailed(format, reason)
}

// buildPaper validates input and applies the authoring invariants: canonical
// sections, exactly one corresponding author and optional autofill.
func (s *PaperService) buildPaper(id uuid.UUID, in PaperInput) (*domain.Paper, int, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, 0, domain.NewValidationError("title", "title is required")
	}
	for i, sec := range in.Sections {
		if !sec.Type.IsValid() {
			return nil, 0, domain.NewValidationError(fmt.Sprintf("sections[%d].section_type", i), "unknown section type "+string(sec.Type))
		}
	}
	for i, a := range in.Authors {
		if strings.TrimSpace(a.Name) == "" {
			return nil, 0, domain.NewValidationError(fmt.Sprintf("authors[%d].name", i), "name is required")
		}
	}
	for i, ref := range in.References {
		if strings.TrimSpace(ref.Title) == "" {
			return nil, 0, domain.NewValidationError(fmt.Sprintf("references[%d].title", i), "title is required")
		}
	}

	paper := &domain.Paper{
		ID:         id,
		Title:      title,
		Abstract:   in.Abstract,
		Keywords:   in.Keywords,
		Authors:    domain.EnsureCorrespondingAuthor(append([]domain.Author(nil), in.Authors...)),
		Sections:   domain.NormalizeSections(in.Sections),
		References: append([]domain.Reference(nil), in.References...),
	}

	autofilled := 0
	if in.GenerateAI {
		autofilled = compose.AutofillSections(paper.Sections, compose.DetailsOf(paper))
	}
	return paper, autofilled, nil
}

// saveUploads writes each upload to the file store and returns the
// corresponding images, without captions.
func (s *PaperService) saveUploads(ctx context.Context, uploads []Upload) ([]domain.Image, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	images := make([]domain.Image, 0, len(uploads))
	for _, u := range uploads {
		if !storage.IsAllowedType(u.ContentType) {
			if s.metrics != nil {
				s.metrics.RecordUploadRejected("unsupported_type")
			}
			return nil, fmt.Errorf("%w: %s has type %s", domain.ErrUnsupportedMedia, u.FileName, u.ContentType)
		}

		relPath, err := s.saveOne(ctx, u)
		if err != nil {
			return nil, err
		}
		images = append(images, domain.Image{ID: uuid.New(), FilePath: relPath})
	}
	return images, nil
}

func (s *PaperService) saveOne(ctx context.Context, u Upload) (string, error) {
	now := s.now()
	var lastErr error
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := storage.UploadName(now.Add(time.Duration(attempt)*time.Millisecond), u.FileName)
		relPath, err := s.store.Save(ctx, name, u.Body)
		if err == nil {
			return relPath, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("save upload %s: %w", u.FileName, err)
		}
		lastErr = err
	}
	return "", fmt.Errorf("save upload %s: %w", u.FileName, lastErr)
}

// captionUploads numbers new figures after the existing ones.
func captionUploads(images []domain.Image, uploads []Upload, existing int, details compose.PaperDetails) {
	for i := range images {
		caption := compose.GenerateCaption(uploads[i].FileName, existing+i+1, details)
		images[i].Caption = &caption
	}
}

func (s *PaperService) publish(ctx context.Context, paperID uuid.UUID, eventType string, payload interface{}) {
	env, err := s.emitter.Emit(events.EmitParams{
		PaperID:       paperID,
		EventType:     eventType,
		Payload:       payload,
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		RequestID:     observability.RequestIDFromContext(ctx),
	})
	if err == nil {
		err = s.publisher.Publish(ctx, env)
	}
	if s.metrics != nil {
		s.metrics.RecordEvent(eventType, err)
	}
	if err != nil {
		log := observability.LoggerFromContext(ctx, s.logger)
		log.Warn().
			Err(err).
			Str("event_type", eventType).
			Str("paper_id", paperID.String()).
			Msg("failed to publish event")
	}
}
