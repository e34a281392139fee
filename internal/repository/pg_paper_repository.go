package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

const (
	insertAuthorQuery = `
		INSERT INTO authors (
			id, paper_id, name, department, university, city, country, email,
			is_corresponding, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertSectionQuery = `
		INSERT INTO sections (id, paper_id, section_type, content, order_num)
		VALUES ($1, $2, $3, $4, $5)`

	insertReferenceQuery = `
		INSERT INTO paper_references (id, paper_id, author, title, publication, year, url, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertImageQuery = `
		INSERT INTO images (id, paper_id, file_path, caption, created_at)
		VALUES ($1, $2, $3, $4, $5)`
)

// Create inserts the paper row and all of its children.
func (r *PgPaperRepository) Create(ctx context.Context, paper *domain.Paper) error {
	if paper == nil {
		return domain.NewValidationError("paper", "paper cannot be nil")
	}
	if strings.TrimSpace(paper.Title) == "" {
		return domain.NewValidationError("title", "title is required")
	}

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO papers (id, title, abstract, keywords, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		paper.ID,
		paper.Title,
		paper.Abstract,
		paper.Keywords,
		now,
		now,
	).Scan(&paper.CreatedAt, &paper.UpdatedAt)
	if err != nil {
		if mapped := mapConstraintError(err, paper.ID); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert paper: %w", err)
	}

	batch := &pgx.Batch{}
	queueAuthors(batch, paper.ID, paper.Authors)
	queueSections(batch, paper.ID, paper.Sections)
	queueReferences(batch, paper.ID, paper.References)
	queueImages(batch, paper.ID, paper.Images, now)

	if err := r.execBatch(ctx, batch, paper.ID); err != nil {
		return fmt.Errorf("failed to insert paper children: %w", err)
	}
	return nil
}

// Get retrieves a paper by its UUID together with all of its children.
func (r *PgPaperRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := `
		SELECT id, title, abstract, keywords, created_at, updated_at
		FROM papers
		WHERE id = $1`

	var paper domain.Paper
	err := r.db.QueryRow(ctx, query, id).Scan(
		&paper.ID, &paper.Title, &paper.Abstract, &paper.Keywords,
		&paper.CreatedAt, &paper.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper: %w", err)
	}

	if paper.Authors, err = r.loadAuthors(ctx, id); err != nil {
		return nil, err
	}
	if paper.Sections, err = r.loadSections(ctx, id); err != nil {
		return nil, err
	}
	if paper.References, err = r.loadReferences(ctx, id); err != nil {
		return nil, err
	}
	if paper.Images, err = r.loadImages(ctx, id); err != nil {
		return nil, err
	}

	return &paper, nil
}

// List returns paper summaries ordered newest first.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*domain.PaperSummary, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var totalCount int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM papers").Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	query := `
		SELECT id, title, abstract, keywords, created_at, updated_at
		FROM papers
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers := make([]*domain.PaperSummary, 0, filter.Limit)
	for rows.Next() {
		var p domain.PaperSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.Abstract, &p.Keywords, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating papers: %w", err)
	}

	return papers, totalCount, nil
}

// Update rewrites the paper row and replaces authors, sections and references.
func (r *PgPaperRepository) Update(ctx context.Context, paper *domain.Paper) error {
	if paper == nil {
		return domain.NewValidationError("paper", "paper cannot be nil")
	}
	if strings.TrimSpace(paper.Title) == "" {
		return domain.NewValidationError("title", "title is required")
	}

	now := time.Now().UTC()
	query := `
		UPDATE papers
		SET title = $2, abstract = $3, keywords = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, paper.ID, paper.Title, paper.Abstract, paper.Keywords, now)
	if err != nil {
		return fmt.Errorf("failed to update paper: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", paper.ID.String())
	}
	paper.UpdatedAt = now

	batch := &pgx.Batch{}
	batch.Queue("DELETE FROM authors WHERE paper_id = $1", paper.ID)
	batch.Queue("DELETE FROM sections WHERE paper_id = $1", paper.ID)
	batch.Queue("DELETE FROM paper_references WHERE paper_id = $1", paper.ID)
	queueAuthors(batch, paper.ID, paper.Authors)
	queueSections(batch, paper.ID, paper.Sections)
	queueReferences(batch, paper.ID, paper.References)

	if err := r.execBatch(ctx, batch, paper.ID); err != nil {
		return fmt.Errorf("failed to replace paper children: %w", err)
	}
	return nil
}

// AddImages appends images to an existing paper.
func (r *PgPaperRepository) AddImages(ctx context.Context, paperID uuid.UUID, images []domain.Image) error {
	if len(images) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	queueImages(batch, paperID, images, time.Now().UTC())
	if err := r.execBatch(ctx, batch, paperID); err != nil {
		return fmt.Errorf("failed to add images: %w", err)
	}
	return nil
}

// CountImages returns the number of images stored for the paper.
func (r *PgPaperRepository) CountImages(ctx context.Context, paperID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM images WHERE paper_id = $1", paperID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

// UpdateImageCaption sets or clears the caption of one image.
func (r *PgPaperRepository) UpdateImageCaption(ctx context.Context, paperID, imageID uuid.UUID, caption *string) (*domain.Image, error) {
	query := `
		UPDATE images
		SET caption = $3
		WHERE id = $2 AND paper_id = $1
		RETURNING id, paper_id, file_path, caption, created_at`

	var img domain.Image
	err := r.db.QueryRow(ctx, query, paperID, imageID, caption).Scan(
		&img.ID, &img.PaperID, &img.FilePath, &img.Caption, &img.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("image", imageID.String())
		}
		return nil, fmt.Errorf("failed to update image caption: %w", err)
	}
	return &img, nil
}

func (r *PgPaperRepository) loadAuthors(ctx context.Context, paperID uuid.UUID) ([]domain.Author, error) {
	query := `
		SELECT id, name, department, university, city, country, email, is_corresponding, position
		FROM authors
		WHERE paper_id = $1
		ORDER BY position`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	defer rows.Close()

	authors := make([]domain.Author, 0)
	for rows.Next() {
		var a domain.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Department, &a.University, &a.City, &a.Country,
			&a.Email, &a.IsCorresponding, &a.Position); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authors: %w", err)
	}
	return authors, nil
}

func (r *PgPaperRepository) loadSections(ctx context.Context, paperID uuid.UUID) ([]domain.Section, error) {
	query := `
		SELECT id, section_type, content, order_num
		FROM sections
		WHERE paper_id = $1
		ORDER BY order_num`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sections: %w", err)
	}
	defer rows.Close()

	sections := make([]domain.Section, 0)
	for rows.Next() {
		var (
			s           domain.Section
			sectionType string
		)
		if err := rows.Scan(&s.ID, &sectionType, &s.Content, &s.OrderNum); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		s.Type = domain.SectionType(sectionType)
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sections: %w", err)
	}
	return sections, nil
}

func (r *PgPaperRepository) loadReferences(ctx context.Context, paperID uuid.UUID) ([]domain.Reference, error) {
	query := `
		SELECT id, author, title, publication, year, url, position
		FROM paper_references
		WHERE paper_id = $1
		ORDER BY position`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to load references: %w", err)
	}
	defer rows.Close()

	refs := make([]domain.Reference, 0)
	for rows.Next() {
		var ref domain.Reference
		if err := rows.Scan(&ref.ID, &ref.Author, &ref.Title, &ref.Publication, &ref.Year,
			&ref.URL, &ref.Position); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating references: %w", err)
	}
	return refs, nil
}

func (r *PgPaperRepository) loadImages(ctx context.Context, paperID uuid.UUID) ([]domain.Image, error) {
	query := `
		SELECT id, paper_id, file_path, caption, created_at
		FROM images
		WHERE paper_id = $1
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	defer rows.Close()

	images := make([]domain.Image, 0)
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.PaperID, &img.FilePath, &img.Caption, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}
	return images, nil
}

// execBatch sends the queued statements in one roundtrip and checks each result.
func (r *PgPaperRepository) execBatch(ctx context.Context, batch *pgx.Batch, paperID uuid.UUID) error {
	if batch.Len() == 0 {
		return nil
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			if mapped := mapConstraintError(err, paperID); mapped != nil {
				return mapped
			}
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return nil
}

// queueAuthors assigns IDs and positions in slice order.
func queueAuthors(batch *pgx.Batch, paperID uuid.UUID, authors []domain.Author) {
	for i := range authors {
		a := &authors[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.Position = i
		batch.Queue(insertAuthorQuery,
			a.ID, paperID, a.Name, a.Department, a.University, a.City, a.Country, a.Email,
			a.IsCorresponding, a.Position,
		)
	}
}

func queueSections(batch *pgx.Batch, paperID uuid.UUID, sections []domain.Section) {
	for i := range sections {
		s := &sections[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		batch.Queue(insertSectionQuery, s.ID, paperID, string(s.Type), s.Content, s.OrderNum)
	}
}

func queueReferences(batch *pgx.Batch, paperID uuid.UUID, refs []domain.Reference) {
	for i := range refs {
		ref := &refs[i]
		if ref.ID == uuid.Nil {
			ref.ID = uuid.New()
		}
		ref.Position = i
		batch.Queue(insertReferenceQuery,
			ref.ID, paperID, ref.Author, ref.Title, ref.Publication, ref.Year, ref.URL, ref.Position,
		)
	}
}

func queueImages(batch *pgx.Batch, paperID uuid.UUID, images []domain.Image, now time.Time) {
	for i := range images {
		img := &images[i]
		if img.ID == uuid.Nil {
			img.ID = uuid.New()
		}
		if img.CreatedAt.IsZero() {
			img.CreatedAt = now
		}
		img.PaperID = paperID
		img.FilePath = domain.NormalizeFilePath(img.FilePath)
		batch.Queue(insertImageQuery, img.ID, paperID, img.FilePath, img.Caption, img.CreatedAt)
	}
}

// mapConstraintError converts constraint violations into domain errors.
// It returns nil for errors that are not constraint violations.
func mapConstraintError(err error, paperID uuid.UUID) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgForeignKeyViolation:
		return domain.NewNotFoundError("paper", paperID.String())
	case pgUniqueViolation:
		return domain.NewValidationError(pgErr.TableName, "duplicate value violates "+pgErr.ConstraintName)
	case pgCheckViolation:
		return domain.NewValidationError(pgErr.TableName, "value violates "+pgErr.ConstraintName)
	}
	return nil
}
