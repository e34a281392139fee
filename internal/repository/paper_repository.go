package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// PaperRepository handles persistence of papers and their owned children.
type PaperRepository interface {
	// Create inserts the paper row and all of its authors, sections,
	// references and images. Missing IDs are generated. CreatedAt and
	// UpdatedAt are populated from the database.
	Create(ctx context.Context, paper *domain.Paper) error

	// Get loads a paper with its children: authors by position, sections by
	// order_num, references by position and images by upload time.
	// Returns domain.ErrNotFound if no matching paper exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// List returns paper summaries newest first and the total count.
	List(ctx context.Context, filter PaperFilter) ([]*domain.PaperSummary, int64, error)

	// Update rewrites title, abstract and keywords and replaces authors,
	// sections and references. Images are left untouched.
	// Returns domain.ErrNotFound if the paper does not exist.
	Update(ctx context.Context, paper *domain.Paper) error

	// AddImages appends images to an existing paper.
	// Returns domain.ErrNotFound if the paper does not exist.
	AddImages(ctx context.Context, paperID uuid.UUID, images []domain.Image) error

	// CountImages returns how many images the paper already has.
	CountImages(ctx context.Context, paperID uuid.UUID) (int, error)

	// UpdateImageCaption sets or clears the caption of one image of a paper.
	// Returns domain.ErrNotFound if the image does not belong to the paper.
	UpdateImageCaption(ctx context.Context, paperID, imageID uuid.UUID, caption *string) (*domain.Image, error)
}

// PaperFilter specifies criteria for listing papers.
type PaperFilter struct {
	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
