// Package compose turns a paper snapshot into a self-contained, styled
// IEEE-style two-column document ready for PDF rendering.
//
// Composition is deterministic and holds no shared mutable state: a Composer
// may be used from many goroutines at once. The only I/O is reading figure
// bytes through the configured AssetSource.
package compose

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/helixir/paper-assistant-service/internal/assets"
	"github.com/helixir/paper-assistant-service/internal/domain"
)

// PageBreakAfterSection is the zero-based index of the section followed by a
// hard page break.
const PageBreakAfterSection = 1

var romanNumerals = []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"}

var sectionTitles = map[domain.SectionType]string{
	domain.SectionTypeIntroduction: "Introduction",
	domain.SectionTypeMethodology:  "Methodology",
	domain.SectionTypeResults:      "Results",
	domain.SectionTypeDiscussion:   "Discussion and Analysis",
	domain.SectionTypeConclusion:   "Conclusion",
}

// AssetSource locates figure bytes by stored path.
type AssetSource interface {
	Resolve(ctx context.Context, storedPath string) (*assets.Asset, error)
}

// Options tune composition.
type Options struct {
	// Placement selects the figure placement policy.
	Placement PlacementPolicy
	// StrictFigures disables the placeholder image; an unresolvable figure
	// then fails the whole composition.
	StrictFigures bool
}

// Document is the composed markup plus counters describing it.
type Document struct {
	HTML         string
	Sections     int
	Figures      int
	Placeholders int
	References   int
	// Strategies counts resolved figures by the lookup strategy that found them.
	Strategies map[assets.Strategy]int
}

// Composer assembles paper snapshots into document markup.
type Composer struct {
	assets AssetSource
	opts   Options
	logger zerolog.Logger
}

// NewComposer creates a Composer. A nil AssetSource renders every figure as
// the placeholder (or fails in strict mode).
func NewComposer(src AssetSource, opts Options, logger zerolog.Logger) *Composer {
	if opts.Placement == "" {
		opts.Placement = PlacementRunningCursor
	}
	return &Composer{
		assets: src,
		opts:   opts,
		logger: logger.With().Str("component", "composer").Logger(),
	}
}

// SectionHeading returns the numbered heading for the section at index.
// Numerals run I..X, then fall back to Arabic numbers.
func SectionHeading(t domain.SectionType, index int) string {
	numeral := strconv.Itoa(index + 1)
	if index >= 0 && index < len(romanNumerals) {
		numeral = romanNumerals[index]
	}
	return numeral + ". " + SectionTitle(t)
}

// SectionTitle returns the display title of a section type. Unknown types are
// shown with their first letter capitalised.
func SectionTitle(t domain.SectionType) string {
	if title, ok := sectionTitles[t]; ok {
		return title
	}
	return cases.Title(language.Und, cases.NoLower).String(string(t))
}

// Paragraphs splits section content on line breaks, dropping blank lines.
func Paragraphs(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Compose renders the paper into a complete HTML document.
func (c *Composer) Compose(ctx context.Context, paper *domain.Paper) (*Document, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "is required")
	}

	sections := make([]domain.Section, len(paper.Sections))
	copy(sections, paper.Sections)
	domain.SortSections(sections)

	doc := &Document{Sections: len(sections), References: len(paper.References)}

	var body strings.Builder
	fmt.Fprintf(&body, "<div class=\"paper-title\">%s</div>\n", html.EscapeString(paper.Title))
	fmt.Fprintf(&body, "<div class=\"author-block\">\n%s\n</div>\n", ComposeAuthorBlock(paper.Authors))
	fmt.Fprintf(&body, "<div class=\"abstract-container\">\n<div class=\"abstract-title\">Abstract</div>\n<div class=\"abstract\">%s</div>\n</div>\n",
		html.EscapeString(paper.Abstract))
	fmt.Fprintf(&body, "<div class=\"keywords\"><strong>Keywords—</strong>%s</div>\n", html.EscapeString(paper.Keywords))

	if err := c.writeSections(ctx, &body, sections, paper.Images, doc); err != nil {
		return nil, err
	}

	body.WriteString("<div class=\"ref-list\">\n<div class=\"ref-title\">REFERENCES</div>\n<ol>\n")
	body.WriteString(FormatReferences(paper.References))
	body.WriteString("</ol>\n</div>\n")

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(paper.Title))
	sb.WriteString("<style>")
	sb.WriteString(stylesheet)
	sb.WriteString("</style>\n</head>\n<body>\n")
	sb.WriteString(body.String())
	sb.WriteString("</body>\n</html>\n")

	doc.HTML = sb.String()

	c.logger.Debug().
		Str("paper_id", paper.ID.String()).
		Int("sections", doc.Sections).
		Int("figures", doc.Figures).
		Int("placeholders", doc.Placeholders).
		Int("references", doc.References).
		Msg("document composed")

	return doc, nil
}

func (c *Composer) writeSections(ctx context.Context, w *strings.Builder, sections []domain.Section, images []domain.Image, doc *Document) error {
	plan := PlanFigures(images, len(sections), c.opts.Placement)
	figureNumber := 0

	for i, section := range sections {
		fmt.Fprintf(w, "<div class=\"section\">\n<h1>%s</h1>\n", html.EscapeString(SectionHeading(section.Type, i)))
		for _, p := range Paragraphs(section.Content) {
			fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(p))
		}

		for _, img := range plan[i] {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
			}
			figureNumber++

			asset, err := c.resolveFigure(ctx, img)
			if err != nil {
				return err
			}
			if asset.Placeholder {
				doc.Placeholders++
			} else {
				if doc.Strategies == nil {
					doc.Strategies = make(map[assets.Strategy]int)
				}
				doc.Strategies[asset.Strategy]++
			}
			doc.Figures++

			caption := img.CaptionText()
			alt := caption
			if caption == "" {
				caption = "Fig. " + strconv.Itoa(figureNumber)
				alt = "Figure"
			}
			fmt.Fprintf(w, "<div class=\"image-container\">\n<img class=\"image\" src=\"%s\" alt=\"%s\">\n<div class=\"image-caption\">%s</div>\n</div>\n",
				asset.DataURI(), html.EscapeString(alt), html.EscapeString(caption))
		}

		w.WriteString("</div>\n")
		if i == PageBreakAfterSection {
			w.WriteString("<div class=\"page-break\"></div>\n")
		}
	}
	return nil
}

func (c *Composer) resolveFigure(ctx context.Context, img domain.Image) (*assets.Asset, error) {
	var err error = assets.ErrNotFound
	if c.assets != nil {
		var asset *assets.Asset
		asset, err = c.assets.Resolve(ctx, img.FilePath)
		if err == nil {
			return asset, nil
		}
	}

	if c.opts.StrictFigures {
		return nil, fmt.Errorf("resolve figure %s: %w", img.FilePath, err)
	}
	c.logger.Warn().Err(err).
		Str("image_id", img.ID.String()).
		Str("path", img.FilePath).
		Msg("figure not found, using placeholder")
	return assets.Placeholder(), nil
}
