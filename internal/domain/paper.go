package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Author is one entry of a paper's ordered author list.
type Author struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Department      string    `json:"department"`
	University      string    `json:"university"`
	City            string    `json:"city"`
	Country         string    `json:"country"`
	Email           string    `json:"email"`
	IsCorresponding bool      `json:"is_corresponding"`
	Position        int       `json:"position"`
}

// Affiliation returns the comma-joined department, university, city and country.
func (a Author) Affiliation() string {
	var sb strings.Builder
	sb.WriteString(a.Department)
	sb.WriteString(", ")
	sb.WriteString(a.University)
	sb.WriteString(", ")
	sb.WriteString(a.City)
	sb.WriteString(", ")
	sb.WriteString(a.Country)
	return sb.String()
}

// Section is one fixed-type content block of a paper.
type Section struct {
	ID       uuid.UUID   `json:"id"`
	Type     SectionType `json:"section_type"`
	Content  string      `json:"content"`
	OrderNum int         `json:"order_num"`
}

// IsBlank reports whether the section has no content other than whitespace.
func (s Section) IsBlank() bool {
	return strings.TrimSpace(s.Content) == ""
}

// Reference is one bibliographic entry. Display order is insertion order.
type Reference struct {
	ID          uuid.UUID `json:"id"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Publication string    `json:"publication"`
	Year        int       `json:"year"`
	URL         string    `json:"url,omitempty"`
	Position    int       `json:"position"`
}

// Image is an uploaded figure. FilePath is relative and uses forward slashes.
type Image struct {
	ID        uuid.UUID `json:"id"`
	PaperID   uuid.UUID `json:"paper_id"`
	FilePath  string    `json:"file_path"`
	Caption   *string   `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CaptionText returns the caption, or "" when none is stored.
func (i Image) CaptionText() string {
	if i.Caption == nil {
		return ""
	}
	return *i.Caption
}

// Paper is the root authored document record. It owns its authors,
// sections, references and images.
type Paper struct {
	ID         uuid.UUID
	Title      string
	Abstract   string
	Keywords   string
	Authors    []Author
	Sections   []Section
	References []Reference
	Images     []Image
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// KeywordList splits the comma-delimited keyword field into trimmed terms.
func (p *Paper) KeywordList() []string {
	return SplitKeywords(p.Keywords)
}

// SplitKeywords splits a comma-delimited keyword string into trimmed terms,
// dropping empty ones.
func SplitKeywords(keywords string) []string {
	parts := strings.Split(keywords, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// NormalizeFilePath converts backslash separators to forward slashes.
func NormalizeFilePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// EnsureCorrespondingAuthor enforces that exactly one author is marked
// corresponding. When none is marked the first author is promoted; when
// several are marked only the first marked one keeps the flag. Positions are
// renumbered to match slice order. The input slice is modified in place and
// returned.
func EnsureCorrespondingAuthor(authors []Author) []Author {
	found := false
	for i := range authors {
		authors[i].Position = i
		if authors[i].IsCorresponding {
			if found {
				authors[i].IsCorresponding = false
			}
			found = true
		}
	}
	if !found && len(authors) > 0 {
		authors[0].IsCorresponding = true
	}
	return authors
}

// CorrespondingIndex returns the index of the first corresponding author, or -1.
func CorrespondingIndex(authors []Author) int {
	for i, a := range authors {
		if a.IsCorresponding {
			return i
		}
	}
	return -1
}

// RemoveAuthor returns a new author list without the author at index i and
// with the corresponding-author invariant restored.
func RemoveAuthor(authors []Author, i int) []Author {
	if i < 0 || i >= len(authors) {
		return authors
	}
	out := make([]Author, 0, len(authors)-1)
	out = append(out, authors[:i]...)
	out = append(out, authors[i+1:]...)
	return EnsureCorrespondingAuthor(out)
}

// PaperSummary is the list view of a paper, without children.
type PaperSummary struct {
	ID        uuid.UUID
	Title     string
	Abstract  string
	Keywords  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
