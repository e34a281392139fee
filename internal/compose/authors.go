package compose

import (
	"fmt"
	"html"
	"strings"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// PlaceholderAuthorBlock is emitted when a paper has no authors.
const PlaceholderAuthorBlock = "Author Name, Department Name, University Name<br>City, Country<br>email@example.com"

// ComposeAuthorBlock renders the names line, one affiliation line per author,
// the combined emails line and the corresponding-author note. Superscripts are
// 1-based list positions. The input slice is not modified.
func ComposeAuthorBlock(authors []domain.Author) string {
	if len(authors) == 0 {
		return PlaceholderAuthorBlock
	}

	list := make([]domain.Author, len(authors))
	copy(list, authors)
	list = domain.EnsureCorrespondingAuthor(list)

	names := make([]string, len(list))
	emails := make([]string, len(list))
	var affiliations strings.Builder
	for i, a := range list {
		sup := superscript(i)
		names[i] = html.EscapeString(a.Name) + sup
		emails[i] = sup + html.EscapeString(a.Email)
		fmt.Fprintf(&affiliations, `<div class="affiliation-item">%s%s</div>`, sup, html.EscapeString(a.Affiliation()))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<div class="author-names">%s</div>`, strings.Join(names, ", "))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, `<div class="author-affiliations-center">%s</div>`, affiliations.String())
	sb.WriteString("\n")
	fmt.Fprintf(&sb, `<div class="author-emails">Email: %s</div>`, strings.Join(emails, ", "))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, `<div class="corresponding-note">%sCorresponding Author</div>`,
		superscript(domain.CorrespondingIndex(list)))
	return sb.String()
}

func superscript(index int) string {
	return fmt.Sprintf("<sup>%d</sup>", index+1)
}
