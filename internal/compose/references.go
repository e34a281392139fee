package compose

import (
	"fmt"
	"html"
	"strings"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// VenueStyle is a citation template selected by the reference's publication venue.
type VenueStyle struct {
	Name    string
	Matches func(publication string) bool
	Format  func(author, title, publication string, year int) string
}

// Venue style names.
const (
	VenueJournal    = "journal"
	VenueConference = "conference"
	VenueBook       = "book"
	VenueGeneric    = "generic"
)

func venueKeyword(keyword string) func(string) bool {
	return func(publication string) bool {
		return strings.Contains(strings.ToLower(publication), keyword)
	}
}

// venueStyles is evaluated in order; the first match wins.
var venueStyles = []VenueStyle{
	{
		Name:    VenueJournal,
		Matches: venueKeyword("journal"),
		Format: func(a, t, p string, y int) string {
			return fmt.Sprintf(`%s, "%s," <em>%s</em>, vol. X, no. Y, pp. XX-XX, %d.`, a, t, p, y)
		},
	},
	{
		Name:    VenueConference,
		Matches: venueKeyword("conference"),
		Format: func(a, t, p string, y int) string {
			return fmt.Sprintf(`%s, "%s," in <em>Proc. %s</em>, City, Country, %d, pp. XX-XX.`, a, t, p, y)
		},
	},
	{
		Name:    VenueBook,
		Matches: venueKeyword("book"),
		Format: func(a, t, _ string, y int) string {
			return fmt.Sprintf(`%s, <em>%s</em>. City, Country: Publisher, %d.`, a, t, y)
		},
	},
}

var genericStyle = VenueStyle{
	Name:    VenueGeneric,
	Matches: func(string) bool { return true },
	Format: func(a, t, p string, y int) string {
		return fmt.Sprintf(`%s, "%s," %s, %d.`, a, t, p, y)
	},
}

func styleFor(publication string) VenueStyle {
	for _, s := range venueStyles {
		if s.Matches(publication) {
			return s
		}
	}
	return genericStyle
}

// ClassifyVenue returns the name of the citation style used for a publication.
func ClassifyVenue(publication string) string {
	return styleFor(publication).Name
}

// FormatReference renders a single citation body (without list markup).
func FormatReference(ref domain.Reference) string {
	style := styleFor(ref.Publication)
	out := style.Format(
		html.EscapeString(ref.Author),
		html.EscapeString(ref.Title),
		html.EscapeString(ref.Publication),
		ref.Year,
	)
	if ref.URL != "" {
		out += " [Online]. Available: " + html.EscapeString(ref.URL)
	}
	return out
}

// FormatReferenceItem renders a reference as a list item numbered index+1.
func FormatReferenceItem(ref domain.Reference, index int) string {
	return fmt.Sprintf(`<li class="ref-item" value="%d">%s</li>`, index+1, FormatReference(ref))
}

// FormatReferences renders every reference as a list item in input order.
// Numbers are positional.
func FormatReferences(refs []domain.Reference) string {
	var sb strings.Builder
	for i, ref := range refs {
		sb.WriteString(FormatReferenceItem(ref, i))
		sb.WriteString("\n")
	}
	return sb.String()
}
