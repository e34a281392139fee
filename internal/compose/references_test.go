package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

func TestClassifyVenue(t *testing.T) {
	tests := []struct {
		publication string
		expected    string
	}{
		{"IEEE Transactions on X (Journal)", VenueJournal},
		{"Proc. ACM Conference on Y", VenueConference},
		{"A Book of Things", VenueBook},
		{"arXiv preprint", VenueGeneric},
		{"", VenueGeneric},
		{"JOURNAL of Everything", VenueJournal},
		// Journal is checked first.
		{"Conference Journal", VenueJournal},
	}

	for _, tt := range tests {
		t.Run(tt.publication, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyVenue(tt.publication))
		})
	}
}

func TestFormatReference(t *testing.T) {
	base := domain.Reference{Author: "A. Smith", Title: "On Things", Year: 2020}

	t.Run("journal", func(t *testing.T) {
		ref := base
		ref.Publication = "IEEE Transactions on X (Journal)"
		assert.Equal(t,
			`A. Smith, "On Things," <em>IEEE Transactions on X (Journal)</em>, vol. X, no. Y, pp. XX-XX, 2020.`,
			FormatReference(ref))
	})

	t.Run("conference", func(t *testing.T) {
		ref := base
		ref.Publication = "Proc. ACM Conference on Y"
		assert.Equal(t,
			`A. Smith, "On Things," in <em>Proc. Proc. ACM Conference on Y</em>, City, Country, 2020, pp. XX-XX.`,
			FormatReference(ref))
	})

	t.Run("book", func(t *testing.T) {
		ref := base
		ref.Publication = "Handbook"
		assert.Equal(t, `A. Smith, <em>On Things</em>. City, Country: Publisher, 2020.`, FormatReference(ref))
	})

	t.Run("generic", func(t *testing.T) {
		ref := base
		ref.Publication = "arXiv"
		assert.Equal(t, `A. Smith, "On Things," arXiv, 2020.`, FormatReference(ref))
	})

	t.Run("non-empty url appends exactly one online clause", func(t *testing.T) {
		for _, pub := range []string{"Some Journal", "Big Conference", "Good Book", "Blog"} {
			ref := base
			ref.Publication = pub
			ref.URL = "https://example.org/paper"
			got := FormatReference(ref)
			assert.Equal(t, 1, strings.Count(got, "[Online]. Available: "), pub)
			assert.True(t, strings.HasSuffix(got, " [Online]. Available: https://example.org/paper"), pub)
		}
	})

	t.Run("empty url appends nothing", func(t *testing.T) {
		ref := base
		ref.Publication = "Some Journal"
		assert.NotContains(t, FormatReference(ref), "[Online]")
	})

	t.Run("escapes markup in fields", func(t *testing.T) {
		ref := base
		ref.Title = "<script>x</script>"
		assert.NotContains(t, FormatReference(ref), "<script>")
	})
}

func TestFormatReferences(t *testing.T) {
	refs := []domain.Reference{
		{Author: "B", Title: "Second alphabetically", Publication: "Journal", Year: 2001},
		{Author: "A", Title: "First alphabetically", Publication: "Misc", Year: 1999},
	}

	got := FormatReferences(refs)

	assert.Equal(t, 2, strings.Count(got, `<li class="ref-item"`))
	assert.Contains(t, got, `<li class="ref-item" value="1">B, `)
	assert.Contains(t, got, `<li class="ref-item" value="2">A, `)
	assert.Less(t, strings.Index(got, "Second alphabetically"), strings.Index(got, "First alphabetically"))
	assert.Empty(t, FormatReferences(nil))
}
