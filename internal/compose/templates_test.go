package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

func testDetails() PaperDetails {
	return PaperDetails{
		Title:    "Deep Learning for Retinal Scans",
		Abstract: "We study CNN models on retinal images. Results are promising.",
		Keywords: "deep learning, retina, CNN",
	}
}

func TestGenerateSection(t *testing.T) {
	d := testDetails()

	t.Run("introduction", func(t *testing.T) {
		got := GenerateSection(domain.SectionTypeIntroduction, d)
		assert.Equal(t,
			"This paper examines deep learning for retinal scans. We study CNN models on retinal images. "+
				"Recent advancements in deep learning have led to significant developments in this field. "+
				"The objective of this research is to analyze the relationship between deep learning and retina and CNN "+
				"and provide insights that can contribute to the broader understanding of this topic.",
			got)
	})

	t.Run("methodology joins keywords with commas", func(t *testing.T) {
		got := GenerateSection(domain.SectionTypeMethodology, d)
		assert.Contains(t, got, "investigate deep learning for retinal scans.")
		assert.Contains(t, got, "systematic analysis of deep learning, retina, CNN.")
	})

	t.Run("results lowercases first sentence", func(t *testing.T) {
		got := GenerateSection(domain.SectionTypeResults, d)
		assert.True(t, strings.HasSuffix(got, "support the hypothesis that we study cnn models on retinal images."))
	})

	t.Run("discussion", func(t *testing.T) {
		got := GenerateSection(domain.SectionTypeDiscussion, d)
		assert.Contains(t, got, "Our findings regarding deep learning for retinal scans")
		assert.Contains(t, got, "importance of deep learning in this field")
	})

	t.Run("conclusion", func(t *testing.T) {
		got := GenerateSection(domain.SectionTypeConclusion, d)
		assert.True(t, strings.HasPrefix(got, "This paper has examined deep learning for retinal scans and provided evidence"))
	})

	t.Run("unknown type uses generic line with original title case", func(t *testing.T) {
		got := GenerateSection("appendix", d)
		assert.Equal(t, "This section explores aspects of Deep Learning for Retinal Scans related to deep learning, retina, CNN.", got)
	})

	t.Run("abstract without period is used whole", func(t *testing.T) {
		got := GenerateSection(domain.SectionTypeIntroduction, PaperDetails{Title: "T", Abstract: "no period here", Keywords: "x"})
		assert.Contains(t, got, "This paper examines t. no period here.")
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, GenerateSection(domain.SectionTypeResults, d), GenerateSection(domain.SectionTypeResults, d))
	})
}

func TestGenerateCaption(t *testing.T) {
	d := testDetails()

	tests := []struct {
		name     string
		file     string
		number   int
		details  PaperDetails
		expected string
	}{
		{
			name:     "chart-like png",
			file:     "accuracy_graph.png",
			number:   1,
			details:  d,
			expected: "Fig. 1: This graph illustrates the relationship between deep learning and retina in Deep Learning for Retinal Scans.",
		},
		{
			name:     "chart marker is case insensitive",
			file:     "Loss_PLOT.JPG",
			number:   2,
			details:  d,
			expected: "Fig. 2: This graph illustrates the relationship between deep learning and retina in Deep Learning for Retinal Scans.",
		},
		{
			name:     "non chart image",
			file:     "scanner_setup.png",
			number:   3,
			details:  d,
			expected: "Fig. 3: Illustration of scanner setup demonstrating key aspects of deep learning.",
		},
		{
			name:     "pdf is never chart-like",
			file:     "figure_summary.pdf",
			number:   4,
			details:  d,
			expected: "Fig. 4: Illustration of figure summary demonstrating key aspects of deep learning.",
		},
		{
			name:     "prose keywords matched against vocabulary",
			file:     "roc_chart.png",
			number:   1,
			details:  PaperDetails{Title: "T", Keywords: "A study of classification performance in medical image data"},
			expected: "Fig. 1: This graph illustrates the relationship between classification and performance in T.",
		},
		{
			name:     "prose keywords with no vocabulary fall back to defaults",
			file:     "roc_chart.png",
			number:   5,
			details:  PaperDetails{Title: "T", Keywords: "something unrelated"},
			expected: "Fig. 5: This graph illustrates the relationship between deep learning and medical imaging in T.",
		},
		{
			name:     "single comma keyword falls back for second term",
			file:     "plot.gif",
			number:   1,
			details:  PaperDetails{Title: "T", Keywords: "genomics,"},
			expected: "Fig. 1: This graph illustrates the relationship between genomics and medical imaging in T.",
		},
		{
			name:     "path prefix is ignored",
			file:     `uploads\1700000000000-my_photo.jpeg`,
			number:   1,
			details:  d,
			expected: "Fig. 1: Illustration of 1700000000000-my photo demonstrating key aspects of deep learning.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateCaption(tt.file, tt.number, tt.details))
		})
	}
}

func TestAutofillSections(t *testing.T) {
	sections := []domain.Section{
		{Type: domain.SectionTypeIntroduction, Content: "written by hand"},
		{Type: domain.SectionTypeMethodology, Content: "   \n "},
		{Type: domain.SectionTypeResults},
	}

	filled := AutofillSections(sections, testDetails())

	require.Equal(t, 2, filled)
	assert.Equal(t, "written by hand", sections[0].Content)
	assert.True(t, strings.HasPrefix(sections[1].Content, "This section outlines"))
	assert.True(t, strings.HasPrefix(sections[2].Content, "The results of our investigation"))
}

func TestDetailsOf(t *testing.T) {
	p := &domain.Paper{Title: "T", Abstract: "A", Keywords: "K"}
	assert.Equal(t, PaperDetails{Title: "T", Abstract: "A", Keywords: "K"}, DetailsOf(p))
}
