package compose

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// PaperDetails is the metadata the content generators draw from.
type PaperDetails struct {
	Title    string
	Abstract string
	Keywords string
}

// DetailsOf extracts the generator inputs from a paper.
func DetailsOf(p *domain.Paper) PaperDetails {
	return PaperDetails{Title: p.Title, Abstract: p.Abstract, Keywords: p.Keywords}
}

// Fallback terms for captions when the keyword field yields nothing usable.
const (
	defaultPrimaryTerm   = "deep learning"
	defaultSecondaryTerm = "medical imaging"
	defaultGenericTerm   = "deep learning techniques in medical imaging"
)

var captionVocabulary = regexp.MustCompile(`(?i)\b(deep learning|neural networks|medical image|analysis|diagnostic|performance|classification)\b`)

var chartExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}

var chartMarkers = []string{"graph", "chart", "plot", "figure"}

// GenerateSection returns deterministic placeholder text for a section type.
func GenerateSection(sectionType domain.SectionType, d PaperDetails) string {
	kw := keywordTerms(d.Keywords)
	title := strings.ToLower(d.Title)
	first := firstSentence(d.Abstract)

	var lines []string
	switch sectionType {
	case domain.SectionTypeIntroduction:
		lines = []string{
			fmt.Sprintf("This paper examines %s. %s.", title, first),
			fmt.Sprintf("Recent advancements in %s have led to significant developments in this field.", kw[0]),
			fmt.Sprintf("The objective of this research is to analyze the relationship between %s and provide insights that can contribute to the broader understanding of this topic.", strings.Join(kw, " and ")),
		}
	case domain.SectionTypeMethodology:
		lines = []string{
			fmt.Sprintf("This section outlines the approach used to investigate %s.", title),
			fmt.Sprintf("The methodology employed in this study involves a systematic analysis of %s.", strings.Join(kw, ", ")),
			"Data was collected through comprehensive literature review and experimental validation.",
			"The analysis was conducted using statistical methods appropriate for this type of research.",
		}
	case domain.SectionTypeResults:
		lines = []string{
			fmt.Sprintf("The results of our investigation into %s reveal several key findings.", title),
			fmt.Sprintf("Analysis of the data demonstrates a clear correlation between %s and research outcomes.", kw[0]),
			"Figure 1 illustrates the relationship between the key variables examined in this study.",
			fmt.Sprintf("These findings support the hypothesis that %s.", strings.ToLower(first)),
		}
	case domain.SectionTypeDiscussion:
		lines = []string{
			fmt.Sprintf("Our findings regarding %s have several important implications.", title),
			fmt.Sprintf("The observed relationship between %s suggests that further research in this area could yield valuable insights.", strings.Join(kw, " and ")),
			fmt.Sprintf("These results align with previous studies that have indicated the importance of %s in this field.", kw[0]),
			"However, certain limitations should be acknowledged when interpreting these findings.",
		}
	case domain.SectionTypeConclusion:
		lines = []string{
			fmt.Sprintf("This paper has examined %s and provided evidence supporting the relationship between %s.", title, strings.Join(kw, " and ")),
			"The findings contribute to the existing body of knowledge on this topic and offer practical implications for professionals in this field.",
			"Future research should focus on expanding the scope of analysis and addressing the limitations identified in this study.",
		}
	default:
		return fmt.Sprintf("This section explores aspects of %s related to %s.", d.Title, strings.Join(kw, ", "))
	}
	return strings.Join(lines, " ")
}

// GenerateCaption returns a caption for an uploaded figure. figureNumber is
// the 1-based position of the figure within the paper.
func GenerateCaption(fileName string, figureNumber int, d PaperDetails) string {
	kw := captionTerms(d.Keywords)

	base, stem, ext := splitFileName(fileName)
	if isChartLike(base, ext) {
		return fmt.Sprintf("Fig. %d: This graph illustrates the relationship between %s and %s in %s.",
			figureNumber, termAt(kw, 0, defaultPrimaryTerm), termAt(kw, 1, defaultSecondaryTerm), d.Title)
	}
	return fmt.Sprintf("Fig. %d: Illustration of %s demonstrating key aspects of %s.",
		figureNumber, strings.ReplaceAll(stem, "_", " "), termAt(kw, 0, defaultGenericTerm))
}

// AutofillSections replaces the content of blank sections with generated text.
// It returns the number of sections filled.
func AutofillSections(sections []domain.Section, d PaperDetails) int {
	filled := 0
	for i := range sections {
		if sections[i].IsBlank() {
			sections[i].Content = GenerateSection(sections[i].Type, d)
			filled++
		}
	}
	return filled
}

// keywordTerms splits on commas the way the section templates expect. The
// result always has at least one element.
func keywordTerms(keywords string) []string {
	parts := strings.Split(keywords, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// captionTerms picks up to three terms for captions. A keyword field without
// commas is treated as prose and scanned for known domain vocabulary.
func captionTerms(keywords string) []string {
	if strings.Contains(keywords, ",") {
		terms := keywordTerms(keywords)
		if len(terms) > 3 {
			terms = terms[:3]
		}
		return terms
	}

	matches := captionVocabulary.FindAllString(keywords, 3)
	if len(matches) == 0 {
		return []string{defaultPrimaryTerm, defaultSecondaryTerm}
	}
	return matches
}

func termAt(terms []string, i int, fallback string) string {
	if i < len(terms) && terms[i] != "" {
		return terms[i]
	}
	return fallback
}

func firstSentence(abstract string) string {
	if i := strings.Index(abstract, "."); i >= 0 {
		return abstract[:i]
	}
	return abstract
}

func splitFileName(name string) (base, stem, ext string) {
	base = path.Base(domain.NormalizeFilePath(name))
	stem = base
	if i := strings.Index(base, "."); i >= 0 {
		stem = base[:i]
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		ext = strings.ToLower(base[i+1:])
	}
	return base, stem, ext
}

func isChartLike(name, ext string) bool {
	if !chartExtensions[ext] {
		return false
	}
	lower := strings.ToLower(name)
	for _, m := range chartMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
