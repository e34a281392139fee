// Package domain provides domain models and business logic for the Paper Assistant Service.
package domain

import (
	"sort"
	"strings"
)

// SectionType identifies one of the fixed IEEE-style content blocks of a paper.
// These values must match the database enum section_type.
type SectionType string

const (
	SectionTypeIntroduction SectionType = "introduction"
	SectionTypeMethodology  SectionType = "methodology"
	SectionTypeResults      SectionType = "results"
	SectionTypeDiscussion   SectionType = "discussion"
	SectionTypeConclusion   SectionType = "conclusion"
)

var canonicalSectionTypes = []SectionType{
	SectionTypeIntroduction,
	SectionTypeMethodology,
	SectionTypeResults,
	SectionTypeDiscussion,
	SectionTypeConclusion,
}

// CanonicalSectionTypes returns the five section types in document order.
func CanonicalSectionTypes() []SectionType {
	out := make([]SectionType, len(canonicalSectionTypes))
	copy(out, canonicalSectionTypes)
	return out
}

// IsValid reports whether s is one of the canonical section types.
func (s SectionType) IsValid() bool {
	return s.canonicalIndex() >= 0
}

func (s SectionType) canonicalIndex() int {
	for i, t := range canonicalSectionTypes {
		if t == s {
			return i
		}
	}
	return -1
}

// ParseSectionType normalizes raw input into a SectionType.
func ParseSectionType(raw string) (SectionType, error) {
	st := SectionType(strings.ToLower(strings.TrimSpace(raw)))
	if !st.IsValid() {
		return "", NewValidationError("section_type", "unknown section type "+raw)
	}
	return st, nil
}

// NormalizeSections returns the sections in canonical order with every missing
// canonical type filled in as an empty placeholder. OrderNum is renumbered 1..N.
// Duplicates of a type keep the first occurrence. Sections with a non-canonical
// type are appended after the canonical ones in their original order.
func NormalizeSections(sections []Section) []Section {
	byType := make(map[SectionType]Section, len(sections))
	var extra []Section
	for _, s := range sections {
		if !s.Type.IsValid() {
			extra = append(extra, s)
			continue
		}
		if _, seen := byType[s.Type]; !seen {
			byType[s.Type] = s
		}
	}

	out := make([]Section, 0, len(canonicalSectionTypes)+len(extra))
	for _, t := range canonicalSectionTypes {
		s, ok := byType[t]
		if !ok {
			s = Section{Type: t}
		}
		out = append(out, s)
	}
	out = append(out, extra...)

	for i := range out {
		out[i].OrderNum = i + 1
	}
	return out
}

// SortSections orders sections by OrderNum, keeping input order for ties.
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].OrderNum < sections[j].OrderNum
	})
}
