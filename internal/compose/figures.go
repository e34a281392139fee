package compose

import (
	"fmt"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// PlacementPolicy selects how figures are distributed across sections.
type PlacementPolicy string

const (
	// PlacementRunningCursor walks a single forward cursor across sections,
	// giving each section up to ceil(n/sections) figures in order.
	PlacementRunningCursor PlacementPolicy = "running_cursor"

	// PlacementIndependentSlices gives section i the window
	// images[i*per : (i+1)*per], computed per index. Figures past
	// sections*per are dropped.
	PlacementIndependentSlices PlacementPolicy = "independent_slices"
)

// ParsePlacementPolicy validates a configured policy name. Empty selects the
// running cursor.
func ParsePlacementPolicy(s string) (PlacementPolicy, error) {
	switch PlacementPolicy(s) {
	case "", PlacementRunningCursor:
		return PlacementRunningCursor, nil
	case PlacementIndependentSlices:
		return PlacementIndependentSlices, nil
	default:
		return "", fmt.Errorf("unknown placement policy %q", s)
	}
}

// FigureAssignment maps a section index to the figures rendered after it.
type FigureAssignment [][]domain.Image

// Count returns the total number of placed figures.
func (a FigureAssignment) Count() int {
	n := 0
	for _, figs := range a {
		n += len(figs)
	}
	return n
}

// PlanFigures distributes images over sectionCount sections.
func PlanFigures(images []domain.Image, sectionCount int, policy PlacementPolicy) FigureAssignment {
	if sectionCount <= 0 {
		return FigureAssignment{}
	}
	plan := make(FigureAssignment, sectionCount)
	if len(images) == 0 {
		return plan
	}

	perSection := (len(images) + sectionCount - 1) / sectionCount

	switch policy {
	case PlacementIndependentSlices:
		for i := 0; i < sectionCount; i++ {
			start := i * perSection
			if start >= len(images) {
				continue
			}
			end := min(start+perSection, len(images))
			plan[i] = images[start:end]
		}
	default:
		cursor := 0
		for i := 0; i < sectionCount && cursor < len(images); i++ {
			end := min(cursor+perSection, len(images))
			plan[i] = images[cursor:end]
			cursor = end
		}
	}
	return plan
}
