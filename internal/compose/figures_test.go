package compose

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

func testImages(n int) []domain.Image {
	images := make([]domain.Image, n)
	for i := range images {
		images[i] = domain.Image{FilePath: fmt.Sprintf("uploads/img%d.png", i)}
	}
	return images
}

func paths(images []domain.Image) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.FilePath
	}
	return out
}

func TestPlanFigures(t *testing.T) {
	policies := []PlacementPolicy{PlacementRunningCursor, PlacementIndependentSlices}

	t.Run("five images five sections", func(t *testing.T) {
		for _, policy := range policies {
			t.Run(string(policy), func(t *testing.T) {
				images := testImages(5)
				plan := PlanFigures(images, 5, policy)

				require.Len(t, plan, 5)
				for i := 0; i < 5; i++ {
					require.Len(t, plan[i], 1)
					assert.Equal(t, images[i].FilePath, plan[i][0].FilePath)
				}
				assert.Equal(t, 5, plan.Count())
			})
		}
	})

	t.Run("seven images five sections legacy independent slices", func(t *testing.T) {
		plan := PlanFigures(testImages(7), 5, PlacementIndependentSlices)

		require.Len(t, plan, 5)
		assert.Equal(t, []string{"uploads/img0.png", "uploads/img1.png"}, paths(plan[0]))
		assert.Equal(t, []string{"uploads/img2.png", "uploads/img3.png"}, paths(plan[1]))
		assert.Equal(t, []string{"uploads/img4.png", "uploads/img5.png"}, paths(plan[2]))
		assert.Equal(t, []string{"uploads/img6.png"}, paths(plan[3]))
		assert.Empty(t, plan[4])
		// ceil(7/5)*5 = 10 >= 7, so the window never drops a figure here.
		assert.Equal(t, 7, plan.Count())
	})

	t.Run("seven images five sections running cursor", func(t *testing.T) {
		plan := PlanFigures(testImages(7), 5, PlacementRunningCursor)

		require.Len(t, plan, 5)
		assert.Equal(t, []string{"uploads/img0.png", "uploads/img1.png"}, paths(plan[0]))
		assert.Equal(t, []string{"uploads/img2.png", "uploads/img3.png"}, paths(plan[1]))
		assert.Equal(t, []string{"uploads/img4.png", "uploads/img5.png"}, paths(plan[2]))
		assert.Equal(t, []string{"uploads/img6.png"}, paths(plan[3]))
		assert.Empty(t, plan[4])
		assert.Equal(t, 7, plan.Count())
	})

	t.Run("policies place every figure exactly once", func(t *testing.T) {
		for _, policy := range policies {
			for n := 0; n <= 23; n++ {
				for sections := 1; sections <= 7; sections++ {
					plan := PlanFigures(testImages(n), sections, policy)
					seen := map[string]int{}
					for _, figs := range plan {
						for _, f := range figs {
							seen[f.FilePath]++
						}
					}
					assert.Len(t, seen, n, "policy=%s n=%d sections=%d", policy, n, sections)
					for p, c := range seen {
						assert.Equal(t, 1, c, "policy=%s path=%s", policy, p)
					}
				}
			}
		}
	})

	t.Run("no sections", func(t *testing.T) {
		assert.Empty(t, PlanFigures(testImages(3), 0, PlacementRunningCursor))
		assert.Empty(t, PlanFigures(testImages(3), -1, PlacementIndependentSlices))
	})

	t.Run("no images", func(t *testing.T) {
		plan := PlanFigures(nil, 5, PlacementRunningCursor)
		require.Len(t, plan, 5)
		assert.Equal(t, 0, plan.Count())
	})
}

func TestParsePlacementPolicy(t *testing.T) {
	p, err := ParsePlacementPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PlacementRunningCursor, p)

	p, err = ParsePlacementPolicy("independent_slices")
	require.NoError(t, err)
	assert.Equal(t, PlacementIndependentSlices, p)

	_, err = ParsePlacementPolicy("random")
	assert.Error(t, err)
}
