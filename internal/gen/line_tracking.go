package gen

import (
	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

var lineCountByLevel = []int{3, 4, 5, 6, 7}

// LineTrackingGenerator builds endpoint-matching puzzles: a column of left
// items connected by curved paths to a column of right items under a random
// bijection. Control points are anchored to each line's own vertical band
// so no two lines share generation parameters.
type LineTrackingGenerator struct{}

func (g *LineTrackingGenerator) ExerciseID() string { return domain.ExerciseLineTracking }
func (g *LineTrackingGenerator) Name() string       { return "Tangled Lines" }
func (g *LineTrackingGenerator) Description() string {
	return "Follow each line from its left end to its right end."
}

func (g *LineTrackingGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(lineCountByLevel))
	r := rng.New(seed)

	n := lineCountByLevel[difficulty-1]
	rightOrder := make([]int, n)
	for i := range rightOrder {
		rightOrder[i] = i
	}
	rightOrder = rng.Shuffle(r, rightOrder)

	lines := make([]domain.TrackedLine, 0, n)
	for left := 0; left < n; left++ {
		startY := (float64(left) + 0.5) / float64(n)
		endY := (float64(rightOrder[left]) + 0.5) / float64(n)
		// Two interior control points with bounded jitter; the jitter band
		// shrinks with more lines so curves stay distinguishable.
		jitter := 0.35 / float64(n)
		controls := []domain.Point{
			{X: 0.33, Y: clamp01(startY + (endY-startY)/3 + r.Gaussian(0, jitter))},
			{X: 0.66, Y: clamp01(startY + 2*(endY-startY)/3 + r.Gaussian(0, jitter))},
		}
		lines = append(lines, domain.TrackedLine{
			LeftIndex:  left,
			RightIndex: rightOrder[left],
			Controls:   controls,
		})
	}

	return domain.TrialSpec{
		StimulusMs:       10000,
		ResponseWindowMs: 15000,
		InterTrialMs:     1000,
		LineTracking: &domain.LineTrackingSpec{
			ItemCount: n,
			Lines:     lines,
		},
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
