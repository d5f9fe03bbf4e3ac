package gen

import (
	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

var (
	searchGridByLevel = []int{3, 4, 4, 5, 6}
	searchOddByLevel  = []int{3, 3, 2, 2, 1}
	// Orientation differences only appear at higher levels; shape pops out
	// too easily to stay hard.
	searchKindsByLevel = [][]string{
		{"shape", "color"},
		{"shape", "color"},
		{"shape", "color", "orientation"},
		{"color", "orientation"},
		{"color", "orientation"},
	}
	searchSymbols = []string{"circle", "square", "triangle", "star", "heart"}
)

// noDifferenceRate is the chance a trial is the degenerate all-identical
// grid whose correct answer is "no difference".
const noDifferenceRate = 0.15

// VisualSearchGenerator builds odd-one-out grids: one base symbol with K
// cells replaced by a different symbol at non-colliding positions.
type VisualSearchGenerator struct{}

func (g *VisualSearchGenerator) ExerciseID() string { return domain.ExerciseVisualSearch }
func (g *VisualSearchGenerator) Name() string       { return "Spot the Odd One" }
func (g *VisualSearchGenerator) Description() string {
	return "Tap the shapes that are different, or say none are."
}

func (g *VisualSearchGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(searchGridByLevel))
	r := rng.New(seed)

	size := searchGridByLevel[difficulty-1]
	base := rng.Pick(r, searchSymbols)
	odd := base
	for odd == base {
		odd = rng.Pick(r, searchSymbols)
	}
	kind := rng.Pick(r, searchKindsByLevel[difficulty-1])

	k := searchOddByLevel[difficulty-1]
	if r.Bool(noDifferenceRate) {
		k = 0
	}

	cells := make([]domain.GridCell, 0, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			cells = append(cells, domain.GridCell{Row: row, Col: col})
		}
	}
	oddCells := rng.Shuffle(r, cells)[:k]

	return domain.TrialSpec{
		StimulusMs:       6000,
		ResponseWindowMs: 6000,
		InterTrialMs:     800,
		VisualSearch: &domain.VisualSearchSpec{
			Rows:           size,
			Cols:           size,
			BaseSymbol:     base,
			OddSymbol:      odd,
			DifferenceKind: kind,
			OddCells:       oddCells,
			TotalDifferent: k,
		},
	}, nil
}
