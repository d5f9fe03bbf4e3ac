package gen

import (
	"fmt"

	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

// Grid sides must be even-celled so every position can be paired.
var pairGridByLevel = []int{2, 4, 4, 6, 6}

const pairIconPool = 20

// PairSearchGenerator builds concentration-style layouts: a shuffled item
// list and a shuffled position list zipped two positions at a time, so
// every position is used exactly once and every item id exactly twice.
type PairSearchGenerator struct{}

func (g *PairSearchGenerator) ExerciseID() string { return domain.ExercisePairSearch }
func (g *PairSearchGenerator) Name() string       { return "Find the Pairs" }
func (g *PairSearchGenerator) Description() string {
	return "Flip cards two at a time and match every pair."
}

func (g *PairSearchGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(pairGridByLevel))
	r := rng.New(seed)

	size := pairGridByLevel[difficulty-1]
	cellCount := size * size
	pairCount := cellCount / 2

	icons := make([]string, pairIconPool)
	for i := range icons {
		icons[i] = fmt.Sprintf("icon-%02d", i)
	}
	chosen := rng.Shuffle(r, icons)[:pairCount]

	positions := make([]int, cellCount)
	for i := range positions {
		positions[i] = i
	}
	positions = rng.Shuffle(r, positions)

	pairs := make([]domain.Pair, 0, pairCount)
	for i, item := range chosen {
		pairs = append(pairs, domain.Pair{
			ItemID:    item,
			Positions: [2]int{positions[2*i], positions[2*i+1]},
		})
	}

	return domain.TrialSpec{
		StimulusMs:       3000,
		ResponseWindowMs: 30000,
		InterTrialMs:     1200,
		PairSearch: &domain.PairSearchSpec{
			GridSize: size,
			Pairs:    pairs,
		},
	}, nil
}
