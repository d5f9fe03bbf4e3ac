package gen

import (
	"fmt"

	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

var (
	memoryLengthByLevel     = []int{3, 4, 5, 6, 7}
	memoryDistractorByLevel = []int{3, 4, 4, 5, 5}
)

// memoryItemPool is the superset of valid item identifiers; distractors are
// drawn from the same pool so the selection grid looks uniform.
const memoryPoolSize = 24

// MemorySequenceGenerator builds sequence-recall trials: an ordered item
// sequence to memorize plus distractors, shuffled together into a
// selection grid. The runtime enforces a retry ceiling of three attempts.
type MemorySequenceGenerator struct{}

func (g *MemorySequenceGenerator) ExerciseID() string { return domain.ExerciseMemorySequence }
func (g *MemorySequenceGenerator) Name() string       { return "Remember the Order" }
func (g *MemorySequenceGenerator) Description() string {
	return "Watch the sequence, then tap it back in order."
}

func (g *MemorySequenceGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(memoryLengthByLevel))
	r := rng.New(seed)

	pool := make([]string, memoryPoolSize)
	for i := range pool {
		pool[i] = fmt.Sprintf("item-%02d", i)
	}
	shuffled := rng.Shuffle(r, pool)

	n := memoryLengthByLevel[difficulty-1]
	m := memoryDistractorByLevel[difficulty-1]
	sequence := shuffled[:n]
	distractors := shuffled[n : n+m]

	grid := rng.Shuffle(r, append(append([]string{}, sequence...), distractors...))

	return domain.TrialSpec{
		StimulusMs:       n * 1000,
		ResponseWindowMs: 12000,
		InterTrialMs:     1200,
		MemorySequence: &domain.MemorySequenceSpec{
			Sequence:    sequence,
			Distractors: distractors,
			Grid:        grid,
			MaxAttempts: 3,
		},
	}, nil
}
