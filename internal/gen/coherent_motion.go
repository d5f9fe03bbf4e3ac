package gen

import (
	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

// coherenceByLevel maps difficulty 1..5 to the coherence percentage of the
// signal side. Harder levels carry a weaker signal.
var coherenceByLevel = []int{60, 50, 40, 30, 25}

// dotCountByLevel grows the field with difficulty.
var dotCountByLevel = []int{60, 80, 100, 120, 140}

// CoherentMotionGenerator builds random-dot-kinematogram trials: the dot
// field is split into halves and exactly one half carries a coherent motion
// signal. The participant reports which side it was.
type CoherentMotionGenerator struct{}

func (g *CoherentMotionGenerator) ExerciseID() string { return domain.ExerciseCoherentMotion }
func (g *CoherentMotionGenerator) Name() string       { return "Moving Dots" }
func (g *CoherentMotionGenerator) Description() string {
	return "Find the side where the dots drift together."
}

func (g *CoherentMotionGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(coherenceByLevel))
	r := rng.New(seed)

	coherence := coherenceByLevel[difficulty-1]
	side := "left"
	if r.Bool(0.5) {
		side = "right"
	}
	// Cardinal global direction keeps the signal readable for children.
	direction := float64(r.IntBetween(0, 3)) * 90

	total := dotCountByLevel[difficulty-1]
	dots := make([]domain.Dot, 0, total)
	for i := 0; i < total; i++ {
		dotSide := "left"
		x := r.Next() * 0.5
		if i >= total/2 {
			dotSide = "right"
			x = 0.5 + r.Next()*0.5
		}
		dot := domain.Dot{
			X:    x,
			Y:    r.Next(),
			Side: dotSide,
		}
		// Only the signal side rolls for coherence; the other half is
		// always pure noise.
		if dotSide == side && r.Bool(float64(coherence)/100) {
			dot.Coherent = true
			dot.DirectionDeg = direction
		} else {
			dot.DirectionDeg = r.Next() * 360
		}
		dots = append(dots, dot)
	}

	return domain.TrialSpec{
		StimulusMs:       4000,
		ResponseWindowMs: 3000,
		InterTrialMs:     1000,
		CoherentMotion: &domain.CoherentMotionSpec{
			CoherencePercent:   coherence,
			CoherentSide:       side,
			MotionDirectionDeg: direction,
			SpeedPerSec:        0.08,
			Dots:               dots,
		},
	}, nil
}
