package gen

import (
	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

// Saccades uses the finer 1..15 level table: the display duration per
// target shrinks as levels climb.
var saccadeDurationByLevel = []int{
	1400, 1300, 1200, 1100, 1000,
	950, 900, 850, 800, 750,
	700, 600, 500, 420, 350,
}

const saccadeTargetCount = 8

// SaccadesGenerator builds a scan pattern of briefly displayed targets.
// Clicks are scored against each target's onset with the shared
// tolerance-window rule.
type SaccadesGenerator struct{}

func (g *SaccadesGenerator) ExerciseID() string { return domain.ExerciseSaccades }
func (g *SaccadesGenerator) Name() string       { return "Quick Looks" }
func (g *SaccadesGenerator) Description() string {
	return "Catch each dot before it disappears."
}

func (g *SaccadesGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(saccadeDurationByLevel))
	r := rng.New(seed)

	duration := saccadeDurationByLevel[difficulty-1]
	targets := make([]domain.SaccadeTarget, 0, saccadeTargetCount)
	onset := 0
	prev := domain.Point{X: 0.5, Y: 0.5}
	for i := 0; i < saccadeTargetCount; i++ {
		// Force a minimum jump so successive targets demand a real
		// saccade instead of a micro-adjustment.
		var next domain.Point
		for {
			next = domain.Point{X: 0.05 + r.Next()*0.9, Y: 0.05 + r.Next()*0.9}
			if dist(prev, next) >= 0.25 {
				break
			}
		}
		targets = append(targets, domain.SaccadeTarget{
			X:          next.X,
			Y:          next.Y,
			OnsetMs:    onset,
			DurationMs: duration,
		})
		onset += duration
		prev = next
	}

	return domain.TrialSpec{
		StimulusMs:       onset,
		ResponseWindowMs: onset,
		InterTrialMs:     900,
		Saccades: &domain.SaccadesSpec{
			Targets:          targets,
			ToleranceMs:      500,
			RequiredFraction: 0.5,
		},
	}, nil
}
