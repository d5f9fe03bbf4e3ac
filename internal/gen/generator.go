// Package gen turns (exercise id, difficulty, trial index, seed) into fully
// specified, immutable trial content. Every generator is a pure function of
// its inputs: no wall-clock time, no global mutable state.
package gen

import (
	"fmt"

	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

// Generator produces trial content for one exercise family.
type Generator interface {
	ExerciseID() string
	Name() string
	Description() string
	// Generate builds the trial for the given seed. It must be
	// deterministic: the same (seed, difficulty, trialIndex) always yields
	// a byte-identical TrialSpec.
	Generate(seed int64, difficulty, trialIndex int) (domain.TrialSpec, error)
}

// Registry maps exercise ids to their generators. Adding an exercise is
// adding one entry here, not threading a new branch through the runtime.
type Registry struct {
	generators map[string]Generator
}

// NewRegistry returns a registry with all built-in exercise families.
func NewRegistry() *Registry {
	r := &Registry{generators: make(map[string]Generator)}
	for _, g := range []Generator{
		&CoherentMotionGenerator{},
		&VisualSearchGenerator{},
		&LineTrackingGenerator{},
		&MazeTrackingGenerator{},
		&FootballGenerator{},
		&TennisGenerator{},
		&TwoCirclesGenerator{},
		&SaccadesGenerator{},
		&MemorySequenceGenerator{},
		&PairSearchGenerator{},
	} {
		r.generators[g.ExerciseID()] = g
	}
	return r
}

// Get returns the generator for an exercise id.
func (r *Registry) Get(exerciseID string) (Generator, bool) {
	g, ok := r.generators[exerciseID]
	return g, ok
}

// ExerciseIDs lists all registered exercise ids.
func (r *Registry) ExerciseIDs() []string {
	ids := make([]string, 0, len(r.generators))
	for id := range r.generators {
		ids = append(ids, id)
	}
	return ids
}

// planVersion tags generated plans so persisted trial configs can be
// matched against the generator revision that produced them.
const planVersion = "1.0"

// PlanBuilder orchestrates a generator across N trial indices to produce an
// ordered exercise plan.
type PlanBuilder struct {
	registry *Registry
}

func NewPlanBuilder(registry *Registry) *PlanBuilder {
	return &PlanBuilder{registry: registry}
}

// Build derives one seed per trial index, dispatches to the registered
// generator, and validates every produced spec. A validation failure aborts
// the whole plan: a malformed spec indicates a generator bug and must never
// reach presentation.
func (b *PlanBuilder) Build(exerciseID string, difficulty, trialCount int) (domain.ExercisePlan, error) {
	gen, ok := b.registry.Get(exerciseID)
	if !ok {
		return domain.ExercisePlan{}, fmt.Errorf("%w: %q", domain.ErrUnknownExercise, exerciseID)
	}
	if trialCount < 1 {
		trialCount = 1
	}

	plan := domain.ExercisePlan{
		ExerciseID:  exerciseID,
		Version:     planVersion,
		Difficulty:  difficulty,
		Name:        gen.Name(),
		Description: gen.Description(),
		Trials:      make([]domain.TrialSpec, 0, trialCount),
	}
	for i := 0; i < trialCount; i++ {
		seed := rng.DeriveSeed(exerciseID, difficulty, i)
		spec, err := gen.Generate(seed, difficulty, i)
		if err != nil {
			return domain.ExercisePlan{}, fmt.Errorf("generate %s trial %d: %w", exerciseID, i, err)
		}
		spec.ID = fmt.Sprintf("%s-d%d-t%d", exerciseID, difficulty, i)
		spec.ExerciseID = exerciseID
		spec.TrialIndex = i
		spec.Seed = seed
		if err := ValidateTrial(spec); err != nil {
			return domain.ExercisePlan{}, fmt.Errorf("validate %s trial %d: %w", exerciseID, i, err)
		}
		plan.Trials = append(plan.Trials, spec)
	}
	return plan, nil
}

// clampDifficulty folds out-of-table difficulties back into [min, max].
// Difficulty is a tuning knob, not a contract input, so clamping beats
// erroring here.
func clampDifficulty(d, min, max int) int {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
