package app

import (
	"fmt"
	"time"

	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/runtime"
)

// exerciseRun sequences the trials of one exercise within a session. It
// owns its TrialRuntime exclusively; no trial state is shared across
// exercises.
type exerciseRun struct {
	runID      string
	plan       domain.ExercisePlan
	trialIndex int
	results    []domain.TrialResult
	active     *runtime.TrialRuntime
}

func newExerciseRun(sessionID string, exerciseIndex int, plan domain.ExercisePlan) *exerciseRun {
	return &exerciseRun{
		// Run ids are externally meaningful: persistence keys exercise-run
		// records by them.
		runID: fmt.Sprintf("%s-run%d-%s", sessionID, exerciseIndex, plan.ExerciseID),
		plan:  plan,
	}
}

// startTrial builds and begins the runtime for the current trial index.
func (e *exerciseRun) startTrial(now func() time.Time) domain.TrialSpec {
	spec := e.plan.Trials[e.trialIndex]
	e.active = runtime.New(spec, now)
	e.active.Begin()
	return spec
}

// record stores a terminal result and releases the runtime. Results are
// append-only; a trial never produces a second one.
func (e *exerciseRun) record(result domain.TrialResult) {
	e.results = append(e.results, result)
	e.active = nil
}

func (e *exerciseRun) hasMoreTrials() bool {
	return e.trialIndex+1 < len(e.plan.Trials)
}

// aggregate recomputes the run summary from the full result list every
// time, never incrementally, so it cannot drift.
func (e *exerciseRun) aggregate() domain.ExerciseRunAggregate {
	return domain.ComputeAggregate(e.plan.ExerciseID, e.results)
}
