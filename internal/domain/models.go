package domain

import "time"

// Exercise family identifiers. Adding a family means adding a generator to
// the registry under internal/gen; the runtime dispatches on these ids.
const (
	ExerciseCoherentMotion = "coherent_motion"
	ExerciseVisualSearch   = "visual_search"
	ExerciseLineTracking   = "line_tracking"
	ExerciseMazeTracking   = "maze_tracking"
	ExerciseFootball       = "football"
	ExerciseTennis         = "tennis"
	ExerciseTwoCircles     = "two_circles"
	ExerciseSaccades       = "saccades"
	ExerciseMemorySequence = "memory_sequence"
	ExercisePairSearch     = "pair_search"
)

// Point is a position in the normalized [0,1)x[0,1) stimulus plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GridCell addresses one cell of a row/column stimulus grid.
type GridCell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PathSample is one time-stamped position of a simulated moving target.
type PathSample struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	TimeMs int     `json:"timeMs"`
}

// MotionPath is an ordered trajectory; samples are strictly increasing in
// TimeMs and the last sample covers at least the trial's stimulus duration.
type MotionPath []PathSample

// Dot is a single element of a coherent-motion dot field.
type Dot struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Side         string  `json:"side"` // "left" | "right"
	Coherent     bool    `json:"coherent"`
	DirectionDeg float64 `json:"directionDeg"`
}

// CoherentMotionSpec describes one random-dot-kinematogram trial. The
// correct answer is CoherentSide.
type CoherentMotionSpec struct {
	CoherencePercent   int     `json:"coherencePercent"`
	CoherentSide       string  `json:"coherentSide"` // "left" | "right"
	MotionDirectionDeg float64 `json:"motionDirectionDeg"`
	SpeedPerSec        float64 `json:"speedPerSec"`
	Dots               []Dot   `json:"dots"`
}

// VisualSearchSpec describes an odd-one-out grid. TotalDifferent may be
// zero: the all-identical grid is a valid trial whose correct answer is
// "no difference".
type VisualSearchSpec struct {
	Rows           int        `json:"rows"`
	Cols           int        `json:"cols"`
	BaseSymbol     string     `json:"baseSymbol"`
	OddSymbol      string     `json:"oddSymbol"`
	DifferenceKind string     `json:"differenceKind"` // "shape" | "color" | "orientation"
	OddCells       []GridCell `json:"oddCells"`
	TotalDifferent int        `json:"totalDifferent"`
}

// TrackedLine is one connector of a line-tracking puzzle. RightIndex is the
// correct endpoint for LeftIndex; the set of lines forms a bijection.
type TrackedLine struct {
	LeftIndex  int     `json:"leftIndex"`
	RightIndex int     `json:"rightIndex"`
	Controls   []Point `json:"controls"`
}

// LineTrackingSpec describes a left/right endpoint matching puzzle.
type LineTrackingSpec struct {
	ItemCount int           `json:"itemCount"`
	Lines     []TrackedLine `json:"lines"`
}

// WallSegment is one wall of a maze, between two adjacent cells.
type WallSegment struct {
	From GridCell `json:"from"`
	To   GridCell `json:"to"`
}

// Collectible is a maze pickup that must be collected in ascending Order.
type Collectible struct {
	Order int      `json:"order"` // 1-based
	Cell  GridCell `json:"cell"`
}

// MazeTrackingSpec describes a maze with ordered collectibles.
type MazeTrackingSpec struct {
	GridSize     int           `json:"gridSize"`
	Walls        []WallSegment `json:"walls"`
	Collectibles []Collectible `json:"collectibles"`
}

// OverlapSpec is shared by the continuous-motion families (football,
// tennis, two_circles). Paths holds one trajectory per mover; TargetZone is
// set for the football goal. OverlapTimesMs are the scorable event
// timestamps, deduplicated at generation with a minimum spacing.
type OverlapSpec struct {
	Paths            []MotionPath `json:"paths"`
	Radius           float64      `json:"radius"`
	TargetZone       *Point       `json:"targetZone,omitempty"`
	TargetRadius     float64      `json:"targetRadius,omitempty"`
	OverlapTimesMs   []int        `json:"overlapTimesMs"`
	ToleranceMs      int          `json:"toleranceMs"`
	RequiredFraction float64      `json:"requiredFraction"`
}

// SaccadeTarget is one fixation target of a scan pattern.
type SaccadeTarget struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	OnsetMs    int     `json:"onsetMs"`
	DurationMs int     `json:"durationMs"`
}

// SaccadesSpec describes a timed scan-pattern trial. Clicks are scored
// against target onsets with the same tolerance-window rule as the
// continuous-motion families.
type SaccadesSpec struct {
	Targets          []SaccadeTarget `json:"targets"`
	ToleranceMs      int             `json:"toleranceMs"`
	RequiredFraction float64         `json:"requiredFraction"`
}

// MemorySequenceSpec describes a sequence-recall trial. Grid is the shuffled
// union of Sequence and Distractors presented for selection.
type MemorySequenceSpec struct {
	Sequence    []string `json:"sequence"`
	Distractors []string `json:"distractors"`
	Grid        []string `json:"grid"`
	MaxAttempts int      `json:"maxAttempts"`
}

// Pair is one matched item of a pair-search layout, occupying exactly two
// grid positions.
type Pair struct {
	ItemID    string `json:"itemId"`
	Positions [2]int `json:"positions"`
}

// PairSearchSpec describes a concentration-style grid. Every position in
// [0, GridSize*GridSize) appears in exactly one pair.
type PairSearchSpec struct {
	GridSize int    `json:"gridSize"`
	Pairs    []Pair `json:"pairs"`
}

// TrialSpec is the immutable, fully self-contained description of one
// trial: common timing budgets plus exactly one family payload, tagged by
// ExerciseID. Generated once, never mutated.
type TrialSpec struct {
	ID               string `json:"id"`
	ExerciseID       string `json:"exerciseId"`
	TrialIndex       int    `json:"trialIndex"`
	Seed             int64  `json:"seed"`
	StimulusMs       int    `json:"stimulusMs"`
	ResponseWindowMs int    `json:"responseWindowMs"`
	InterTrialMs     int    `json:"interTrialMs"`

	CoherentMotion *CoherentMotionSpec `json:"coherentMotion,omitempty"`
	VisualSearch   *VisualSearchSpec   `json:"visualSearch,omitempty"`
	LineTracking   *LineTrackingSpec   `json:"lineTracking,omitempty"`
	MazeTracking   *MazeTrackingSpec   `json:"mazeTracking,omitempty"`
	Overlap        *OverlapSpec        `json:"overlap,omitempty"`
	Saccades       *SaccadesSpec       `json:"saccades,omitempty"`
	MemorySequence *MemorySequenceSpec `json:"memorySequence,omitempty"`
	PairSearch     *PairSearchSpec     `json:"pairSearch,omitempty"`
}

// ExercisePlan is an ordered, immutable trial list for one exercise run.
type ExercisePlan struct {
	ExerciseID  string      `json:"exerciseId"`
	Version     string      `json:"version"`
	Difficulty  int         `json:"difficulty"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Trials      []TrialSpec `json:"trials"`
}

// TrialResult is the terminal outcome of one trial, produced exactly once.
type TrialResult struct {
	TrialIndex     int       `json:"trialIndex"`
	Response       string    `json:"response"`
	ResponseTimeMs int       `json:"responseTimeMs"`
	Correct        bool      `json:"correct"`
	TimedOut       bool      `json:"timedOut"`
	Skipped        bool      `json:"skipped"`
	Penalties      int       `json:"penalties"`
	StartedAt      time.Time `json:"startedAt"`
	RespondedAt    time.Time `json:"respondedAt"`
}

// TrialRecord is the append-only persistence form of a resolved trial.
type TrialRecord struct {
	SessionID      string    `json:"session_id"`
	RunID          string    `json:"run_id"`
	TrialIndex     int       `json:"trial_index"`
	TrialConfig    TrialSpec `json:"trial_config"`
	CorrectAnswer  string    `json:"correct_answer"`
	UserResponse   string    `json:"user_response"`
	ResponseTimeMs int       `json:"response_time_ms"`
	IsCorrect      bool      `json:"is_correct"`
	IsTimedOut     bool      `json:"is_timed_out"`
	IsSkipped      bool      `json:"is_skipped"`
	StartedAt      time.Time `json:"started_at"`
	RespondedAt    time.Time `json:"responded_at"`
}

// ExerciseRunAggregate is derived from the full TrialResult list of one
// run. It is always recomputed, never incrementally mutated.
type ExerciseRunAggregate struct {
	ExerciseID        string  `json:"exerciseId"`
	CorrectCount      int     `json:"correctCount"`
	TotalTrials       int     `json:"totalTrials"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
}

// ComputeAggregate derives the run aggregate from a result list. Skipped
// and timed-out trials count toward the total but contribute no response
// time.
func ComputeAggregate(exerciseID string, results []TrialResult) ExerciseRunAggregate {
	agg := ExerciseRunAggregate{ExerciseID: exerciseID, TotalTrials: len(results)}
	timed := 0
	sum := 0
	for _, r := range results {
		if r.Correct {
			agg.CorrectCount++
		}
		if !r.TimedOut && !r.Skipped {
			sum += r.ResponseTimeMs
			timed++
		}
	}
	if timed > 0 {
		agg.AvgResponseTimeMs = float64(sum) / float64(timed)
	}
	return agg
}

// SessionStatus is the terminal state of a participant session.
type SessionStatus string

const (
	SessionCompleted  SessionStatus = "completed"
	SessionIncomplete SessionStatus = "incomplete"
)

// SessionProgress accumulates per-exercise aggregates across one
// participant session.
type SessionProgress struct {
	SessionID    string                 `json:"sessionId"`
	Runs         []ExerciseRunAggregate `json:"runs"`
	CorrectTotal int                    `json:"correctTotal"`
	TrialTotal   int                    `json:"trialTotal"`
	Status       SessionStatus          `json:"status,omitempty"`
}

// RosterEntry selects one exercise run within a session roster.
type RosterEntry struct {
	ExerciseID string `json:"exerciseId"`
	Difficulty int    `json:"difficulty"`
	TrialCount int    `json:"trialCount"`
}

// Roster is the externally supplied, ordered exercise list for one
// participant session. The orchestrator never decides this itself.
type Roster struct {
	ID      string        `json:"id"`
	Entries []RosterEntry `json:"entries"`
}
