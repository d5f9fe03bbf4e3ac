package runtime

import (
	"errors"
	"testing"
	"time"

	"attention-trainer-service/internal/domain"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func coherentMotionTrial() domain.TrialSpec {
	return domain.TrialSpec{
		ExerciseID:       domain.ExerciseCoherentMotion,
		StimulusMs:       4000,
		ResponseWindowMs: 3000,
		CoherentMotion: &domain.CoherentMotionSpec{
			CoherencePercent: 60,
			CoherentSide:     "left",
			Dots:             []domain.Dot{{Side: "left", Coherent: true}},
		},
	}
}

func TestChoiceResolution(t *testing.T) {
	clock := newFakeClock()
	rt := New(coherentMotionTrial(), clock.now)
	rt.Begin()
	clock.advance(1250 * time.Millisecond)

	result, err := rt.SubmitChoice("left")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.TimedOut {
		t.Fatalf("expected correct non-timeout result, got %+v", result)
	}
	if result.ResponseTimeMs != 1250 {
		t.Fatalf("expected response time 1250ms, got %d", result.ResponseTimeMs)
	}
}

func TestWrongChoiceIsIncorrectNotError(t *testing.T) {
	rt := New(coherentMotionTrial(), newFakeClock().now)
	rt.Begin()
	result, err := rt.SubmitChoice("right")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct {
		t.Fatalf("wrong side must not score")
	}
}

func TestTimeoutOnlyWithoutResponse(t *testing.T) {
	clock := newFakeClock()
	rt := New(coherentMotionTrial(), clock.now)
	rt.Begin()
	clock.advance(3 * time.Second)

	result, err := rt.ExpireWindow()
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !result.TimedOut || result.Correct {
		t.Fatalf("expected timed-out incorrect result, got %+v", result)
	}
}

func TestResponseWinsOverLateTimeout(t *testing.T) {
	clock := newFakeClock()
	rt := New(coherentMotionTrial(), clock.now)
	rt.Begin()
	clock.advance(3 * time.Second) // exactly the window boundary

	if _, err := rt.SubmitChoice("left"); err != nil {
		t.Fatalf("submit at boundary: %v", err)
	}
	if _, err := rt.ExpireWindow(); !errors.Is(err, domain.ErrTrialResolved) {
		t.Fatalf("stale timeout must be discarded, got %v", err)
	}
	result, ok := rt.Result()
	if !ok || result.TimedOut || !result.Correct {
		t.Fatalf("response must win at the boundary, got %+v", result)
	}
}

func TestNoSecondResolution(t *testing.T) {
	rt := New(coherentMotionTrial(), newFakeClock().now)
	rt.Begin()
	if _, err := rt.SubmitChoice("left"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := rt.SubmitChoice("right"); !errors.Is(err, domain.ErrTrialResolved) {
		t.Fatalf("expected ErrTrialResolved, got %v", err)
	}
	if _, err := rt.Skip(); !errors.Is(err, domain.ErrTrialResolved) {
		t.Fatalf("skip after resolve must be rejected, got %v", err)
	}
}

func TestAllIdenticalSearchGridResolvesCorrectOnFirstClick(t *testing.T) {
	spec := domain.TrialSpec{
		ExerciseID:       domain.ExerciseVisualSearch,
		StimulusMs:       6000,
		ResponseWindowMs: 6000,
		VisualSearch: &domain.VisualSearchSpec{
			Rows: 4, Cols: 4,
			TotalDifferent: 0,
		},
	}
	rt := New(spec, newFakeClock().now)
	rt.Begin()
	result, err := rt.SubmitChoice("2,3")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct {
		t.Fatalf("all-identical grid must resolve correct on first click")
	}
}

func footballTrial(events []int) domain.TrialSpec {
	path := domain.MotionPath{{TimeMs: 0}, {TimeMs: 15000}}
	return domain.TrialSpec{
		ExerciseID:       domain.ExerciseFootball,
		StimulusMs:       15000,
		ResponseWindowMs: 15000,
		Overlap: &domain.OverlapSpec{
			Paths:            []domain.MotionPath{path},
			OverlapTimesMs:   events,
			ToleranceMs:      500,
			RequiredFraction: 0.6,
		},
	}
}

func TestToleranceWindowScoring(t *testing.T) {
	rt := New(footballTrial([]int{1000, 3000, 5000}), newFakeClock().now)
	rt.Begin()
	for _, click := range []int{980, 3050, 9000} {
		if err := rt.RegisterClick(click); err != nil {
			t.Fatalf("click at %d: %v", click, err)
		}
	}
	result, err := rt.FinishStimulus()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.Response != "hits=2/3" {
		t.Fatalf("expected 2 of 3 hits, got %q", result.Response)
	}
	// 2/3 >= 0.6, so the trial scores as correct.
	if !result.Correct {
		t.Fatalf("expected correct trial, got %+v", result)
	}
	if result.TimedOut {
		t.Fatalf("tolerance-window trials never time out")
	}
}

func TestToleranceWindowNeverTimesOut(t *testing.T) {
	rt := New(footballTrial([]int{2000, 6000}), newFakeClock().now)
	rt.Begin()
	result, err := rt.ExpireWindow()
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if result.TimedOut {
		t.Fatalf("no clicks is zero hits, not a timeout")
	}
	if result.Correct {
		t.Fatalf("zero hits cannot meet the required fraction")
	}
}

func TestEachEventAbsorbsOneClick(t *testing.T) {
	// Two clicks near one event must not count as two hits.
	if hits := CountHits([]int{990, 1010, 1050}, []int{1000, 4000}, 500); hits != 1 {
		t.Fatalf("expected 1 hit, got %d", hits)
	}
}

func TestMazeOutOfOrderClicksPenalizedNotBlocking(t *testing.T) {
	spec := domain.TrialSpec{
		ExerciseID:       domain.ExerciseMazeTracking,
		StimulusMs:       15000,
		ResponseWindowMs: 20000,
		MazeTracking: &domain.MazeTrackingSpec{
			GridSize: 5,
			Collectibles: []domain.Collectible{
				{Order: 1, Cell: domain.GridCell{Row: 0, Col: 0}},
				{Order: 2, Cell: domain.GridCell{Row: 1, Col: 1}},
				{Order: 3, Cell: domain.GridCell{Row: 2, Col: 2}},
			},
		},
	}
	rt := New(spec, newFakeClock().now)
	rt.Begin()

	if _, resolved, _ := rt.Collect(3); resolved {
		t.Fatalf("wrong-order click must not resolve")
	}
	rt.Collect(1)
	rt.Collect(2)
	result, resolved, err := rt.Collect(3)
	if err != nil || !resolved {
		t.Fatalf("expected resolution, resolved=%v err=%v", resolved, err)
	}
	if !result.Correct || result.Penalties != 1 {
		t.Fatalf("expected correct with 1 penalty, got %+v", result)
	}
}

func memoryTrial() domain.TrialSpec {
	return domain.TrialSpec{
		ExerciseID:       domain.ExerciseMemorySequence,
		StimulusMs:       3000,
		ResponseWindowMs: 12000,
		MemorySequence: &domain.MemorySequenceSpec{
			Sequence:    []string{"item-01", "item-02"},
			Distractors: []string{"item-03"},
			Grid:        []string{"item-02", "item-03", "item-01"},
			MaxAttempts: 3,
		},
	}
}

func TestMemoryRecallHappyPath(t *testing.T) {
	rt := New(memoryTrial(), newFakeClock().now)
	rt.Begin()
	rt.Collect(2)                          // item-01
	result, resolved, err := rt.Collect(0) // item-02
	if err != nil || !resolved {
		t.Fatalf("expected resolution, resolved=%v err=%v", resolved, err)
	}
	if !result.Correct {
		t.Fatalf("full recall must score correct, got %+v", result)
	}
}

func TestMemoryRetryCeilingForcesResolution(t *testing.T) {
	rt := New(memoryTrial(), newFakeClock().now)
	rt.Begin()
	var result domain.TrialResult
	var resolved bool
	for i := 0; i < 3; i++ {
		result, resolved, _ = rt.Collect(1) // distractor each round
	}
	if !resolved {
		t.Fatalf("third failed attempt must force resolution")
	}
	if result.Correct || result.TimedOut {
		t.Fatalf("forced resolution is incorrect but not a timeout, got %+v", result)
	}
	if result.Penalties != 3 {
		t.Fatalf("expected 3 penalties, got %d", result.Penalties)
	}
}

func TestPairSearchFullRun(t *testing.T) {
	spec := domain.TrialSpec{
		ExerciseID:       domain.ExercisePairSearch,
		StimulusMs:       3000,
		ResponseWindowMs: 30000,
		PairSearch: &domain.PairSearchSpec{
			GridSize: 2,
			Pairs: []domain.Pair{
				{ItemID: "icon-00", Positions: [2]int{0, 3}},
				{ItemID: "icon-01", Positions: [2]int{1, 2}},
			},
		},
	}
	clock := newFakeClock()
	rt := New(spec, clock.now)
	rt.Begin()

	clock.advance(900 * time.Millisecond)
	rt.Collect(0)
	rt.Collect(3) // match icon-00
	clock.advance(700 * time.Millisecond)
	rt.Collect(1)
	result, resolved, err := rt.Collect(2) // match icon-01
	if err != nil || !resolved {
		t.Fatalf("expected resolution, resolved=%v err=%v", resolved, err)
	}
	if !result.Correct || result.Penalties != 0 {
		t.Fatalf("clean run must be correct with no penalties, got %+v", result)
	}
	// Response time is real elapsed clock time, not a constant.
	if result.ResponseTimeMs != 1600 {
		t.Fatalf("expected 1600ms elapsed, got %d", result.ResponseTimeMs)
	}
}

func TestPairSearchMismatchPenalized(t *testing.T) {
	spec := domain.TrialSpec{
		ExerciseID:       domain.ExercisePairSearch,
		StimulusMs:       3000,
		ResponseWindowMs: 30000,
		PairSearch: &domain.PairSearchSpec{
			GridSize: 2,
			Pairs: []domain.Pair{
				{ItemID: "icon-00", Positions: [2]int{0, 3}},
				{ItemID: "icon-01", Positions: [2]int{1, 2}},
			},
		},
	}
	rt := New(spec, newFakeClock().now)
	rt.Begin()
	rt.Collect(0)
	rt.Collect(1) // mismatch
	rt.Collect(0)
	rt.Collect(3)
	rt.Collect(1)
	result, resolved, _ := rt.Collect(2)
	if !resolved {
		t.Fatalf("expected resolution after all pairs matched")
	}
	if result.Penalties != 1 {
		t.Fatalf("expected 1 penalty for the mismatch, got %d", result.Penalties)
	}
}

func TestLineMatchingResolvesWhenAllMatched(t *testing.T) {
	spec := domain.TrialSpec{
		ExerciseID:       domain.ExerciseLineTracking,
		StimulusMs:       10000,
		ResponseWindowMs: 15000,
		LineTracking: &domain.LineTrackingSpec{
			ItemCount: 2,
			Lines: []domain.TrackedLine{
				{LeftIndex: 0, RightIndex: 1},
				{LeftIndex: 1, RightIndex: 0},
			},
		},
	}
	rt := New(spec, newFakeClock().now)
	rt.Begin()
	if _, resolved, _ := rt.Match(0, 0); resolved {
		t.Fatalf("wrong match must not resolve")
	}
	rt.Match(0, 1)
	result, resolved, err := rt.Match(1, 0)
	if err != nil || !resolved {
		t.Fatalf("expected resolution, resolved=%v err=%v", resolved, err)
	}
	if !result.Correct || result.Penalties != 1 {
		t.Fatalf("expected correct with 1 penalty, got %+v", result)
	}
}

func TestLineMatchingIgnoresRepeatedPairings(t *testing.T) {
	spec := domain.TrialSpec{
		ExerciseID:       domain.ExerciseLineTracking,
		StimulusMs:       10000,
		ResponseWindowMs: 15000,
		LineTracking: &domain.LineTrackingSpec{
			ItemCount: 3,
			Lines: []domain.TrackedLine{
				{LeftIndex: 0, RightIndex: 1},
				{LeftIndex: 1, RightIndex: 2},
				{LeftIndex: 2, RightIndex: 0},
			},
		},
	}
	rt := New(spec, newFakeClock().now)
	rt.Begin()
	for i := 0; i < 3; i++ {
		if _, resolved, err := rt.Match(0, 1); resolved || err != nil {
			t.Fatalf("repeating one pairing must not resolve, resolved=%v err=%v", resolved, err)
		}
	}
	rt.Match(1, 2)
	result, resolved, err := rt.Match(2, 0)
	if err != nil || !resolved {
		t.Fatalf("expected resolution after every line matched, resolved=%v err=%v", resolved, err)
	}
	if !result.Correct || result.Penalties != 0 {
		t.Fatalf("repeats must not penalize, got %+v", result)
	}
}

func TestPauseExcludedFromResponseTime(t *testing.T) {
	clock := newFakeClock()
	rt := New(coherentMotionTrial(), clock.now)
	rt.Begin()
	clock.advance(1000 * time.Millisecond)
	rt.Pause()
	clock.advance(5000 * time.Millisecond)
	rt.Resume()
	clock.advance(500 * time.Millisecond)
	result, err := rt.SubmitChoice("left")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.ResponseTimeMs != 1500 {
		t.Fatalf("expected 1500ms excluding the paused interval, got %d", result.ResponseTimeMs)
	}
}

func TestSkipEmitsTerminalSkippedResult(t *testing.T) {
	rt := New(coherentMotionTrial(), newFakeClock().now)
	rt.Begin()
	result, err := rt.Skip()
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if !result.Skipped || result.Correct {
		t.Fatalf("expected skipped result, got %+v", result)
	}
}

func TestPositionAtInterpolates(t *testing.T) {
	path := domain.MotionPath{
		{X: 0, Y: 0, TimeMs: 0},
		{X: 1, Y: 0.5, TimeMs: 100},
	}
	p := PositionAt(path, 50)
	if p.X != 0.5 || p.Y != 0.25 {
		t.Fatalf("expected midpoint (0.5, 0.25), got %+v", p)
	}
	if end := PositionAt(path, 500); end.X != 1 {
		t.Fatalf("past-the-end lookup must clamp, got %+v", end)
	}
	if start := PositionAt(path, -10); start.X != 0 {
		t.Fatalf("before-start lookup must clamp, got %+v", start)
	}
}

func TestTickerWalksFixedSteps(t *testing.T) {
	ticker := &Ticker{StepMs: 40, DurationMs: 120}
	var steps []int
	for {
		now, ok := ticker.Next()
		if !ok {
			break
		}
		steps = append(steps, now)
	}
	want := []int{0, 40, 80, 120}
	if len(steps) != len(want) {
		t.Fatalf("expected %v, got %v", want, steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, steps)
		}
	}
}
