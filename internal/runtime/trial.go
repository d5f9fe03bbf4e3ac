package runtime

import (
	"fmt"
	"math"
	"time"

	"attention-trainer-service/internal/domain"
)

// Phase is the trial state machine position.
type Phase int

const (
	PhasePresenting Phase = iota
	PhaseAwaitingResponse
	PhaseResolved
)

// Discipline is how a family's responses are classified.
type Discipline int

const (
	// DisciplineChoice resolves on a single discrete answer.
	DisciplineChoice Discipline = iota
	// DisciplineWindow collects timestamped clicks scored against target
	// events at the stimulus boundary; it never times out.
	DisciplineWindow
	// DisciplineOrdered resolves when all sub-items are matched in order;
	// wrong attempts are penalized but do not end the trial.
	DisciplineOrdered
)

// DisciplineOf maps an exercise family to its response discipline.
func DisciplineOf(spec domain.TrialSpec) Discipline {
	switch spec.ExerciseID {
	case domain.ExerciseFootball, domain.ExerciseTennis, domain.ExerciseTwoCircles, domain.ExerciseSaccades:
		return DisciplineWindow
	case domain.ExerciseLineTracking, domain.ExerciseMazeTracking, domain.ExerciseMemorySequence, domain.ExercisePairSearch:
		return DisciplineOrdered
	default:
		return DisciplineChoice
	}
}

// TrialRuntime executes one TrialSpec. It holds no timers itself; the
// owning session schedules timeouts and calls back in. All methods must be
// called from a single goroutine (the session serializes access). A trial
// resolves exactly once; any later resolution attempt returns
// domain.ErrTrialResolved.
type TrialRuntime struct {
	spec       domain.TrialSpec
	discipline Discipline
	now        func() time.Time

	phase       Phase
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration

	clicks    []int // ms offsets from trial start (window discipline)
	progress  int   // sub-items matched in order (ordered discipline)
	attempts  int   // failed recall rounds (memory retry ceiling)
	penalties int
	pending   int // pair search: currently flipped position, -1 if none
	matched   map[int]bool

	result *domain.TrialResult
}

// New builds a runtime for one trial. The clock is injected so tests can be
// deterministic.
func New(spec domain.TrialSpec, now func() time.Time) *TrialRuntime {
	if now == nil {
		now = time.Now
	}
	return &TrialRuntime{
		spec:       spec,
		discipline: DisciplineOf(spec),
		now:        now,
		pending:    -1,
		matched:    make(map[int]bool),
	}
}

// Begin starts the stimulus clock.
func (t *TrialRuntime) Begin() {
	t.phase = PhasePresenting
	t.startedAt = t.now()
}

// EndPresentation moves a discrete/ordered trial into its response window.
// Window-discipline trials stay in Presenting until FinishStimulus.
func (t *TrialRuntime) EndPresentation() {
	if t.phase == PhasePresenting {
		t.phase = PhaseAwaitingResponse
	}
}

// Phase reports the current state machine position.
func (t *TrialRuntime) Phase() Phase { return t.phase }

// Spec returns the trial under execution.
func (t *TrialRuntime) Spec() domain.TrialSpec { return t.spec }

// Result returns the emitted result, if the trial has resolved.
func (t *TrialRuntime) Result() (domain.TrialResult, bool) {
	if t.result == nil {
		return domain.TrialResult{}, false
	}
	return *t.result, true
}

// Pause marks the start of a suspended interval. Suspended time is
// excluded from every response measurement.
func (t *TrialRuntime) Pause() {
	if t.phase == PhaseResolved || !t.pausedAt.IsZero() {
		return
	}
	t.pausedAt = t.now()
}

// Resume closes the suspended interval opened by Pause.
func (t *TrialRuntime) Resume() {
	if t.pausedAt.IsZero() {
		return
	}
	t.pausedTotal += t.now().Sub(t.pausedAt)
	t.pausedAt = time.Time{}
}

func (t *TrialRuntime) elapsedMs() int {
	return int((t.now().Sub(t.startedAt) - t.pausedTotal) / time.Millisecond)
}

// resolve emits the single TrialResult. Guarded: a resolved trial never
// re-enters Presenting and never emits twice.
func (t *TrialRuntime) resolve(response string, correct, timedOut, skipped bool) (domain.TrialResult, error) {
	if t.phase == PhaseResolved {
		return domain.TrialResult{}, domain.ErrTrialResolved
	}
	t.phase = PhaseResolved
	result := &domain.TrialResult{
		TrialIndex: t.spec.TrialIndex,
		Response:   response,
		Correct:    correct,
		TimedOut:   timedOut,
		Skipped:    skipped,
		Penalties:  t.penalties,
		StartedAt:  t.startedAt,
	}
	// Unanswered trials carry no response timestamp. Suspended time does
	// not count toward the response measurement.
	if !timedOut && !skipped {
		result.RespondedAt = t.now()
		result.ResponseTimeMs = int((result.RespondedAt.Sub(t.startedAt) - t.pausedTotal) / time.Millisecond)
	}
	t.result = result
	return *t.result, nil
}

// SubmitChoice resolves a discrete-choice trial. Correct iff the chosen
// option equals the pre-computed answer. When a choice arrives at the same
// instant as the window deadline the choice wins; the session cancels the
// timeout before calling here.
func (t *TrialRuntime) SubmitChoice(value string) (domain.TrialResult, error) {
	if t.phase == PhaseResolved {
		return domain.TrialResult{}, domain.ErrTrialResolved
	}
	if t.discipline != DisciplineChoice {
		return domain.TrialResult{}, fmt.Errorf("choice input on %s trial", t.spec.ExerciseID)
	}
	return t.resolve(value, t.choiceCorrect(value), false, false)
}

func (t *TrialRuntime) choiceCorrect(value string) bool {
	switch t.spec.ExerciseID {
	case domain.ExerciseCoherentMotion:
		return value == t.spec.CoherentMotion.CoherentSide
	case domain.ExerciseVisualSearch:
		vs := t.spec.VisualSearch
		// The all-identical grid resolves correct on the first click: there
		// is no odd cell the participant could be required to find.
		if vs.TotalDifferent == 0 {
			return true
		}
		for _, cell := range vs.OddCells {
			if value == fmt.Sprintf("%d,%d", cell.Row, cell.Col) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// RegisterClick records a timestamped click for tolerance-window scoring.
// atMs is the click's offset from trial start.
func (t *TrialRuntime) RegisterClick(atMs int) error {
	if t.phase == PhaseResolved {
		return domain.ErrTrialResolved
	}
	if t.discipline != DisciplineWindow {
		return fmt.Errorf("timed click on %s trial", t.spec.ExerciseID)
	}
	t.clicks = append(t.clicks, atMs)
	return nil
}

// FinishStimulus resolves a tolerance-window trial at the stimulus-duration
// boundary. These trials never time out: no clicks is simply zero hits.
func (t *TrialRuntime) FinishStimulus() (domain.TrialResult, error) {
	if t.phase == PhaseResolved {
		return domain.TrialResult{}, domain.ErrTrialResolved
	}
	if t.discipline != DisciplineWindow {
		return domain.TrialResult{}, fmt.Errorf("stimulus finish on %s trial", t.spec.ExerciseID)
	}
	events, tolerance, fraction := t.windowTargets()
	hits := CountHits(t.clicks, events, tolerance)
	required := int(math.Ceil(fraction * float64(len(events))))
	correct := len(events) > 0 && hits >= required
	response := fmt.Sprintf("hits=%d/%d", hits, len(events))
	return t.resolve(response, correct, false, false)
}

func (t *TrialRuntime) windowTargets() (events []int, toleranceMs int, fraction float64) {
	if t.spec.Saccades != nil {
		for _, target := range t.spec.Saccades.Targets {
			events = append(events, target.OnsetMs)
		}
		return events, t.spec.Saccades.ToleranceMs, t.spec.Saccades.RequiredFraction
	}
	ov := t.spec.Overlap
	return ov.OverlapTimesMs, ov.ToleranceMs, ov.RequiredFraction
}

// CountHits matches clicks against target events within the tolerance
// window. Each event absorbs at most one click and each click counts at
// most once.
func CountHits(clicks, events []int, toleranceMs int) int {
	usedClick := make([]bool, len(clicks))
	hits := 0
	for _, event := range events {
		for i, click := range clicks {
			if usedClick[i] {
				continue
			}
			if abs(click-event) <= toleranceMs {
				usedClick[i] = true
				hits++
				break
			}
		}
	}
	return hits
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Collect advances an ordered-sequence trial by one sub-item click. The
// meaning of index is family-specific: the collectible order for mazes, the
// selection-grid index for memory recall, and the grid position for pair
// search. The bool reports whether the trial resolved.
func (t *TrialRuntime) Collect(index int) (domain.TrialResult, bool, error) {
	if t.phase == PhaseResolved {
		return domain.TrialResult{}, false, domain.ErrTrialResolved
	}
	if t.discipline != DisciplineOrdered {
		return domain.TrialResult{}, false, fmt.Errorf("collect input on %s trial", t.spec.ExerciseID)
	}
	switch t.spec.ExerciseID {
	case domain.ExerciseMazeTracking:
		return t.collectMaze(index)
	case domain.ExerciseMemorySequence:
		return t.collectMemory(index)
	case domain.ExercisePairSearch:
		return t.collectPair(index)
	default:
		return domain.TrialResult{}, false, fmt.Errorf("collect input on %s trial", t.spec.ExerciseID)
	}
}

func (t *TrialRuntime) collectMaze(order int) (domain.TrialResult, bool, error) {
	total := len(t.spec.MazeTracking.Collectibles)
	if order == t.progress+1 {
		t.progress++
	} else {
		// Out-of-order clicks are tracked but never block progress.
		t.penalties++
	}
	if t.progress == total {
		result, err := t.resolve(fmt.Sprintf("collected=%d", total), true, false, false)
		return result, err == nil, err
	}
	return domain.TrialResult{}, false, nil
}

func (t *TrialRuntime) collectMemory(gridIndex int) (domain.TrialResult, bool, error) {
	ms := t.spec.MemorySequence
	if gridIndex < 0 || gridIndex >= len(ms.Grid) {
		return domain.TrialResult{}, false, fmt.Errorf("grid index %d out of range", gridIndex)
	}
	if ms.Grid[gridIndex] == ms.Sequence[t.progress] {
		t.progress++
		if t.progress == len(ms.Sequence) {
			result, err := t.resolve("sequence recalled", true, false, false)
			return result, err == nil, err
		}
		return domain.TrialResult{}, false, nil
	}
	// A wrong pick fails the whole attempt; recall restarts from the top.
	t.penalties++
	t.attempts++
	t.progress = 0
	if t.attempts >= ms.MaxAttempts {
		// Retry ceiling: force resolution so the exercise keeps moving.
		result, err := t.resolve(fmt.Sprintf("failed after %d attempts", t.attempts), false, false, false)
		return result, err == nil, err
	}
	return domain.TrialResult{}, false, nil
}

func (t *TrialRuntime) collectPair(position int) (domain.TrialResult, bool, error) {
	ps := t.spec.PairSearch
	if t.matched[position] || position == t.pending {
		return domain.TrialResult{}, false, nil
	}
	if t.pending < 0 {
		t.pending = position
		return domain.TrialResult{}, false, nil
	}
	first, second := t.pending, position
	t.pending = -1
	if t.itemAt(first) == t.itemAt(second) {
		t.matched[first] = true
		t.matched[second] = true
		t.progress++
	} else {
		t.penalties++
	}
	if t.progress == len(ps.Pairs) {
		result, err := t.resolve(fmt.Sprintf("pairs=%d", t.progress), true, false, false)
		return result, err == nil, err
	}
	return domain.TrialResult{}, false, nil
}

func (t *TrialRuntime) itemAt(position int) string {
	for _, p := range t.spec.PairSearch.Pairs {
		if p.Positions[0] == position || p.Positions[1] == position {
			return p.ItemID
		}
	}
	return ""
}

// Match advances a line-tracking trial with one endpoint pairing attempt.
func (t *TrialRuntime) Match(left, right int) (domain.TrialResult, bool, error) {
	if t.phase == PhaseResolved {
		return domain.TrialResult{}, false, domain.ErrTrialResolved
	}
	if t.spec.LineTracking == nil {
		return domain.TrialResult{}, false, fmt.Errorf("match input on %s trial", t.spec.ExerciseID)
	}
	correct := false
	for _, l := range t.spec.LineTracking.Lines {
		if l.LeftIndex == left && l.RightIndex == right {
			correct = true
			break
		}
	}
	switch {
	case correct && t.matched[left]:
		// Re-submitting an already matched pairing neither advances nor
		// penalizes; progress counts distinct lines only.
	case correct:
		t.matched[left] = true
		t.progress++
	default:
		t.penalties++
	}
	if t.progress == t.spec.LineTracking.ItemCount {
		result, err := t.resolve(fmt.Sprintf("matched=%d", t.progress), true, false, false)
		return result, err == nil, err
	}
	return domain.TrialResult{}, false, nil
}

// ExpireWindow fires when the response window elapses with the trial still
// open. Window-discipline trials resolve by scoring instead; everything
// else times out.
func (t *TrialRuntime) ExpireWindow() (domain.TrialResult, error) {
	if t.phase == PhaseResolved {
		return domain.TrialResult{}, domain.ErrTrialResolved
	}
	if t.discipline == DisciplineWindow {
		return t.FinishStimulus()
	}
	return t.resolve("", false, true, false)
}

// Skip abandons an in-flight trial (exercise switch, session exit). The
// result is terminal like any other, flagged skipped.
func (t *TrialRuntime) Skip() (domain.TrialResult, error) {
	if t.phase == PhaseResolved {
		return domain.TrialResult{}, domain.ErrTrialResolved
	}
	return t.resolve("", false, false, true)
}

// CorrectAnswer renders the precomputed answer for the persistence record.
func (t *TrialRuntime) CorrectAnswer() string {
	return CorrectAnswer(t.spec)
}

// CorrectAnswer renders a TrialSpec's precomputed answer in the same string
// form responses use.
func CorrectAnswer(spec domain.TrialSpec) string {
	switch spec.ExerciseID {
	case domain.ExerciseCoherentMotion:
		return spec.CoherentMotion.CoherentSide
	case domain.ExerciseVisualSearch:
		if spec.VisualSearch.TotalDifferent == 0 {
			return "none"
		}
		c := spec.VisualSearch.OddCells[0]
		return fmt.Sprintf("%d,%d", c.Row, c.Col)
	case domain.ExerciseFootball, domain.ExerciseTennis, domain.ExerciseTwoCircles:
		return fmt.Sprintf("events=%d", len(spec.Overlap.OverlapTimesMs))
	case domain.ExerciseSaccades:
		return fmt.Sprintf("targets=%d", len(spec.Saccades.Targets))
	case domain.ExerciseLineTracking:
		return fmt.Sprintf("matches=%d", spec.LineTracking.ItemCount)
	case domain.ExerciseMazeTracking:
		return fmt.Sprintf("collectibles=%d", len(spec.MazeTracking.Collectibles))
	case domain.ExerciseMemorySequence:
		return fmt.Sprintf("sequence=%d", len(spec.MemorySequence.Sequence))
	case domain.ExercisePairSearch:
		return fmt.Sprintf("pairs=%d", len(spec.PairSearch.Pairs))
	default:
		return ""
	}
}
