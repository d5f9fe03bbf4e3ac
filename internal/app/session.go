package app

import (
	"context"
	"log"
	"sync"
	"time"

	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/runtime"
)

// PlanRepository builds (or serves cached) exercise plans. Pure and
// side-effect-free from the session's point of view.
type PlanRepository interface {
	GetPlan(ctx context.Context, exerciseID string, difficulty, trialCount int) (domain.ExercisePlan, error)
}

// OutcomeSink receives resolved trials, completed runs, and terminal
// session statuses. Emission is fire-and-forget: the session never blocks a
// trial on persistence.
type OutcomeSink interface {
	RecordTrial(ctx context.Context, record domain.TrialRecord) error
	RecordRun(ctx context.Context, sessionID, runID string, agg domain.ExerciseRunAggregate) error
	RecordSession(ctx context.Context, sessionID string, status domain.SessionStatus) error
}

type sessionPhase int

const (
	phaseIdle sessionPhase = iota
	phaseIntro
	phaseRunning
	phaseFeedback
	phasePaused
	phaseComplete
)

// Timings holds the cosmetic phase durations. They gate pacing, never
// correctness.
type Timings struct {
	IntroMs    int
	FeedbackMs int
}

// DefaultTimings matches the pacing children see in the exercises.
var DefaultTimings = Timings{IntroMs: 1500, FeedbackMs: 800}

const sinkTimeout = 5 * time.Second

// StudySession sequences a fixed, externally supplied exercise roster
// through one exerciseRun at a time and accumulates SessionProgress. All
// state is guarded by one mutex; pending timers carry an epoch so a late
// callback can never mutate a session that has moved on.
type StudySession struct {
	id      string
	roster  domain.Roster
	plans   PlanRepository
	sink    OutcomeSink
	now     func() time.Time
	timings Timings

	mu            sync.Mutex
	phase         sessionPhase
	resumePhase   sessionPhase
	planned       []domain.ExercisePlan
	exerciseIndex int
	run           *exerciseRun
	completedRuns []domain.ExerciseRunAggregate
	status        domain.SessionStatus
	subscribers   map[chan Event]struct{}

	timer     *time.Timer
	epoch     int
	deadline  time.Time
	pendingFn func()
	remaining time.Duration
}

// NewStudySession builds an idle session for one roster.
func NewStudySession(id string, roster domain.Roster, plans PlanRepository, sink OutcomeSink) *StudySession {
	return NewStudySessionWithClock(id, roster, plans, sink, time.Now, DefaultTimings)
}

// NewStudySessionWithClock allows deterministic timestamps and compressed
// pacing in tests.
func NewStudySessionWithClock(id string, roster domain.Roster, plans PlanRepository, sink OutcomeSink, now func() time.Time, timings Timings) *StudySession {
	return &StudySession{
		id:          id,
		roster:      roster,
		plans:       plans,
		sink:        sink,
		now:         now,
		timings:     timings,
		subscribers: make(map[chan Event]struct{}),
	}
}

// ID returns the session identifier.
func (s *StudySession) ID() string { return s.id }

// Begin starts the first exercise. Calling Begin on a session that already
// started is a no-op so reconnecting clients can rejoin. Every plan in the
// roster is loaded up front so timer callbacks never block on the plan
// repository while holding the session lock; a plan that cannot be built
// fails the whole session here, never mid-run.
func (s *StudySession) Begin(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != phaseIdle {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	planned := make([]domain.ExercisePlan, len(s.roster.Entries))
	for i, entry := range s.roster.Entries {
		plan, err := s.plans.GetPlan(ctx, entry.ExerciseID, entry.Difficulty, entry.TrialCount)
		if err != nil {
			return err
		}
		planned[i] = plan
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phaseIdle {
		return nil
	}
	s.planned = planned
	s.startExerciseLocked()
	return nil
}

func (s *StudySession) startExerciseLocked() {
	s.run = newExerciseRun(s.id, s.exerciseIndex, s.planned[s.exerciseIndex])
	s.phase = phaseIntro
	s.broadcastLocked(Event{Type: EventProgress, Progress: s.progressLocked()})
	s.scheduleLocked(time.Duration(s.timings.IntroMs)*time.Millisecond, s.startTrialLocked)
}

// startTrialLocked begins the run's current trial and arms its clock.
func (s *StudySession) startTrialLocked() {
	s.phase = phaseRunning
	spec := s.run.startTrial(s.now)
	trial := spec
	s.broadcastLocked(Event{Type: EventTrial, Trial: &trial})

	stimulus := time.Duration(spec.StimulusMs) * time.Millisecond
	if runtime.DisciplineOf(spec) == runtime.DisciplineWindow {
		// Tolerance-window trials resolve at the stimulus boundary.
		s.scheduleLocked(stimulus, s.finishStimulusLocked)
		return
	}
	s.scheduleLocked(stimulus, s.endPresentationLocked)
}

func (s *StudySession) endPresentationLocked() {
	active := s.activeLocked()
	if active == nil {
		return
	}
	active.EndPresentation()
	window := time.Duration(active.Spec().ResponseWindowMs) * time.Millisecond
	s.scheduleLocked(window, s.expireWindowLocked)
}

func (s *StudySession) finishStimulusLocked() {
	active := s.activeLocked()
	if active == nil {
		return
	}
	result, err := active.FinishStimulus()
	if err != nil {
		// Already resolved; the stale callback is discarded.
		return
	}
	s.finalizeTrialLocked(result)
}

func (s *StudySession) expireWindowLocked() {
	active := s.activeLocked()
	if active == nil {
		return
	}
	result, err := active.ExpireWindow()
	if err != nil {
		return
	}
	s.finalizeTrialLocked(result)
}

func (s *StudySession) activeLocked() *runtime.TrialRuntime {
	if s.run == nil {
		return nil
	}
	return s.run.active
}

// finalizeTrialLocked is the single exit from a resolved trial: it cancels
// the pending timer, records and emits the result, and arms the feedback
// pulse.
func (s *StudySession) finalizeTrialLocked(result domain.TrialResult) {
	s.cancelTimerLocked()
	spec := s.run.active.Spec()
	record := domain.TrialRecord{
		SessionID:      s.id,
		RunID:          s.run.runID,
		TrialIndex:     result.TrialIndex,
		TrialConfig:    spec,
		CorrectAnswer:  runtime.CorrectAnswer(spec),
		UserResponse:   result.Response,
		ResponseTimeMs: result.ResponseTimeMs,
		IsCorrect:      result.Correct,
		IsTimedOut:     result.TimedOut,
		IsSkipped:      result.Skipped,
		StartedAt:      result.StartedAt,
		RespondedAt:    result.RespondedAt,
	}
	s.run.record(result)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := s.sink.RecordTrial(ctx, record); err != nil {
			log.Printf("record trial %s/%d: %v", record.RunID, record.TrialIndex, err)
		}
	}()

	res := result
	s.broadcastLocked(Event{Type: EventTrialResult, Result: &res})
	s.phase = phaseFeedback
	pause := time.Duration(s.timings.FeedbackMs+spec.InterTrialMs) * time.Millisecond
	s.scheduleLocked(pause, s.advanceLocked)
}

// advanceLocked moves to the next trial, the next exercise, or session
// completion.
func (s *StudySession) advanceLocked() {
	if s.run.hasMoreTrials() {
		s.run.trialIndex++
		s.startTrialLocked()
		return
	}

	agg := s.run.aggregate()
	s.completedRuns = append(s.completedRuns, agg)
	runID := s.run.runID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := s.sink.RecordRun(ctx, s.id, runID, agg); err != nil {
			log.Printf("record run %s: %v", runID, err)
		}
	}()
	aggCopy := agg
	s.broadcastLocked(Event{Type: EventExerciseComplete, Run: &aggCopy})

	s.exerciseIndex++
	if s.exerciseIndex < len(s.roster.Entries) {
		s.startExerciseLocked()
		return
	}
	s.completeLocked(domain.SessionCompleted)
}

func (s *StudySession) completeLocked(status domain.SessionStatus) {
	s.cancelTimerLocked()
	s.phase = phaseComplete
	s.status = status
	s.run = nil
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := s.sink.RecordSession(ctx, s.id, status); err != nil {
			log.Printf("record session %s: %v", s.id, err)
		}
	}()
	s.broadcastLocked(Event{Type: EventSessionComplete, Progress: s.progressLocked()})
}

// SubmitChoice forwards a discrete answer to the active trial.
func (s *StudySession) SubmitChoice(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, err := s.inputTargetLocked()
	if err != nil {
		return err
	}
	result, err := active.SubmitChoice(value)
	if err != nil {
		return err
	}
	s.finalizeTrialLocked(result)
	return nil
}

// RegisterClick records a timestamped click for tolerance-window trials.
func (s *StudySession) RegisterClick(atMs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, err := s.inputTargetLocked()
	if err != nil {
		return err
	}
	return active.RegisterClick(atMs)
}

// Collect forwards one ordered-sequence click (maze collectible, memory
// grid index, pair-search position).
func (s *StudySession) Collect(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, err := s.inputTargetLocked()
	if err != nil {
		return err
	}
	result, resolved, err := active.Collect(index)
	if err != nil {
		return err
	}
	if resolved {
		s.finalizeTrialLocked(result)
	}
	return nil
}

// Match forwards one line-tracking endpoint pairing.
func (s *StudySession) Match(left, right int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, err := s.inputTargetLocked()
	if err != nil {
		return err
	}
	result, resolved, err := active.Match(left, right)
	if err != nil {
		return err
	}
	if resolved {
		s.finalizeTrialLocked(result)
	}
	return nil
}

func (s *StudySession) inputTargetLocked() (*runtime.TrialRuntime, error) {
	switch s.phase {
	case phaseComplete:
		return nil, domain.ErrSessionComplete
	case phasePaused:
		return nil, domain.ErrSessionPaused
	}
	active := s.activeLocked()
	if active == nil {
		return nil, domain.ErrNoActiveTrial
	}
	return active, nil
}

// Pause freezes the session mid-trial. The pending phase timer is
// cancelled and its remaining duration captured so Resume returns to
// exactly the same trial index with the same budget.
func (s *StudySession) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phaseRunning && s.phase != phaseFeedback && s.phase != phaseIntro {
		return nil
	}
	s.resumePhase = s.phase
	s.remaining = s.deadline.Sub(s.now())
	if s.remaining < 0 {
		s.remaining = 0
	}
	fn := s.pendingFn
	s.cancelTimerLocked()
	s.pendingFn = fn
	s.phase = phasePaused
	if active := s.activeLocked(); active != nil {
		active.Pause()
	}
	s.broadcastLocked(Event{Type: EventPaused})
	return nil
}

// Resume rearms the timer that was pending at pause time.
func (s *StudySession) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phasePaused {
		return nil
	}
	s.phase = s.resumePhase
	if active := s.activeLocked(); active != nil {
		active.Resume()
	}
	s.broadcastLocked(Event{Type: EventResumed})
	if s.pendingFn != nil {
		s.scheduleLocked(s.remaining, s.pendingFn)
	}
	return nil
}

// Exit abandons the session. An in-flight trial is skipped (its result is
// still emitted exactly once) and the session records as incomplete.
func (s *StudySession) Exit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == phaseComplete {
		return domain.ErrSessionComplete
	}
	s.cancelTimerLocked()
	if active := s.activeLocked(); active != nil {
		if result, err := active.Skip(); err == nil {
			s.finalizeTrialLocked(result)
			// finalize armed a feedback timer; an exiting session has no
			// next trial to pace.
			s.cancelTimerLocked()
		}
	}
	s.completeLocked(domain.SessionIncomplete)
	return nil
}

// TrialIndex reports the current trial position within the running
// exercise.
func (s *StudySession) TrialIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return -1
	}
	return s.run.trialIndex
}

// Progress snapshots the accumulated per-exercise aggregates.
func (s *StudySession) Progress() domain.SessionProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.progressLocked()
}

func (s *StudySession) progressLocked() *domain.SessionProgress {
	progress := &domain.SessionProgress{
		SessionID: s.id,
		Runs:      append([]domain.ExerciseRunAggregate{}, s.completedRuns...),
		Status:    s.status,
	}
	for _, run := range s.completedRuns {
		progress.CorrectTotal += run.CorrectCount
		progress.TrialTotal += run.TotalTrials
	}
	return progress
}

// Subscribe returns a channel of session events plus a cancel func the
// caller must invoke to avoid leaks. The first event is a progress
// snapshot.
func (s *StudySession) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := Event{Type: EventProgress, Progress: s.progressLocked()}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *StudySession) broadcastLocked(event Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest update so a slow client cannot stall the
			// session.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// scheduleLocked arms the single pending phase timer. The epoch guard makes
// a fired-but-unstarted callback a no-op once anything cancels or
// reschedules, so at most one transition path can still mutate the session.
func (s *StudySession) scheduleLocked(d time.Duration, fn func()) {
	s.cancelTimerLocked()
	s.epoch++
	epoch := s.epoch
	s.deadline = s.now().Add(d)
	s.pendingFn = fn
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch || s.phase == phasePaused {
			return
		}
		fn()
	})
}

func (s *StudySession) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.epoch++
	s.pendingFn = nil
}
