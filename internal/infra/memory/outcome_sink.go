package memory

import (
	"context"
	"sync"

	"attention-trainer-service/internal/domain"
)

// OutcomeSink keeps resolved outcomes in memory. It backs dev mode and
// doubles as a recording spy in tests.
type OutcomeSink struct {
	mu       sync.Mutex
	trials   []domain.TrialRecord
	runs     map[string]domain.ExerciseRunAggregate
	sessions map[string]domain.SessionStatus
}

func NewOutcomeSink() *OutcomeSink {
	return &OutcomeSink{
		runs:     make(map[string]domain.ExerciseRunAggregate),
		sessions: make(map[string]domain.SessionStatus),
	}
}

func (s *OutcomeSink) RecordTrial(_ context.Context, record domain.TrialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trials = append(s.trials, record)
	return nil
}

func (s *OutcomeSink) RecordRun(_ context.Context, _ string, runID string, agg domain.ExerciseRunAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runID] = agg
	return nil
}

func (s *OutcomeSink) RecordSession(_ context.Context, sessionID string, status domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = status
	return nil
}

// Trials returns a copy of the recorded trial log.
func (s *OutcomeSink) Trials() []domain.TrialRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TrialRecord{}, s.trials...)
}

// Run returns the recorded aggregate for a run id.
func (s *OutcomeSink) Run(runID string) (domain.ExerciseRunAggregate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.runs[runID]
	return agg, ok
}

// SessionStatus returns the recorded terminal status for a session.
func (s *OutcomeSink) SessionStatus(sessionID string) (domain.SessionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.sessions[sessionID]
	return status, ok
}
