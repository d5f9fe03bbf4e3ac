package app

import (
	"context"
	"fmt"
	"time"

	"attention-trainer-service/internal/domain"
)

// SessionRepository abstracts how study sessions are stored (in-memory,
// Redis-backed, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string, create func() *StudySession) *StudySession
	Get(sessionID string) (*StudySession, bool)
	Delete(sessionID string)
}

// RosterRepository loads the externally supplied exercise roster for a
// participant session.
type RosterRepository interface {
	LoadRoster(ctx context.Context, rosterID string) (domain.Roster, error)
}

// TrainerService contains the participant-facing use cases: start a
// session from a roster, forward timed trial input, pause/resume, and
// subscribe to progression events.
type TrainerService struct {
	sessions SessionRepository
	plans    PlanRepository
	rosters  RosterRepository
	sink     OutcomeSink
	now      func() time.Time
	timings  Timings
}

func NewTrainerService(sessions SessionRepository, plans PlanRepository, rosters RosterRepository, sink OutcomeSink) *TrainerService {
	return &TrainerService{
		sessions: sessions,
		plans:    plans,
		rosters:  rosters,
		sink:     sink,
		now:      time.Now,
		timings:  DefaultTimings,
	}
}

// NewTrainerServiceWithClock is test-only for deterministic timestamps and
// compressed pacing.
func NewTrainerServiceWithClock(sessions SessionRepository, plans PlanRepository, rosters RosterRepository, sink OutcomeSink, now func() time.Time, timings Timings) *TrainerService {
	s := NewTrainerService(sessions, plans, rosters, sink)
	s.now = now
	s.timings = timings
	return s
}

// StartSession loads the roster and begins (or rejoins) the session.
func (s *TrainerService) StartSession(ctx context.Context, sessionID, rosterID string) (*StudySession, error) {
	roster, err := s.rosters.LoadRoster(ctx, rosterID)
	if err != nil {
		return nil, err
	}
	if len(roster.Entries) == 0 {
		return nil, fmt.Errorf("%w: roster %q is empty", domain.ErrRosterNotFound, rosterID)
	}
	session := s.sessions.GetOrCreate(sessionID, func() *StudySession {
		return NewStudySessionWithClock(sessionID, roster, s.plans, s.sink, s.now, s.timings)
	})
	if err := session.Begin(ctx); err != nil {
		s.sessions.Delete(sessionID)
		return nil, err
	}
	return session, nil
}

// Subscribe attaches to a running session's event stream.
func (s *TrainerService) Subscribe(sessionID string) (<-chan Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

func (s *TrainerService) session(sessionID string) (*StudySession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// SubmitChoice forwards a discrete answer to the session's active trial.
func (s *TrainerService) SubmitChoice(sessionID, value string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return session.SubmitChoice(value)
}

// RegisterClick forwards one timestamped click.
func (s *TrainerService) RegisterClick(sessionID string, atMs int) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return session.RegisterClick(atMs)
}

// Collect forwards one ordered-sequence click.
func (s *TrainerService) Collect(sessionID string, index int) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return session.Collect(index)
}

// Match forwards one line-tracking pairing attempt.
func (s *TrainerService) Match(sessionID string, left, right int) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return session.Match(left, right)
}

// Pause freezes the session mid-trial.
func (s *TrainerService) Pause(sessionID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return session.Pause()
}

// Resume continues a paused session at the same trial index.
func (s *TrainerService) Resume(sessionID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return session.Resume()
}

// Exit abandons the session and drops it from the store.
func (s *TrainerService) Exit(sessionID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	exitErr := session.Exit()
	s.sessions.Delete(sessionID)
	return exitErr
}

// Progress returns the session's accumulated aggregates.
func (s *TrainerService) Progress(sessionID string) (domain.SessionProgress, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionProgress{}, err
	}
	return session.Progress(), nil
}
