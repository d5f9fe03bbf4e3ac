package domain

import "errors"

var (
	// ErrUnknownExercise is returned when a plan request references an
	// exercise id with no registered generator. It must never silently
	// fall back to another exercise.
	ErrUnknownExercise = errors.New("unknown exercise id")
	// ErrMalformedTrialSpec indicates a generator produced geometry that
	// violates a family invariant; it aborts plan construction.
	ErrMalformedTrialSpec = errors.New("malformed trial spec")
	// ErrTrialResolved is returned when a late timer or input tries to
	// resolve a trial that already emitted its result.
	ErrTrialResolved = errors.New("trial already resolved")
	// ErrNoActiveTrial is returned when input arrives outside a running trial.
	ErrNoActiveTrial = errors.New("no active trial")
	// ErrSessionNotFound is returned when a participant session has not been started.
	ErrSessionNotFound = errors.New("study session not found")
	// ErrSessionComplete is returned when input arrives after the session ended.
	ErrSessionComplete = errors.New("study session already complete")
	// ErrSessionPaused is returned for trial input while the session is paused.
	ErrSessionPaused = errors.New("study session is paused")
	// ErrRosterNotFound indicates the session roster could not be loaded.
	ErrRosterNotFound = errors.New("roster not found")
)
