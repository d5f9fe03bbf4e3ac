package app

import "attention-trainer-service/internal/domain"

// EventType tags session events published to subscribers.
type EventType string

const (
	EventTrial            EventType = "trial"
	EventTrialResult      EventType = "trialResult"
	EventExerciseComplete EventType = "exerciseComplete"
	EventSessionComplete  EventType = "sessionComplete"
	EventProgress         EventType = "progress"
	EventPaused           EventType = "paused"
	EventResumed          EventType = "resumed"
)

// Event is one session update delivered as a value over the subscription
// channel. The session owns delivery; runtimes never invoke callbacks.
type Event struct {
	Type     EventType                    `json:"type"`
	Trial    *domain.TrialSpec            `json:"trial,omitempty"`
	Result   *domain.TrialResult          `json:"result,omitempty"`
	Run      *domain.ExerciseRunAggregate `json:"run,omitempty"`
	Progress *domain.SessionProgress      `json:"progress,omitempty"`
}
