package memory

import (
	"testing"
	"time"

	"attention-trainer-service/internal/app"
	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/gen"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	create := func() *app.StudySession {
		roster := domain.Roster{ID: "r1", Entries: []domain.RosterEntry{
			{ExerciseID: domain.ExerciseCoherentMotion, Difficulty: 1, TrialCount: 2},
		}}
		plans := NewPlanRepository(gen.NewPlanBuilder(gen.NewRegistry()), time.Minute)
		return app.NewStudySession("s1", roster, plans, NewOutcomeSink())
	}

	session := store.GetOrCreate("s1", create)
	if session == nil {
		t.Fatalf("expected session")
	}
	if again := store.GetOrCreate("s1", create); again != session {
		t.Fatalf("expected the same session instance on rejoin")
	}
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}
