package memory

import (
	"context"

	"attention-trainer-service/internal/domain"
)

// StaticRosterLoader serves rosters from an in-memory map (useful for
// tests/demos; production loads rosters from Postgres).
type StaticRosterLoader struct {
	rosters map[string]domain.Roster
}

func NewStaticRosterLoader(rosters map[string]domain.Roster) *StaticRosterLoader {
	return &StaticRosterLoader{rosters: rosters}
}

func (l *StaticRosterLoader) LoadRoster(_ context.Context, rosterID string) (domain.Roster, error) {
	if roster, ok := l.rosters[rosterID]; ok {
		return roster, nil
	}
	return domain.Roster{}, domain.ErrRosterNotFound
}
