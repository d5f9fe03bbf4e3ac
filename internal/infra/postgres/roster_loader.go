package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"attention-trainer-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RosterLoader loads session rosters stored as JSONB in Postgres.
type RosterLoader struct {
	pool *pgxpool.Pool
}

func NewRosterLoader(pool *pgxpool.Pool) *RosterLoader {
	return &RosterLoader{pool: pool}
}

func (l *RosterLoader) LoadRoster(ctx context.Context, rosterID string) (domain.Roster, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM rosters WHERE id=$1`, rosterID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Roster{}, fmt.Errorf("%w: %s", domain.ErrRosterNotFound, rosterID)
	}
	if err != nil {
		return domain.Roster{}, fmt.Errorf("load roster: %w", err)
	}
	var roster domain.Roster
	if err := json.Unmarshal(raw, &roster); err != nil {
		return domain.Roster{}, fmt.Errorf("unmarshal roster: %w", err)
	}
	roster.ID = rosterID
	return roster, nil
}
