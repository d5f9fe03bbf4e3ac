package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"attention-trainer-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// OutcomeSink persists trial records, run aggregates, and terminal session
// states. Writes are idempotent on their natural keys so a retried emission
// never duplicates a row.
type OutcomeSink struct {
	pool *pgxpool.Pool
}

func NewOutcomeSink(pool *pgxpool.Pool) *OutcomeSink {
	return &OutcomeSink{pool: pool}
}

func (s *OutcomeSink) RecordTrial(ctx context.Context, record domain.TrialRecord) error {
	config, err := json.Marshal(record.TrialConfig)
	if err != nil {
		return fmt.Errorf("marshal trial config: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO trial_results (
			session_id, run_id, trial_index, trial_config, correct_answer,
			user_response, response_time_ms, is_correct, is_timed_out,
			is_skipped, started_at, responded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (run_id, trial_index) DO NOTHING`,
		record.SessionID, record.RunID, record.TrialIndex, config,
		record.CorrectAnswer, record.UserResponse, record.ResponseTimeMs,
		record.IsCorrect, record.IsTimedOut, record.IsSkipped,
		record.StartedAt, nullableTime(record.RespondedAt),
	)
	if err != nil {
		return fmt.Errorf("insert trial result: %w", err)
	}
	return nil
}

func (s *OutcomeSink) RecordRun(ctx context.Context, sessionID, runID string, agg domain.ExerciseRunAggregate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exercise_runs (
			run_id, session_id, exercise_id, correct_count, total_trials,
			avg_response_time_ms, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (run_id) DO UPDATE SET
			correct_count = EXCLUDED.correct_count,
			total_trials = EXCLUDED.total_trials,
			avg_response_time_ms = EXCLUDED.avg_response_time_ms,
			completed_at = EXCLUDED.completed_at`,
		runID, sessionID, agg.ExerciseID, agg.CorrectCount, agg.TotalTrials,
		agg.AvgResponseTimeMs,
	)
	if err != nil {
		return fmt.Errorf("upsert exercise run: %w", err)
	}
	return nil
}

func (s *OutcomeSink) RecordSession(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO study_sessions (session_id, status, finished_at)
		VALUES ($1,$2,now())
		ON CONFLICT (session_id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at`,
		sessionID, string(status),
	)
	if err != nil {
		return fmt.Errorf("upsert study session: %w", err)
	}
	return nil
}

// nullableTime maps the zero time to SQL NULL; unanswered trials have no
// response timestamp.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
