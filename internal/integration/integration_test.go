package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"attention-trainer-service/internal/app"
	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/gen"
	pginfra "attention-trainer-service/internal/infra/postgres"
	pgmigrations "attention-trainer-service/internal/infra/postgres/migrations"
	infraredis "attention-trainer-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestTrainingSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedRoster(t, ctx, pgURL, sampleRoster())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	rosters := pginfra.NewRosterLoader(pool)
	sink := pginfra.NewOutcomeSink(pool)
	plans := infraredis.NewPlanRepository(redisClient, gen.NewPlanBuilder(gen.NewRegistry()), 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewTrainerServiceWithClock(sessionStore, plans, rosters, sink, time.Now, app.Timings{IntroMs: 10, FeedbackMs: 10})

	if _, err := service.StartSession(ctx, "s1", "roster-1"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	events, cancel, err := service.Subscribe("s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	trial := awaitEvent(t, events, app.EventTrial)
	if trial.Trial == nil || trial.Trial.CoherentMotion == nil {
		t.Fatalf("expected coherent motion trial, got %+v", trial)
	}
	if err := service.SubmitChoice("s1", trial.Trial.CoherentMotion.CoherentSide); err != nil {
		t.Fatalf("submit choice: %v", err)
	}
	result := awaitEvent(t, events, app.EventTrialResult)
	if !result.Result.Correct {
		t.Fatalf("expected correct result, got %+v", result.Result)
	}
	awaitEvent(t, events, app.EventExerciseComplete)
	done := awaitEvent(t, events, app.EventSessionComplete)
	if done.Progress.Status != domain.SessionCompleted {
		t.Fatalf("expected completed session, got %+v", done.Progress)
	}

	// Persistence lands asynchronously; poll for the rows.
	awaitRowCount(t, ctx, pool, `SELECT count(*) FROM trial_results WHERE session_id='s1'`, 1)
	awaitRowCount(t, ctx, pool, `SELECT count(*) FROM exercise_runs WHERE session_id='s1'`, 1)

	var status string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := pool.QueryRow(ctx, `SELECT status FROM study_sessions WHERE session_id='s1'`).Scan(&status); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if status != string(domain.SessionCompleted) {
		t.Fatalf("expected completed status persisted, got %q", status)
	}
}

func awaitEvent(t *testing.T, ch <-chan app.Event, want app.EventType) app.Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func awaitRowCount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, query string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var got int
	for time.Now().Before(deadline) {
		if err := pool.QueryRow(ctx, query).Scan(&got); err == nil && got == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("expected %d rows for %q, got %d", want, query, got)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trainer", "POSTGRES_PASSWORD": "trainerpass", "POSTGRES_DB": "trainerdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trainer:trainerpass@%s:%s/trainerdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedRoster(t *testing.T, ctx context.Context, dsn string, roster domain.Roster) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(roster)
	if err != nil {
		t.Fatalf("marshal roster: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO rosters (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, roster.ID, string(data)); err != nil {
		t.Fatalf("insert roster: %v", err)
	}
}

func sampleRoster() domain.Roster {
	return domain.Roster{
		ID: "roster-1",
		Entries: []domain.RosterEntry{
			{ExerciseID: domain.ExerciseCoherentMotion, Difficulty: 1, TrialCount: 1},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
