package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attention-trainer-service/internal/app"
	"attention-trainer-service/internal/config"
	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/gen"
	"attention-trainer-service/internal/infra/memory"
	pginfra "attention-trainer-service/internal/infra/postgres"
	redisinfra "attention-trainer-service/internal/infra/redis"
	transport "attention-trainer-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the training server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var rosters app.RosterRepository = memory.NewStaticRosterLoader(sampleRosters())
	if pool != nil {
		rosters = pginfra.NewRosterLoader(pool)
	}

	var sink app.OutcomeSink = memory.NewOutcomeSink()
	if pool != nil {
		sink = pginfra.NewOutcomeSink(pool)
	}

	builder := gen.NewPlanBuilder(gen.NewRegistry())
	planTTL := config.TTLDuration(cfg.Plan.TTL, 10*time.Minute)
	var plans app.PlanRepository
	if redisClient != nil {
		plans = redisinfra.NewPlanRepository(redisClient, builder, planTTL)
	} else {
		plans = memory.NewPlanRepository(builder, planTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewTrainerService(store, plans, rosters, sink)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trainer service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleRosters provides a minimal built-in roster; swap the loader for the
// Postgres-backed one in production.
func sampleRosters() map[string]domain.Roster {
	return map[string]domain.Roster{
		"roster-1": {
			ID: "roster-1",
			Entries: []domain.RosterEntry{
				{ExerciseID: domain.ExerciseCoherentMotion, Difficulty: 1, TrialCount: 5},
				{ExerciseID: domain.ExerciseVisualSearch, Difficulty: 1, TrialCount: 5},
				{ExerciseID: domain.ExerciseMemorySequence, Difficulty: 1, TrialCount: 3},
			},
		},
	}
}
