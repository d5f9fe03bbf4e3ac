package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_trainer_tables.sql
var createTrainerTablesSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createTrainerTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS study_sessions;
				DROP TABLE IF EXISTS exercise_runs;
				DROP TABLE IF EXISTS trial_results;
				DROP TABLE IF EXISTS rosters;
			`)
			return err
		},
	)
}
