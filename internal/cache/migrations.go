package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"slidewake/internal/logging"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func runMigrations(ctx context.Context, db *sql.DB) error {
	log := logging.FromContext(ctx)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		before = 0
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run cache migrations: %w", err)
	}
	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read cache schema version: %w", err)
	}

	if after > before {
		log.Info().Int64("from_version", before).Int64("to_version", after).Msg("cache migrations applied")
	} else {
		log.Debug().Int64("version", after).Msg("cache schema up to date")
	}
	return nil
}
