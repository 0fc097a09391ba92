package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/config"
)

const versionTable = "schema_version"

//go:embed migrations/*.sql
var migrations embed.FS

func loadMigrator(ctx context.Context, conn *pgx.Conn, logger *zerolog.Logger) (*tern.Migrator, error) {
	m, err := tern.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}

	files, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	if err := m.LoadMigrations(files); err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	m.OnStart = func(sequence int32, name, direction, _ string) {
		logger.Info().
			Int32("sequence", sequence).
			Str("migration", name).
			Str("direction", direction).
			Msg("applying migration")
	}
	return m, nil
}

// Migrate applies every embedded migration not yet recorded in
// schema_version. It runs on its own connection, outside the pool.
func Migrate(ctx context.Context, logger *zerolog.Logger, cfg *config.Config) error {
	conn, err := pgx.Connect(ctx, DSN(cfg))
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer conn.Close(ctx)

	m, err := loadMigrator(ctx, conn, logger)
	if err != nil {
		return err
	}

	current, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	latest := int32(len(m.Migrations))
	if current == latest {
		logger.Info().Int32("version", current).Msg("schema is up to date")
		return nil
	}

	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating schema from version %d: %w", current, err)
	}

	logger.Info().Int32("from", current).Int32("to", latest).Msg("schema migrated")
	return nil
}
