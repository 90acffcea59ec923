package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed orders/*.sql reference/*.sql
var MigrationFiles embed.FS

// Target is one store's migration set. Each store keeps its own version table
// so both sets can live in the same database.
type Target struct {
	Name            string
	Dir             string
	MigrationsTable string
}

var (
	// Orders creates the transactional tables.
	Orders = Target{Name: "orders", Dir: "orders", MigrationsTable: "schema_migrations"}

	// Reference creates the middleware schema and seeds the locale reference data.
	Reference = Target{Name: "reference", Dir: "reference", MigrationsTable: "reference_schema_migrations"}
)

// RunMigrations executes all pending migrations of target against the provided database.
// If autoMigrate is false, it only logs the current version but doesn't apply anything.
func RunMigrations(db *sql.DB, target Target, autoMigrate bool) error {
	sourceDriver, err := iofs.New(MigrationFiles, target.Dir)
	if err != nil {
		return fmt.Errorf("failed to create migration source for %s: %w", target.Name, err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: target.MigrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create database driver for %s: %w", target.Name, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance for %s: %w", target.Name, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		slog.Warn("[Migrations] Database is in dirty state - migration was interrupted",
			"target", target.Name,
			"version", version,
			"action", "attempting automatic recovery",
		)

		// Every migration is idempotent, so forcing the recorded version and
		// re-running is safe.
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to recover dirty migration state at version %d: %w", version, err)
		}
		slog.Info("[Migrations] Recovered dirty migration state", "target", target.Name, "version", version)
	}

	if !autoMigrate {
		slog.Info("[Migrations] Auto-migration disabled, skipping migrations",
			"target", target.Name,
			"current_version", version,
			"dirty", dirty,
		)
		return nil
	}

	slog.Info("[Migrations] Running database migrations", "target", target.Name, "current_version", version)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("[Migrations] Database schema is up to date", "target", target.Name, "version", version)
			return nil
		}
		return fmt.Errorf("failed to run %s migrations: %w", target.Name, err)
	}

	newVersion, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get updated migration version: %w", err)
	}

	slog.Info("[Migrations] Database migrations completed successfully",
		"target", target.Name,
		"from_version", version,
		"to_version", newVersion,
	)

	return nil
}
