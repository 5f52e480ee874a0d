package postgres

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"spritefactory/internal/errors"
)

// MigrationsTable keeps catalog schema versions apart from other tools
// sharing the database.
const MigrationsTable = "spritefactory_schema_migrations"

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate brings the asset catalog schema up to date and returns the
// resulting schema version.
func Migrate(db *sql.DB) (uint, error) {
	const op = "catalog.migrate"

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, errors.Wrap(err, op, "failed to load embedded migrations")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeConfig, op, "failed to prepare catalog database")
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, errors.Wrap(err, op, "failed to create migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, errors.Wrap(err, op, "catalog migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, errors.Wrap(err, op, "failed to read catalog schema version")
	}
	if dirty {
		return version, errors.Newf(errors.CodeInternal, "catalog schema version %d is dirty", version)
	}
	return version, nil
}
