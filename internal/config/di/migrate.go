package di

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	appError "uploadguard/internal/shared/error"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateDB applies the embedded migrations with golang-migrate. Failures
// wrap appError.ErrDatabaseMigrationFailed.
func MigrateDB(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("%w: failed to get sql.DB: %w", appError.ErrDatabaseMigrationFailed, err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("%w: failed to create migrate driver: %w", appError.ErrDatabaseMigrationFailed, err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: failed to open embedded migrations: %w", appError.ErrDatabaseMigrationFailed, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("%w: failed to init migrate: %w", appError.ErrDatabaseMigrationFailed, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: failed to apply migrations: %w", appError.ErrDatabaseMigrationFailed, err)
	}
	return nil
}
