package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
)

// RunMigrations applies every pending migration found in source.
// It is idempotent and safe to call on every start.
func RunMigrations(databaseURL string, source fs.FS, log *logger.Logger) error {
	return migrateWith(databaseURL, source, log, func(m *migrate.Migrate) error {
		return m.Up()
	})
}

// MigrateTo moves the schema to an exact version, up or down. Integration
// tests use it to reproduce a deployment that has not received the enhanced
// tenant tables yet.
func MigrateTo(databaseURL string, source fs.FS, version uint, log *logger.Logger) error {
	return migrateWith(databaseURL, source, log, func(m *migrate.Migrate) error {
		return m.Migrate(version)
	})
}

func migrateWith(databaseURL string, source fs.FS, log *logger.Logger, step func(*migrate.Migrate) error) error {
	src, err := iofs.New(source, ".")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn().Err(srcErr).Msg("failed to close migration source")
		}
		if dbErr != nil {
			log.Warn().Err(dbErr).Msg("failed to close migration database")
		}
	}()

	err = step(m)
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("no migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("applied migrations successfully")
	return nil
}
