package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tenantdesk/tenantdesk-backend/migrations"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite starts (or reuses) the shared container and applies
// the embedded migrations up to version. Pass 0 to apply all of them.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    testutil.SkipIfShort(t)
//	    suite := testutil.RequireIntegrationSuite(t, 0)
//	    // ... use suite.DB
//	}
func NewIntegrationSuite(ctx context.Context, version uint) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.Nop()
	if err := resetSchema(ctx, db); err != nil {
		return nil, err
	}
	if version == 0 {
		err = database.RunMigrations(container.DSN, migrations.FS, log)
	} else {
		err = database.MigrateTo(container.DSN, migrations.FS, version, log)
	}
	if err != nil {
		return nil, err
	}

	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		DB:        wrappedDB,
		Fixtures:  NewFixtureFactory(db),
		Logger:    log,
	}, nil
}

// RequireIntegrationSuite returns a migrated suite or skips the test when
// Docker is unavailable
func RequireIntegrationSuite(t *testing.T, version uint) *IntegrationSuite {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	suite, err := NewIntegrationSuite(ctx, version)
	if err != nil {
		if isDockerUnavailable(err) {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("failed to set up integration suite: %v", err)
	}
	t.Cleanup(func() {
		suite.DB.Close()
	})
	return suite
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = startPostgres(ctx)
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.open(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// resetSchema drops everything so each suite starts from an empty database
func resetSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		DROP SCHEMA public CASCADE;
		CREATE SCHEMA public;
	`)
	if err != nil {
		return fmt.Errorf("failed to reset schema: %w", err)
	}
	return nil
}

func isDockerUnavailable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "docker") || strings.Contains(msg, "cannot connect") ||
		strings.Contains(msg, "rootless")
}
