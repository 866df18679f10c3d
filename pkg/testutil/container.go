// Package testutil provides testing utilities for tenantdesk backend services.
// It includes a shared PostgreSQL testcontainer, sqlmock wrappers, a recording
// event publisher and database fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultPostgresImage = "postgres:15-alpine"

	// PostgresImageEnv overrides the image used by the integration suite
	PostgresImageEnv = "TENANTDESK_TEST_POSTGRES_IMAGE"
)

// PostgresContainer is a running PostgreSQL instance plus its connection URL
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// startPostgres launches an empty database. The schema is applied by the
// suite through the embedded migrations.
func startPostgres(ctx context.Context) (*PostgresContainer, error) {
	image := os.Getenv(PostgresImageEnv)
	if image == "" {
		image = defaultPostgresImage
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(image),
		postgres.WithDatabase("tenantdesk_test"),
		postgres.WithUsername("tenantdesk"),
		postgres.WithPassword("tenantdesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}
	return &PostgresContainer{PostgresContainer: container, DSN: dsn}, nil
}

// open returns a raw sqlx handle used by fixtures and schema resets
func (c *PostgresContainer) open(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}
